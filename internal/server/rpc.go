package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&request); err != nil {
		s.respondWithError(w, -32700, "Parse error", nil)
		return
	}
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, -32600, "Invalid Request", request.ID)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "state.build":
		result, err = s.rpcBuild(request.Params)
	case "state.get":
		result, err = s.rpcGet(request.Params)
	case "state.compare":
		result, err = s.rpcCompare(request.Params)
	default:
		s.respondWithError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, -32000, err.Error(), request.ID)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

func firstParam(params []interface{}) (map[string]interface{}, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("missing required parameters")
	}
	paramMap, ok := params[0].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid parameter format, expected object")
	}
	return paramMap, nil
}

func stateIDParam(params []interface{}) (map[string]interface{}, string, error) {
	paramMap, err := firstParam(params)
	if err != nil {
		return nil, "", err
	}
	id, ok := paramMap["state_id"].(string)
	if !ok || id == "" {
		return nil, "", fmt.Errorf("state_id is required")
	}
	return paramMap, id, nil
}

// rpcBuild expects {"metric": "entity-placement", "case": {...}}.
func (s *Server) rpcBuild(params []interface{}) (interface{}, error) {
	paramMap, err := firstParam(params)
	if err != nil {
		return nil, err
	}
	caseDoc, ok := paramMap["case"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("case is required")
	}
	metricName, _ := paramMap["metric"].(string)
	return s.buildState(metricName, caseDoc)
}

// rpcGet expects {"state_id": "..."}.
func (s *Server) rpcGet(params []interface{}) (interface{}, error) {
	_, id, err := stateIDParam(params)
	if err != nil {
		return nil, err
	}
	entry, err := s.lookupState(id)
	if err != nil {
		return nil, err
	}
	return detailsOf(entry), nil
}

// rpcCompare expects {"state_id": "...", "threshold": 1.5}.
func (s *Server) rpcCompare(params []interface{}) (interface{}, error) {
	paramMap, id, err := stateIDParam(params)
	if err != nil {
		return nil, err
	}
	number, ok := paramMap["threshold"].(json.Number)
	if !ok {
		return nil, fmt.Errorf("threshold must be a number")
	}
	threshold, err := number.Float64()
	if err != nil {
		return nil, fmt.Errorf("threshold must be a number: %v", err)
	}
	better, err := s.compareState(id, threshold)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"better": better}, nil
}

// respondWithError sends a JSON-RPC 2.0 error response.
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Warn("RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}
