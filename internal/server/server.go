package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/copyleftdev/crat/internal/config"
	apperrors "github.com/copyleftdev/crat/internal/errors"
	"github.com/copyleftdev/crat/internal/explorer"
	"github.com/copyleftdev/crat/internal/logging"
	"github.com/copyleftdev/crat/internal/metrics"
	"github.com/copyleftdev/crat/internal/optimization"
	"github.com/copyleftdev/crat/internal/system"
)

// Logger defines the logging interface used by the server.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

var errNotFound = apperrors.New("state not found")

// Server builds solution states from submitted cases and answers
// evaluation, identity and lookup queries about them over HTTP and
// JSON-RPC 2.0.
type Server struct {
	cfg      *config.Config
	logger   Logger
	caseLog  *zap.Logger
	registry *metrics.Registry
	store    *stateStore
	metrics  *serverMetrics
}

// NewServer creates a server with the built-in metrics registered.
func NewServer(cfg *config.Config, logger Logger) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		caseLog:  logging.NewZapLogger(logger.WithFields(map[string]interface{}{"component": "system"})),
		registry: metrics.NewRegistry(),
		store:    newStateStore(cfg.Store.Limit),
		metrics:  newServerMetrics(),
	}
}

// Registry returns the prometheus registry holding the server's collectors.
func (s *Server) Registry() *prometheus.Registry {
	return s.metrics.registry
}

// RegisterRoutes mounts the REST API under /api/v1 and JSON-RPC at /rpc.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/metrics", s.handleListMetrics)
		r.Post("/states", s.handleBuild)
		r.Get("/states/{id}", s.handleGet)
		r.Get("/states/{id}/lookup", s.handleLookup)
		r.Post("/states/{id}/compare", s.handleCompare)
		r.Delete("/states/{id}", s.handleDelete)
	})

	r.Post("/rpc", s.handleJSONRPC)
}

type classView struct {
	ID           int     `json:"id"`
	Name         string  `json:"name,omitempty"`
	Hash         int64   `json:"hash"`
	Contribution float64 `json:"contribution"`
	Entities     []int   `json:"entities"`
}

func viewOf(ec *metrics.EvaluatedClass) classView {
	return classView{
		ID:           ec.ClassID(),
		Name:         ec.Name(),
		Hash:         ec.Hash(),
		Contribution: ec.Contribution(),
		Entities:     ec.Entities(),
	}
}

type stateView struct {
	ID       string                `json:"id"`
	Case     string                `json:"case"`
	Metric   string                `json:"metric"`
	Snapshot optimization.Snapshot `json:"snapshot"`
	Classes  []classView           `json:"classes,omitempty"`
	Render   string                `json:"render,omitempty"`
}

func summaryOf(entry *storedState) stateView {
	return stateView{
		ID:       entry.ID,
		Case:     entry.Case,
		Metric:   entry.Metric,
		Snapshot: entry.State.Snapshot(),
	}
}

func detailsOf(entry *storedState) stateView {
	v := summaryOf(entry)
	for _, ec := range entry.State.Classes() {
		v.Classes = append(v.Classes, viewOf(ec))
	}
	v.Render = entry.State.String()
	return v
}

// buildState decodes a case, evaluates it with the named metric (or the
// configured default) and stores the resulting state.
func (s *Server) buildState(metricName string, caseDoc map[string]interface{}) (stateView, error) {
	if caseDoc == nil {
		return stateView{}, apperrors.New("case is required").WithOperation("build")
	}
	if metricName == "" {
		metricName = s.cfg.Metric.Default
	}

	c, err := system.DecodeCase(caseDoc, s.caseLog)
	if err != nil {
		return stateView{}, apperrors.Wrap(err, "decode case").WithOperation("build")
	}
	m, err := s.registry.Lookup(metricName, c)
	if err != nil {
		return stateView{}, apperrors.Wrap(err, "select metric").WithOperation("build")
	}

	state := explorer.NewStateFromCase(c, m)
	entry, evicted := s.store.add(c.Name, m.Name(), state)

	s.metrics.built.WithLabelValues(m.Name()).Inc()
	s.metrics.classes.Observe(float64(state.NumOfClasses()))
	s.metrics.stored.Set(float64(s.store.len()))
	for _, id := range evicted {
		s.logger.Debug("State evicted", map[string]interface{}{"state_id": id})
	}
	s.logger.Info("State built", map[string]interface{}{
		"state_id":   entry.ID,
		"case":       c.Name,
		"metric":     m.Name(),
		"classes":    state.NumOfClasses(),
		"evaluation": state.Evaluation(),
		"hash":       state.Hash(),
	})
	return summaryOf(entry), nil
}

func (s *Server) lookupState(id string) (*storedState, error) {
	entry, ok := s.store.get(id)
	if !ok {
		return nil, apperrors.Wrap(errNotFound, fmt.Sprintf("state %q", id))
	}
	return entry, nil
}

func (s *Server) compareState(id string, threshold float64) (bool, error) {
	entry, err := s.lookupState(id)
	if err != nil {
		return false, err
	}
	better := entry.State.IsBetterThan(threshold)
	s.metrics.comparisons.WithLabelValues(strconv.FormatBool(better)).Inc()
	return better, nil
}

// findClass resolves one of the entity, class or hash selectors against a
// stored state. A miss is reported as found=false, not as an error.
func (s *Server) findClass(id, by string, value int64) (*metrics.EvaluatedClass, bool, error) {
	entry, err := s.lookupState(id)
	if err != nil {
		return nil, false, err
	}
	switch by {
	case "entity":
		ec, ok := entry.State.FindByEntity(int(value))
		return ec, ok, nil
	case "class":
		ec, ok := entry.State.FindByClassID(int(value))
		return ec, ok, nil
	case "hash":
		ec, ok := entry.State.FindByHash(value)
		return ec, ok, nil
	default:
		return nil, false, apperrors.Errorf("unknown selector %q", by).WithOperation("lookup")
	}
}

func (s *Server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"metrics": s.registry.Names(),
		"default": s.cfg.Metric.Default,
	})
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Metric string                 `json:"metric"`
		Case   map[string]interface{} `json:"case"`
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	view, err := s.buildState(req.Metric, req.Case)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	entry, err := s.lookupState(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, detailsOf(entry))
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var by, raw string
	for _, key := range []string{"entity", "class", "hash"} {
		if v := query.Get(key); v != "" {
			by, raw = key, v
			break
		}
	}
	if by == "" {
		s.respondError(w, http.StatusBadRequest, "one of entity, class or hash is required")
		return
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s: %q", by, raw))
		return
	}

	ec, found, err := s.findClass(chi.URLParam(r, "id"), by, value)
	switch {
	case err != nil:
		s.respondError(w, http.StatusNotFound, err.Error())
	case !found:
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("no class matches %s=%d", by, value))
	default:
		s.respondJSON(w, http.StatusOK, viewOf(ec))
	}
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Threshold *float64 `json:"threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Threshold == nil {
		s.respondError(w, http.StatusBadRequest, "threshold is required")
		return
	}

	better, err := s.compareState(chi.URLParam(r, "id"), *req.Threshold)
	if err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"better": better})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.store.remove(id) {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("state %q not found", id))
		return
	}
	s.metrics.stored.Set(float64(s.store.len()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{"error": message})
}

// Close releases server resources.
func (s *Server) Close() error {
	return s.caseLog.Sync()
}
