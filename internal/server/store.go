package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/copyleftdev/crat/internal/explorer"
)

// storedState is a built state together with what it was built from.
type storedState struct {
	ID      string
	Case    string
	Metric  string
	State   *explorer.State
	Created time.Time
}

// stateStore keeps at most limit states, evicting the oldest first.
// States are immutable, so readers share them without copying.
type stateStore struct {
	mu     sync.RWMutex
	limit  int
	states map[string]*storedState
	order  []string
}

func newStateStore(limit int) *stateStore {
	if limit < 1 {
		limit = 1
	}
	return &stateStore{limit: limit, states: make(map[string]*storedState)}
}

// add stores s under a fresh id and returns the entry and the ids evicted
// to make room.
func (st *stateStore) add(caseName, metric string, s *explorer.State) (*storedState, []string) {
	entry := &storedState{
		ID:      uuid.NewString(),
		Case:    caseName,
		Metric:  metric,
		State:   s,
		Created: time.Now().UTC(),
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	var evicted []string
	for len(st.order) >= st.limit {
		oldest := st.order[0]
		st.order = st.order[1:]
		delete(st.states, oldest)
		evicted = append(evicted, oldest)
	}
	st.states[entry.ID] = entry
	st.order = append(st.order, entry.ID)
	return entry, evicted
}

func (st *stateStore) get(id string) (*storedState, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	entry, ok := st.states[id]
	return entry, ok
}

func (st *stateStore) remove(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.states[id]; !ok {
		return false
	}
	delete(st.states, id)
	for i, v := range st.order {
		if v == id {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}
	return true
}

func (st *stateStore) len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.states)
}
