package directory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gaspardpetit/dispatchd/internal/dispatch"
)

// Source is a traffic origin with its own weight table over operators.
type Source struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type sourceState struct {
	src     Source
	weights map[string]int
}

// Sources is an in-memory source registry. It implements
// dispatch.WeightProvider: each reconfiguration swaps the whole weight map,
// and snapshots copy it, so an assignment in flight never observes a
// half-updated table.
type Sources struct {
	mu        sync.RWMutex
	srcs      map[string]*sourceState
	operators *Operators
}

// NewSources returns an empty source registry. Weight targets are validated
// against ops at reconfiguration time.
func NewSources(ops *Operators) *Sources {
	return &Sources{srcs: make(map[string]*sourceState), operators: ops}
}

// Add registers a new source with an empty weight table.
func (r *Sources) Add(name, description string) Source {
	src := Source{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	r.mu.Lock()
	r.srcs[src.ID] = &sourceState{src: src, weights: map[string]int{}}
	r.mu.Unlock()
	return src
}

// Get returns a copy of the source record.
func (r *Sources) Get(id string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.srcs[id]
	if !ok {
		return Source{}, false
	}
	return st.src, true
}

// List returns all source records ordered by creation time.
func (r *Sources) List() []Source {
	r.mu.RLock()
	res := make([]Source, 0, len(r.srcs))
	for _, st := range r.srcs {
		res = append(res, st.src)
	}
	r.mu.RUnlock()
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res
}

// Remove deletes a source and its weight table.
func (r *Sources) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.srcs[id]; !ok {
		return dispatch.ErrSourceNotFound
	}
	delete(r.srcs, id)
	return nil
}

// Reconfigure atomically replaces the weight table for a source. Every weight
// must be a positive integer and every operator must exist; on any validation
// failure the previous table is left intact.
func (r *Sources) Reconfigure(sourceID string, weights map[string]int) error {
	next := make(map[string]int, len(weights))
	for opID, w := range weights {
		if w <= 0 {
			return dispatch.ErrInvalidWeight
		}
		if _, ok := r.operators.Get(opID); !ok {
			return dispatch.ErrOperatorNotFound
		}
		next[opID] = w
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.srcs[sourceID]
	if !ok {
		return dispatch.ErrSourceNotFound
	}
	st.weights = next
	return nil
}

// Weights returns a copy of the source's weight table.
func (r *Sources) Weights(sourceID string) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.srcs[sourceID]
	if !ok {
		return nil, dispatch.ErrSourceNotFound
	}
	res := make(map[string]int, len(st.weights))
	for opID, w := range st.weights {
		res[opID] = w
	}
	return res, nil
}

// Snapshot implements dispatch.WeightProvider. Candidates are ordered by
// operator ID so selection over a fixed draw is reproducible.
func (r *Sources) Snapshot(_ context.Context, sourceID string) ([]dispatch.Candidate, error) {
	r.mu.RLock()
	st, ok := r.srcs[sourceID]
	if !ok {
		r.mu.RUnlock()
		return nil, dispatch.ErrSourceNotFound
	}
	cands := make([]dispatch.Candidate, 0, len(st.weights))
	for opID, w := range st.weights {
		cands = append(cands, dispatch.Candidate{OperatorID: opID, Weight: w})
	}
	r.mu.RUnlock()
	sort.Slice(cands, func(i, j int) bool { return cands[i].OperatorID < cands[j].OperatorID })
	return cands, nil
}
