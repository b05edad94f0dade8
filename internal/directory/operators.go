// Package directory holds the operator and source registries that back the
// dispatch core. It is the management plane: operators and weight tables are
// created and edited here, while the dispatch package only reads snapshots
// and reserves load through the interfaces it defines.
package directory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gaspardpetit/dispatchd/internal/dispatch"
)

// ErrInvalidMaxLoad is returned when an operator's maximum load is not a
// positive integer.
var ErrInvalidMaxLoad = errors.New("max_load must be a positive integer")

// Operator is the plain data record for a capacity-bounded worker. The
// in-flight counter lives next to it in the registry, not on the record, so
// the capacity-check algorithm stays decoupled from how load is tracked.
type Operator struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	MaxLoad   int       `json:"max_load"`
	CreatedAt time.Time `json:"created_at"`
}

type operatorState struct {
	mu       sync.Mutex
	op       Operator
	inFlight int
}

// Operators is an in-memory operator registry. It implements
// dispatch.Directory and dispatch.LoadAccessor; reservations are guarded by a
// per-operator mutex so concurrent assignments to different operators never
// contend with each other.
type Operators struct {
	mu  sync.RWMutex
	ops map[string]*operatorState
}

// NewOperators returns an empty operator registry.
func NewOperators() *Operators {
	return &Operators{ops: make(map[string]*operatorState)}
}

// Add registers a new active operator and returns its record.
func (r *Operators) Add(name string, maxLoad int) (Operator, error) {
	if maxLoad <= 0 {
		return Operator{}, ErrInvalidMaxLoad
	}
	op := Operator{
		ID:        uuid.NewString(),
		Name:      name,
		Active:    true,
		MaxLoad:   maxLoad,
		CreatedAt: time.Now().UTC(),
	}
	r.mu.Lock()
	r.ops[op.ID] = &operatorState{op: op}
	r.mu.Unlock()
	return op, nil
}

// Get returns a copy of the operator record.
func (r *Operators) Get(id string) (Operator, bool) {
	st := r.state(id)
	if st == nil {
		return Operator{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.op, true
}

// List returns all operator records ordered by creation time.
func (r *Operators) List() []Operator {
	r.mu.RLock()
	states := make([]*operatorState, 0, len(r.ops))
	for _, st := range r.ops {
		states = append(states, st)
	}
	r.mu.RUnlock()
	res := make([]Operator, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		res = append(res, st.op)
		st.mu.Unlock()
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res
}

// OperatorPatch carries optional field updates for an operator.
type OperatorPatch struct {
	Name    *string `json:"name"`
	Active  *bool   `json:"active"`
	MaxLoad *int    `json:"max_load"`
}

// Update applies a patch and returns the updated record. Lowering MaxLoad
// below the current in-flight count is allowed; existing reservations stay
// valid and no new ones succeed until enough are released.
func (r *Operators) Update(id string, patch OperatorPatch) (Operator, error) {
	st := r.state(id)
	if st == nil {
		return Operator{}, dispatch.ErrOperatorNotFound
	}
	if patch.MaxLoad != nil && *patch.MaxLoad <= 0 {
		return Operator{}, ErrInvalidMaxLoad
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if patch.Name != nil {
		st.op.Name = *patch.Name
	}
	if patch.Active != nil {
		st.op.Active = *patch.Active
	}
	if patch.MaxLoad != nil {
		st.op.MaxLoad = *patch.MaxLoad
	}
	return st.op, nil
}

// Remove deletes an operator from the registry.
func (r *Operators) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ops[id]; !ok {
		return dispatch.ErrOperatorNotFound
	}
	delete(r.ops, id)
	return nil
}

// IsActive implements dispatch.Directory.
func (r *Operators) IsActive(_ context.Context, id string) (bool, error) {
	st := r.state(id)
	if st == nil {
		return false, dispatch.ErrOperatorNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.op.Active, nil
}

// MaxLoad implements dispatch.Directory.
func (r *Operators) MaxLoad(_ context.Context, id string) (int, error) {
	st := r.state(id)
	if st == nil {
		return 0, dispatch.ErrOperatorNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.op.MaxLoad, nil
}

// CurrentLoad implements dispatch.LoadAccessor.
func (r *Operators) CurrentLoad(_ context.Context, id string) (int, error) {
	st := r.state(id)
	if st == nil {
		return 0, dispatch.ErrOperatorNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.inFlight, nil
}

// TryReserve implements dispatch.LoadAccessor. The check and the increment
// happen under the operator's own lock, so the counter can never exceed the
// maximum regardless of how many assignments race on it.
func (r *Operators) TryReserve(_ context.Context, id string) (bool, error) {
	st := r.state(id)
	if st == nil {
		return false, dispatch.ErrOperatorNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.inFlight >= st.op.MaxLoad {
		return false, nil
	}
	st.inFlight++
	return true, nil
}

// Release implements dispatch.LoadAccessor; the counter is floored at zero.
func (r *Operators) Release(_ context.Context, id string) error {
	st := r.state(id)
	if st == nil {
		return dispatch.ErrOperatorNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.inFlight > 0 {
		st.inFlight--
	}
	return nil
}

func (r *Operators) state(id string) *operatorState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ops[id]
}
