package dispatch

import (
	"context"

	"github.com/gaspardpetit/dispatchd/internal/logx"
	"github.com/gaspardpetit/dispatchd/internal/metrics"
)

// DefaultMaxRetries caps the reservation loop. The candidate set strictly
// shrinks on every failed reservation, so the loop terminates within the size
// of the initial set regardless; the cap is defensive only.
const DefaultMaxRetries = 16

// Assignment is the outcome of a single Assign call. A zero OperatorID with
// Assigned false means no operator was available, which is a normal outcome,
// not an error.
type Assignment struct {
	OperatorID string
	Assigned   bool
}

// Coordinator runs the filter -> pick -> reserve loop for each assignment.
type Coordinator struct {
	Weights    WeightProvider
	Filter     *CapacityFilter
	Selector   *Selector
	Loads      LoadAccessor
	MaxRetries int
}

// NewCoordinator wires a coordinator over the given collaborators.
func NewCoordinator(weights WeightProvider, dir Directory, loads LoadAccessor, sel *Selector) *Coordinator {
	return &Coordinator{
		Weights:    weights,
		Filter:     &CapacityFilter{Dir: dir, Loads: loads},
		Selector:   sel,
		Loads:      loads,
		MaxRetries: DefaultMaxRetries,
	}
}

// Assign picks an operator for a request from the given source and reserves
// one slot of its capacity. A failed reservation means a concurrent caller
// won the operator's last slot; the operator is dropped from this call's
// candidate set and selection retried over the remainder. When no candidate
// can be reserved the returned Assignment is unassigned and err is nil.
func (c *Coordinator) Assign(ctx context.Context, sourceID string) (Assignment, error) {
	weights, err := c.Weights.Snapshot(ctx, sourceID)
	if err != nil {
		return Assignment{}, err
	}
	cands, err := c.Filter.Apply(ctx, weights)
	if err != nil {
		return Assignment{}, err
	}
	for attempts := 0; len(cands) > 0 && attempts < c.maxRetries(); attempts++ {
		pick, err := c.Selector.Pick(cands)
		if err != nil {
			return Assignment{}, err
		}
		ok, err := c.Loads.TryReserve(ctx, pick.OperatorID)
		if err != nil {
			return Assignment{}, err
		}
		if ok {
			metrics.OperatorReserved(pick.OperatorID)
			return Assignment{OperatorID: pick.OperatorID, Assigned: true}, nil
		}
		metrics.ReservationConflict()
		logx.Log.Debug().Str("operator_id", pick.OperatorID).Str("source_id", sourceID).Msg("reservation lost; retrying over remaining candidates")
		cands = without(cands, pick.OperatorID)
	}
	return Assignment{}, nil
}

// Release frees one reserved slot. Request-lifecycle code calls it exactly
// once per assigned request that leaves the active state.
func (c *Coordinator) Release(ctx context.Context, operatorID string) error {
	if err := c.Loads.Release(ctx, operatorID); err != nil {
		return err
	}
	metrics.OperatorReleased(operatorID)
	return nil
}

func (c *Coordinator) maxRetries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return DefaultMaxRetries
}

func without(cands []Candidate, operatorID string) []Candidate {
	out := cands[:0]
	for _, c := range cands {
		if c.OperatorID != operatorID {
			out = append(out, c)
		}
	}
	return out
}
