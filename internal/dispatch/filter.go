package dispatch

import (
	"context"
	"errors"
)

// CapacityFilter drops candidates that cannot currently take work. It is a
// best-effort pre-filter over possibly stale load reads; TryReserve remains
// the enforcement point for the capacity invariant.
type CapacityFilter struct {
	Dir   Directory
	Loads LoadAccessor
}

// Apply returns the candidates that are active, configured with a positive
// weight, and below their maximum load at filter time. Operators that have
// disappeared from the directory since the weight table was written are
// skipped rather than reported.
func (f *CapacityFilter) Apply(ctx context.Context, cands []Candidate) ([]Candidate, error) {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Weight <= 0 {
			continue
		}
		active, err := f.Dir.IsActive(ctx, c.OperatorID)
		if errors.Is(err, ErrOperatorNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !active {
			continue
		}
		max, err := f.Dir.MaxLoad(ctx, c.OperatorID)
		if err != nil {
			return nil, err
		}
		load, err := f.Loads.CurrentLoad(ctx, c.OperatorID)
		if err != nil {
			return nil, err
		}
		if load >= max {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
