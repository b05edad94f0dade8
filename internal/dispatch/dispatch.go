// Package dispatch implements capacity-aware, weighted assignment of
// incoming requests to operators. The only mutable state it owns is the
// per-operator in-flight counter behind LoadAccessor; everything else is
// read as an immutable snapshot at the start of each call.
package dispatch

import (
	"context"
	"errors"
)

var (
	// ErrSourceNotFound is returned when a source identity does not exist.
	ErrSourceNotFound = errors.New("source not found")
	// ErrOperatorNotFound is returned when an operator identity does not exist.
	ErrOperatorNotFound = errors.New("operator not found")
	// ErrInvalidWeight is returned when a weight configuration is not a
	// positive integer. It is raised at reconfiguration time and never
	// reaches the assignment path.
	ErrInvalidWeight = errors.New("weight must be a positive integer")
	// ErrNoCandidates is returned by Selector.Pick on an empty candidate set.
	ErrNoCandidates = errors.New("empty candidate set")
)

// Candidate pairs an operator with its configured weight for a source.
type Candidate struct {
	OperatorID string
	Weight     int
}

// WeightProvider returns the weight table configured for a source.
// Snapshot must be copy-on-read: a reconfiguration running concurrently with
// an assignment must never be observed as a partial update. A source with no
// configured weights yields an empty slice, not an error.
type WeightProvider interface {
	Snapshot(ctx context.Context, sourceID string) ([]Candidate, error)
}

// Directory reports operator attributes used for pre-filtering. Lookups for
// unknown operators return ErrOperatorNotFound.
type Directory interface {
	IsActive(ctx context.Context, operatorID string) (bool, error)
	MaxLoad(ctx context.Context, operatorID string) (int, error)
}

// LoadAccessor tracks per-operator in-flight load.
//
// TryReserve is the single enforcement point of the load <= max invariant: it
// must atomically increment the counter only if the result stays within the
// operator's maximum, and report whether it did. CurrentLoad is informational
// and may be stale by the time a decision is made; it is only used to
// pre-filter obvious non-candidates.
type LoadAccessor interface {
	CurrentLoad(ctx context.Context, operatorID string) (int, error)
	TryReserve(ctx context.Context, operatorID string) (bool, error)
	Release(ctx context.Context, operatorID string) error
}
