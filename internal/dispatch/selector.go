package dispatch

import "sync"

// IntSource yields uniform integers in [0, n). *math/rand.Rand satisfies it;
// tests inject fixed draws.
type IntSource interface {
	Intn(n int) int
}

// Selector draws one candidate with probability proportional to its weight.
// The draw uses integer prefix sums, so proportions are exact and free of
// floating-point bias. Safe for concurrent use.
type Selector struct {
	mu  sync.Mutex
	rng IntSource
}

// NewSelector returns a Selector backed by the given random source.
func NewSelector(rng IntSource) *Selector {
	return &Selector{rng: rng}
}

// Pick returns one candidate with probability weight/total. All weights must
// be positive; callers filter non-positive weights beforehand.
func (s *Selector) Pick(cands []Candidate) (Candidate, error) {
	if len(cands) == 0 {
		return Candidate{}, ErrNoCandidates
	}
	total := 0
	for _, c := range cands {
		total += c.Weight
	}
	s.mu.Lock()
	r := s.rng.Intn(total)
	s.mu.Unlock()
	return pickAt(cands, r), nil
}

// pickAt resolves a draw r in [0, total) to a candidate by walking the prefix
// sums: the first candidate whose cumulative weight exceeds r wins.
// Deterministic for a given (cands, r).
func pickAt(cands []Candidate, r int) Candidate {
	for _, c := range cands {
		r -= c.Weight
		if r < 0 {
			return c
		}
	}
	// Unreachable for r < total; guard against a bad draw anyway.
	return cands[len(cands)-1]
}
