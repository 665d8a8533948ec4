package optimization

// ProblemState is the contract a candidate solution offers to a local
// search: a cached objective value, a direction-aware acceptance test and a
// content-derived identity used for visited-state and tabu checks.
type ProblemState interface {
	// IsBetterThan reports whether the state's evaluation beats threshold
	// in the state's optimization direction.
	IsBetterThan(threshold float64) bool

	// Evaluation returns the cached objective value.
	Evaluation() float64

	// Hash returns an identity that is equal for states with equal membership.
	Hash() int64
}

// Snapshot is a plain summary of a state, suitable for reporting progress.
type Snapshot struct {
	Evaluation float64 `json:"evaluation"`
	Hash       int64   `json:"hash"`
	Classes    int     `json:"classes"`
	Direction  string  `json:"direction"`
}
