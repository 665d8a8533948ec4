package explorer

// Epsilon is the tolerance below which two evaluations are considered equal.
const Epsilon = 1e-10

// ComparisonPolicy selects the direction in which evaluations improve.
type ComparisonPolicy int

const (
	// MinimizeBetter treats smaller evaluations as better.
	MinimizeBetter ComparisonPolicy = iota
	// MaximizeBetter treats larger evaluations as better.
	MaximizeBetter
)

// PolicyFor returns the policy matching a metric's declared direction.
func PolicyFor(m interface{ ToBeMaximized() bool }) ComparisonPolicy {
	if m.ToBeMaximized() {
		return MaximizeBetter
	}
	return MinimizeBetter
}

// IsBetter reports whether a beats b by more than Epsilon. Ties keep the
// incumbent.
func (p ComparisonPolicy) IsBetter(a, b float64) bool {
	if p == MaximizeBetter {
		return a-b > Epsilon
	}
	return b-a > Epsilon
}

func (p ComparisonPolicy) String() string {
	if p == MaximizeBetter {
		return "maximize"
	}
	return "minimize"
}
