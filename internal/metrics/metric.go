package metrics

import (
	"sort"

	"github.com/copyleftdev/crat/internal/optimization"
	"github.com/copyleftdev/crat/internal/system"
)

// Metric scores one class at a time. The total score of a partition is the
// sum of its classes' contributions.
type Metric interface {
	// Name identifies the metric in configuration and reports.
	Name() string

	// ToBeMaximized reports whether larger totals are better.
	ToBeMaximized() bool

	// Evaluate scores a class. It must not retain or modify hc.
	Evaluate(hc system.HashedClass) *EvaluatedClass
}

// Factory builds a metric bound to the relations of one case.
type Factory func(c *system.Case) Metric

// Registry maps metric names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry holding the built-in metrics.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(EntityPlacementName, func(c *system.Case) Metric { return NewEntityPlacement(c) })
	r.Register(CohesionName, func(c *system.Case) Metric { return NewCohesion(c) })
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Names lists registered metric names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup builds the named metric for c.
func (r *Registry) Lookup(name string, c *system.Case) (Metric, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, optimization.WrapErrorf(optimization.ErrUnknownMetric, "metric %q", name).
			WithComponent("metrics").WithOperation("Lookup")
	}
	return f(c), nil
}
