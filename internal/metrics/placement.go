package metrics

import (
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/crat/internal/system"
)

const (
	EntityPlacementName = "entity-placement"
	CohesionName        = "cohesion"
)

// relations resolves an entity's related ids against a case.
type relations struct {
	c *system.Case
}

func (r relations) related(id int) []int {
	e, ok := r.c.Entity(id)
	if !ok {
		return nil
	}
	return e.Related
}

// jaccardDistance returns 1 - |a∩b|/|a∪b|, or 0 when both sets are empty.
func jaccardDistance(a, b []int) float64 {
	union := lo.Union(a, b)
	if len(union) == 0 {
		return 0
	}
	return 1 - float64(len(lo.Intersect(a, b)))/float64(len(union))
}

// EntityPlacement sums, over the members of a class, the Jaccard distance
// between each member's relations and the rest of the class. Lower is better.
type EntityPlacement struct {
	relations
}

// NewEntityPlacement binds the metric to the relations declared in c.
func NewEntityPlacement(c *system.Case) *EntityPlacement {
	return &EntityPlacement{relations{c: c}}
}

func (m *EntityPlacement) Name() string { return EntityPlacementName }

func (m *EntityPlacement) ToBeMaximized() bool { return false }

func (m *EntityPlacement) Evaluate(hc system.HashedClass) *EvaluatedClass {
	members := hc.Entities
	distances := make([]float64, 0, members.Len())
	for _, id := range members {
		distances = append(distances, jaccardDistance(m.related(id), []int(members.Without(id))))
	}
	return NewEvaluatedClass(hc, floats.Sum(distances))
}

// Cohesion averages, over the members of a class, the share of the other
// members each one is related to. Singletons score zero. Higher is better.
type Cohesion struct {
	relations
}

// NewCohesion binds the metric to the relations declared in c.
func NewCohesion(c *system.Case) *Cohesion {
	return &Cohesion{relations{c: c}}
}

func (m *Cohesion) Name() string { return CohesionName }

func (m *Cohesion) ToBeMaximized() bool { return true }

func (m *Cohesion) Evaluate(hc system.HashedClass) *EvaluatedClass {
	members := hc.Entities
	if members.Len() < 2 {
		return NewEvaluatedClass(hc, 0)
	}
	ratios := make([]float64, 0, members.Len())
	for _, id := range members {
		others := []int(members.Without(id))
		ratios = append(ratios, float64(len(lo.Intersect(m.related(id), others)))/float64(len(others)))
	}
	return NewEvaluatedClass(hc, stat.Mean(ratios, nil))
}
