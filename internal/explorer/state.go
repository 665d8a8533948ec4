// Package explorer holds the solution state explored by class-refactoring
// searches: a partition of entities into scored classes, its total score
// and a membership-derived identity.
package explorer

import (
	"cmp"
	"slices"
	"strings"

	"github.com/copyleftdev/crat/internal/metrics"
	"github.com/copyleftdev/crat/internal/optimization"
	"github.com/copyleftdev/crat/internal/system"
)

var _ optimization.ProblemState = (*State)(nil)

// State is one candidate partition. It is immutable once built; a search
// moves by deriving new states, never by editing one in place.
//
// Classes are unique by class id and kept ordered by (hash, class id), so
// the state hash does not depend on insertion order.
type State struct {
	classes    []*metrics.EvaluatedClass
	evaluation float64
	policy     ComparisonPolicy
}

// NewStateFromCase evaluates every non-empty class of c with m.
func NewStateFromCase(c *system.Case, m metrics.Metric) *State {
	declared := c.Classes()
	evaluated := make([]*metrics.EvaluatedClass, 0, len(declared))
	for _, cl := range declared {
		if cl.Size() == 0 {
			continue
		}
		evaluated = append(evaluated, m.Evaluate(system.NewHashedClass(cl)))
	}
	return newState(evaluated, PolicyFor(m))
}

// NewStateFromEvaluated builds a single-class state without calling the metric.
func NewStateFromEvaluated(ec *metrics.EvaluatedClass, m metrics.Metric) *State {
	return newState([]*metrics.EvaluatedClass{ec}, PolicyFor(m))
}

// NewStateFromEvaluatedClasses assembles a state from classes that are
// already scored, typically classes reused from a parent state together with
// freshly evaluated ones. The metric is only consulted for its direction.
func NewStateFromEvaluatedClasses(classes []*metrics.EvaluatedClass, m metrics.Metric) *State {
	return newState(classes, PolicyFor(m))
}

// NewStateFromClass hashes and evaluates a single class.
func NewStateFromClass(cl system.Class, m metrics.Metric) *State {
	if cl.Size() == 0 {
		return newState(nil, PolicyFor(m))
	}
	return newState([]*metrics.EvaluatedClass{m.Evaluate(system.NewHashedClass(cl))}, PolicyFor(m))
}

func newState(classes []*metrics.EvaluatedClass, policy ComparisonPolicy) *State {
	byID := make(map[int]int, len(classes))
	kept := make([]*metrics.EvaluatedClass, 0, len(classes))
	for _, ec := range classes {
		if ec == nil || ec.Size() == 0 {
			continue
		}
		if i, ok := byID[ec.ClassID()]; ok {
			kept[i] = ec
			continue
		}
		byID[ec.ClassID()] = len(kept)
		kept = append(kept, ec)
	}
	slices.SortFunc(kept, compareClasses)

	s := &State{classes: kept, policy: policy}
	s.updateEvaluation()
	return s
}

func compareClasses(a, b *metrics.EvaluatedClass) int {
	if c := cmp.Compare(a.Hash(), b.Hash()); c != 0 {
		return c
	}
	return cmp.Compare(a.ClassID(), b.ClassID())
}

func (s *State) updateEvaluation() {
	s.evaluation = 0
	for _, ec := range s.classes {
		s.evaluation += ec.Contribution()
	}
}

// Clone returns an independent copy sharing only the immutable classes.
func (s *State) Clone() *State {
	return &State{
		classes:    slices.Clone(s.classes),
		evaluation: s.evaluation,
		policy:     s.policy,
	}
}

// Derive builds a child state: the classes with ids in removed are dropped,
// classes in added replace any class with the same id, and the rest are
// reused unchanged. Empty added classes are skipped, which is how a move
// that empties a class removes it. s is not modified.
func (s *State) Derive(removed []int, added ...*metrics.EvaluatedClass) *State {
	drop := make(map[int]struct{}, len(removed)+len(added))
	for _, id := range removed {
		drop[id] = struct{}{}
	}
	for _, ec := range added {
		if ec != nil {
			drop[ec.ClassID()] = struct{}{}
		}
	}

	classes := make([]*metrics.EvaluatedClass, 0, len(s.classes)+len(added))
	for _, ec := range s.classes {
		if _, ok := drop[ec.ClassID()]; !ok {
			classes = append(classes, ec)
		}
	}
	classes = append(classes, added...)
	return newState(classes, s.policy)
}

// FindByEntity returns the class containing entity id.
func (s *State) FindByEntity(id int) (*metrics.EvaluatedClass, bool) {
	for _, ec := range s.classes {
		if ec.Contains(id) {
			return ec, true
		}
	}
	return nil, false
}

// FindByClassID returns the class with the given stable id.
func (s *State) FindByClassID(classID int) (*metrics.EvaluatedClass, bool) {
	for _, ec := range s.classes {
		if ec.ClassID() == classID {
			return ec, true
		}
	}
	return nil, false
}

// FindByEntities returns the first class, in key order, that contains all of entities.
func (s *State) FindByEntities(entities system.EntitySet) (*metrics.EvaluatedClass, bool) {
	for _, ec := range s.classes {
		if ec.ContainsAll(entities) {
			return ec, true
		}
	}
	return nil, false
}

// FindByHash returns the first class, in key order, with the given content hash.
func (s *State) FindByHash(hash int64) (*metrics.EvaluatedClass, bool) {
	i, found := slices.BinarySearchFunc(s.classes, hash, func(ec *metrics.EvaluatedClass, h int64) int {
		return cmp.Compare(ec.Hash(), h)
	})
	if !found {
		return nil, false
	}
	return s.classes[i], true
}

// Classes returns the held classes in key order. The returned slice is a copy.
func (s *State) Classes() []*metrics.EvaluatedClass {
	return slices.Clone(s.classes)
}

// NumOfClasses is the number of distinct classes in the partition.
func (s *State) NumOfClasses() int {
	return len(s.classes)
}

// Evaluation returns the sum of the contributions of all held classes.
func (s *State) Evaluation() float64 {
	return s.evaluation
}

// Policy reports which direction of the metric counts as better.
func (s *State) Policy() ComparisonPolicy {
	return s.policy
}

// IsBetterThan reports whether the evaluation beats threshold under the
// state's comparison policy.
func (s *State) IsBetterThan(threshold float64) bool {
	return s.policy.IsBetter(s.evaluation, threshold)
}

// Hash folds the class hashes in key order: h = 7h + classHash, from 0,
// with 64-bit wraparound.
func (s *State) Hash() int64 {
	var h int64
	for _, ec := range s.classes {
		h = (h << 3) - h + ec.Hash()
	}
	return h
}

// Snapshot summarises the state for reporting.
func (s *State) Snapshot() optimization.Snapshot {
	return optimization.Snapshot{
		Evaluation: s.evaluation,
		Hash:       s.Hash(),
		Classes:    len(s.classes),
		Direction:  s.policy.String(),
	}
}

// ShowClasses concatenates the compact rendering of every class.
func (s *State) ShowClasses() string {
	var b strings.Builder
	for _, ec := range s.classes {
		b.WriteString(ec.String())
	}
	return b.String()
}

// ShowDetails renders one detailed line per class.
func (s *State) ShowDetails() string {
	var b strings.Builder
	for _, ec := range s.classes {
		b.WriteString(ec.ShowDetails())
		b.WriteByte('\n')
	}
	return b.String()
}

func (s *State) String() string {
	if len(s.classes) == 0 {
		return "{}"
	}
	parts := make([]string, len(s.classes))
	for i, ec := range s.classes {
		parts[i] = ec.String()
	}
	return "{" + strings.Join(parts, "|") + "}"
}
