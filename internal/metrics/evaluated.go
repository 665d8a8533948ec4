// Package metrics defines the quality-metric contract used to score
// candidate classes and the pre-scored EvaluatedClass values it produces.
package metrics

import (
	"fmt"
	"strings"

	"github.com/copyleftdev/crat/internal/system"
)

// EvaluatedClass is an immutable, scored class. Its hash is the content
// hash of the membership; two values with equal hashes are treated as the
// same class.
type EvaluatedClass struct {
	class        system.Class
	hash         int64
	contribution float64
}

// NewEvaluatedClass records contribution as hc's share of the total score.
func NewEvaluatedClass(hc system.HashedClass, contribution float64) *EvaluatedClass {
	return &EvaluatedClass{
		class:        hc.Class,
		hash:         hc.Hash,
		contribution: contribution,
	}
}

func (e *EvaluatedClass) Hash() int64 { return e.hash }

func (e *EvaluatedClass) ClassID() int { return e.class.ID }

func (e *EvaluatedClass) Name() string { return e.class.Name }

func (e *EvaluatedClass) Contribution() float64 { return e.contribution }

func (e *EvaluatedClass) Size() int { return e.class.Size() }

// Entities returns the member ids. The slice must not be modified.
func (e *EvaluatedClass) Entities() system.EntitySet { return e.class.Entities }

// Contains reports whether entity id is a member of the class.
func (e *EvaluatedClass) Contains(id int) bool {
	return e.class.Entities.Contains(id)
}

// ContainsAll reports whether the class is a superset of entities.
func (e *EvaluatedClass) ContainsAll(entities system.EntitySet) bool {
	return e.class.Entities.ContainsAll(entities)
}

// String renders the class compactly, e.g. "Order[1,2,5]".
func (e *EvaluatedClass) String() string {
	return e.class.String()
}

// ShowDetails renders id, hash, contribution and members on one line.
func (e *EvaluatedClass) ShowDetails() string {
	var b strings.Builder
	fmt.Fprintf(&b, "class=%d", e.class.ID)
	if e.class.Name != "" {
		fmt.Fprintf(&b, " name=%s", e.class.Name)
	}
	fmt.Fprintf(&b, " hash=%d contribution=%.6f entities=%s", e.hash, e.contribution, e.class.Entities)
	return b.String()
}
