package explorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/crat/internal/metrics"
	"github.com/copyleftdev/crat/internal/system"
)

// stubMetric scores classes from fixed tables keyed by class id. A class
// with an entry in hashes gets that hash instead of its content hash.
type stubMetric struct {
	maximize      bool
	contributions map[int]float64
	hashes        map[int]int64
	calls         int
}

func (m *stubMetric) Name() string { return "stub" }

func (m *stubMetric) ToBeMaximized() bool { return m.maximize }

func (m *stubMetric) Evaluate(hc system.HashedClass) *metrics.EvaluatedClass {
	m.calls++
	if h, ok := m.hashes[hc.ID]; ok {
		hc.Hash = h
	}
	return metrics.NewEvaluatedClass(hc, m.contributions[hc.ID])
}

func evaluated(id int, hash int64, contribution float64, entities ...int) *metrics.EvaluatedClass {
	return metrics.NewEvaluatedClass(system.HashedClass{
		Class: system.Class{ID: id, Name: "", Entities: system.NewEntitySet(entities...)},
		Hash:  hash,
	}, contribution)
}

func TestEvaluationIsSumOfContributions(t *testing.T) {
	m := &stubMetric{}
	classes := []*metrics.EvaluatedClass{
		evaluated(1, 30, 0.5, 1),
		evaluated(2, 10, 1.25, 2, 3),
		evaluated(3, 20, 2.0, 4),
	}

	s := NewStateFromEvaluatedClasses(classes, m)

	assert.Equal(t, 3.75, s.Evaluation())
	assert.Equal(t, 3, s.NumOfClasses())
	assert.Zero(t, m.calls, "pre-evaluated classes must not be re-evaluated")
}

func TestHashIsIndependentOfInsertionOrder(t *testing.T) {
	m := &stubMetric{}
	a := evaluated(1, 100, 1, 1)
	b := evaluated(2, -5, 1, 2)
	c := evaluated(3, 42, 1, 3)

	forward := NewStateFromEvaluatedClasses([]*metrics.EvaluatedClass{a, b, c}, m)
	backward := NewStateFromEvaluatedClasses([]*metrics.EvaluatedClass{c, b, a}, m)

	assert.Equal(t, forward.Hash(), backward.Hash())
	assert.Equal(t, forward.String(), backward.String())
}

func TestHashRecurrence(t *testing.T) {
	m := &stubMetric{}

	t.Run("two classes", func(t *testing.T) {
		s := NewStateFromEvaluatedClasses([]*metrics.EvaluatedClass{
			evaluated(2, 20, 0, 2),
			evaluated(1, 10, 0, 1),
		}, m)
		assert.Equal(t, int64(7*10+20), s.Hash())
	})

	t.Run("three classes", func(t *testing.T) {
		s := NewStateFromEvaluatedClasses([]*metrics.EvaluatedClass{
			evaluated(1, 3, 0, 1),
			evaluated(2, 1, 0, 2),
			evaluated(3, 2, 0, 3),
		}, m)
		assert.Equal(t, int64(7*(7*1+2)+3), s.Hash())
	})

	t.Run("wraps around", func(t *testing.T) {
		h1, h2 := int64(1)<<61, int64(1)<<62
		s := NewStateFromEvaluatedClasses([]*metrics.EvaluatedClass{
			evaluated(1, h1, 0, 1),
			evaluated(2, h2, 0, 2),
		}, m)
		assert.Equal(t, 7*h1+h2, s.Hash())
	})

	t.Run("empty state", func(t *testing.T) {
		assert.Zero(t, NewStateFromEvaluatedClasses(nil, m).Hash())
	})
}

func TestNewStateFromCaseSkipsEmptyClasses(t *testing.T) {
	c := system.NewCase("demo", nil, []system.Class{
		{ID: 1, Name: "A", Entities: system.NewEntitySet(1, 2)},
		{ID: 2, Name: "Empty"},
		{ID: 3, Name: "B", Entities: system.NewEntitySet(3)},
	})
	m := &stubMetric{contributions: map[int]float64{1: 1.0, 3: 2.0}}

	s := NewStateFromCase(c, m)

	assert.Equal(t, 2, s.NumOfClasses())
	assert.Equal(t, 2, m.calls)
	assert.Equal(t, 3.0, s.Evaluation())
	_, found := s.FindByClassID(2)
	assert.False(t, found)
}

func TestNewStateFromEvaluatedClassesSkipsEmptyAndNil(t *testing.T) {
	s := NewStateFromEvaluatedClasses([]*metrics.EvaluatedClass{
		evaluated(1, 1, 1, 1),
		nil,
		evaluated(2, 0, 5),
	}, &stubMetric{})

	assert.Equal(t, 1, s.NumOfClasses())
	assert.Equal(t, 1.0, s.Evaluation())
}

func TestNewStateFromEvaluated(t *testing.T) {
	m := &stubMetric{maximize: true}
	s := NewStateFromEvaluated(evaluated(4, 9, 0.75, 7, 8), m)

	assert.Equal(t, 1, s.NumOfClasses())
	assert.Equal(t, 0.75, s.Evaluation())
	assert.Equal(t, int64(9), s.Hash())
	assert.Equal(t, MaximizeBetter, s.Policy())
	assert.Zero(t, m.calls)
}

func TestNewStateFromClass(t *testing.T) {
	m := &stubMetric{contributions: map[int]float64{5: 1.5}}
	cl := system.Class{ID: 5, Name: "Order", Entities: system.NewEntitySet(3, 1)}

	s := NewStateFromClass(cl, m)

	require.Equal(t, 1, s.NumOfClasses())
	assert.Equal(t, 1, m.calls)
	assert.Equal(t, 1.5, s.Evaluation())
	assert.Equal(t, cl.Entities.Hash(), s.Hash())

	empty := NewStateFromClass(system.Class{ID: 6}, m)
	assert.Zero(t, empty.NumOfClasses())
	assert.Equal(t, 1, m.calls, "empty classes are not evaluated")
}

func TestClassIDsAreUnique(t *testing.T) {
	m := &stubMetric{}

	t.Run("same id keeps the last class", func(t *testing.T) {
		s := NewStateFromEvaluatedClasses([]*metrics.EvaluatedClass{
			evaluated(1, 10, 1, 1),
			evaluated(1, 11, 2, 1, 2),
		}, m)
		require.Equal(t, 1, s.NumOfClasses())
		assert.Equal(t, 2.0, s.Evaluation())
		assert.Equal(t, int64(11), s.Hash())
	})

	t.Run("colliding hashes keep both classes", func(t *testing.T) {
		s := NewStateFromEvaluatedClasses([]*metrics.EvaluatedClass{
			evaluated(2, 10, 1, 3),
			evaluated(1, 10, 2, 1, 2),
		}, m)
		require.Equal(t, 2, s.NumOfClasses())
		assert.Equal(t, 3.0, s.Evaluation())
		classes := s.Classes()
		assert.Equal(t, 1, classes[0].ClassID())
		assert.Equal(t, 2, classes[1].ClassID())
		assert.Equal(t, int64(7*10+10), s.Hash())
	})
}

func TestCloneIsIndependent(t *testing.T) {
	m := &stubMetric{}
	original := NewStateFromEvaluatedClasses([]*metrics.EvaluatedClass{
		evaluated(1, 10, 1.0, 1, 2),
		evaluated(2, 20, 2.0, 3, 4),
	}, m)

	clone := original.Clone()
	assert.Equal(t, original.Evaluation(), clone.Evaluation())
	assert.Equal(t, original.Hash(), clone.Hash())
	assert.Equal(t, original.Classes(), clone.Classes())
	assert.Equal(t, original.Policy(), clone.Policy())

	hash, eval := clone.Hash(), clone.Evaluation()
	changed := clone.Derive(nil, evaluated(2, 30, 5.0, 3))
	assert.NotEqual(t, hash, changed.Hash())
	assert.Equal(t, hash, clone.Hash())
	assert.Equal(t, eval, clone.Evaluation())
	assert.Equal(t, hash, original.Hash())

	classes := clone.Classes()
	classes[0] = nil
	assert.NotNil(t, clone.Classes()[0], "Classes must return a copy")
}

func TestDerive(t *testing.T) {
	m := &stubMetric{}
	parent := NewStateFromEvaluatedClasses([]*metrics.EvaluatedClass{
		evaluated(1, 10, 1.0, 1, 2),
		evaluated(2, 20, 2.0, 3, 4),
		evaluated(3, 30, 4.0, 5),
	}, m)

	// Entity 5 moves from class 3 into class 2; class 3 becomes empty.
	child := parent.Derive([]int{3}, evaluated(2, 25, 1.5, 3, 4, 5), evaluated(3, 0, 0))

	assert.Equal(t, 2, child.NumOfClasses())
	assert.Equal(t, 2.5, child.Evaluation())
	ec, found := child.FindByEntity(5)
	require.True(t, found)
	assert.Equal(t, 2, ec.ClassID())

	assert.Equal(t, 3, parent.NumOfClasses())
	assert.Equal(t, 7.0, parent.Evaluation())
}

func TestFindEvaluatedClass(t *testing.T) {
	m := &stubMetric{}
	low := evaluated(7, 10, 0, 1, 2)
	high := evaluated(8, 20, 0, 3, 4)
	s := NewStateFromEvaluatedClasses([]*metrics.EvaluatedClass{high, low}, m)

	t.Run("by entity", func(t *testing.T) {
		ec, found := s.FindByEntity(3)
		require.True(t, found)
		assert.Same(t, high, ec)

		ec, found = s.FindByEntity(99)
		assert.False(t, found)
		assert.Nil(t, ec)
	})

	t.Run("by class id", func(t *testing.T) {
		ec, found := s.FindByClassID(7)
		require.True(t, found)
		assert.Same(t, low, ec)

		_, found = s.FindByClassID(1)
		assert.False(t, found)
	})

	t.Run("by entity set", func(t *testing.T) {
		ec, found := s.FindByEntities(system.NewEntitySet(4, 3))
		require.True(t, found)
		assert.Same(t, high, ec)

		_, found = s.FindByEntities(system.NewEntitySet(2, 3))
		assert.False(t, found)
	})

	t.Run("by hash", func(t *testing.T) {
		ec, found := s.FindByHash(20)
		require.True(t, found)
		assert.Same(t, high, ec)

		_, found = s.FindByHash(15)
		assert.False(t, found)
	})
}

func TestRendering(t *testing.T) {
	m := &stubMetric{}
	s := NewStateFromEvaluatedClasses([]*metrics.EvaluatedClass{
		metrics.NewEvaluatedClass(system.HashedClass{
			Class: system.Class{ID: 2, Name: "B", Entities: system.NewEntitySet(3)},
			Hash:  20,
		}, 0.5),
		metrics.NewEvaluatedClass(system.HashedClass{
			Class: system.Class{ID: 1, Name: "A", Entities: system.NewEntitySet(2, 1)},
			Hash:  10,
		}, 1),
	}, m)

	assert.Equal(t, "{A[1,2]|B[3]}", s.String())
	assert.Equal(t, "A[1,2]B[3]", s.ShowClasses())
	assert.Equal(t,
		"class=1 name=A hash=10 contribution=1.000000 entities=[1,2]\n"+
			"class=2 name=B hash=20 contribution=0.500000 entities=[3]\n",
		s.ShowDetails())
	assert.Equal(t, "{}", NewStateFromEvaluatedClasses(nil, m).String())
}

func TestSnapshot(t *testing.T) {
	s := NewStateFromEvaluated(evaluated(1, 4, 2.5, 1), &stubMetric{maximize: true})

	snap := s.Snapshot()
	assert.Equal(t, 2.5, snap.Evaluation)
	assert.Equal(t, int64(4), snap.Hash)
	assert.Equal(t, 1, snap.Classes)
	assert.Equal(t, "maximize", snap.Direction)
}

func TestIsBetterThanFollowsMetricDirection(t *testing.T) {
	classes := []*metrics.EvaluatedClass{evaluated(1, 1, 2.0, 1)}
	maxState := NewStateFromEvaluatedClasses(classes, &stubMetric{maximize: true})
	minState := NewStateFromEvaluatedClasses(classes, &stubMetric{maximize: false})

	assert.True(t, maxState.IsBetterThan(1.0))
	assert.False(t, maxState.IsBetterThan(3.0))
	assert.False(t, maxState.IsBetterThan(2.0))

	assert.True(t, minState.IsBetterThan(3.0))
	assert.False(t, minState.IsBetterThan(1.0))
	assert.False(t, minState.IsBetterThan(2.0))
}

func TestEndToEndMinimize(t *testing.T) {
	c := system.NewCase("scenario", nil, []system.Class{
		{ID: 1, Name: "First", Entities: system.NewEntitySet(1, 2)},
		{ID: 2, Name: "Second", Entities: system.NewEntitySet(3)},
	})
	m := &stubMetric{
		contributions: map[int]float64{1: 2.5, 2: 1.5},
		hashes:        map[int]int64{1: 10, 2: 20},
	}

	s := NewStateFromCase(c, m)

	assert.Equal(t, 4.0, s.Evaluation())
	assert.Equal(t, int64(90), s.Hash())
	assert.True(t, s.IsBetterThan(5.0))
	assert.False(t, s.IsBetterThan(3.9))
}

func TestHashDistinguishesPartitions(t *testing.T) {
	m := &stubMetric{}
	build := func(classes ...system.Class) *State {
		return NewStateFromCase(system.NewCase("moves", nil, classes), m)
	}

	tests := []struct {
		name string
		a, b *State
	}{
		{
			"entity 0 moves between classes",
			build(
				system.Class{ID: 1, Entities: system.NewEntitySet(0, 1)},
				system.Class{ID: 2, Entities: system.NewEntitySet(2)},
			),
			build(
				system.Class{ID: 1, Entities: system.NewEntitySet(1)},
				system.Class{ID: 2, Entities: system.NewEntitySet(0, 2)},
			),
		},
		{
			"entity 0 split out",
			build(system.Class{ID: 1, Entities: system.NewEntitySet(0, 1)}),
			build(
				system.Class{ID: 1, Entities: system.NewEntitySet(1)},
				system.Class{ID: 2, Entities: system.NewEntitySet(0)},
			),
		},
		{
			"different two-member classes",
			build(system.Class{ID: 1, Entities: system.NewEntitySet(1, 40)}),
			build(system.Class{ID: 1, Entities: system.NewEntitySet(2, 9)}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, tt.a.Hash(), tt.b.Hash(), "%s vs %s", tt.a, tt.b)
		})
	}
}
