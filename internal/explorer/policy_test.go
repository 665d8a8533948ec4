package explorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type direction bool

func (d direction) ToBeMaximized() bool { return bool(d) }

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, MaximizeBetter, PolicyFor(direction(true)))
	assert.Equal(t, MinimizeBetter, PolicyFor(direction(false)))
}

func TestComparisonPolicyIsBetter(t *testing.T) {
	tests := []struct {
		name   string
		policy ComparisonPolicy
		a, b   float64
		want   bool
	}{
		{"maximize larger", MaximizeBetter, 2.0, 1.0, true},
		{"maximize smaller", MaximizeBetter, 1.0, 2.0, false},
		{"maximize equal", MaximizeBetter, 1.5, 1.5, false},
		{"maximize within epsilon", MaximizeBetter, 1.0 + 1e-11, 1.0, false},
		{"maximize beyond epsilon", MaximizeBetter, 1.0 + 1e-9, 1.0, true},
		{"minimize smaller", MinimizeBetter, 1.0, 2.0, true},
		{"minimize larger", MinimizeBetter, 2.0, 1.0, false},
		{"minimize equal", MinimizeBetter, 1.5, 1.5, false},
		{"minimize within epsilon", MinimizeBetter, 1.0 - 1e-11, 1.0, false},
		{"minimize beyond epsilon", MinimizeBetter, 1.0 - 1e-9, 1.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.IsBetter(tt.a, tt.b))
		})
	}
}

func TestComparisonPolicyString(t *testing.T) {
	assert.Equal(t, "maximize", MaximizeBetter.String())
	assert.Equal(t, "minimize", MinimizeBetter.String())
}
