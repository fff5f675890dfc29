package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionFromSlice(t *testing.T) {
	assert.Equal(t, Action{Pitch: 0.1, Yaw: -0.2, Force: 0.3}, ActionFromSlice([]float64{0.1, -0.2, 0.3}))
	assert.Equal(t, Action{Pitch: 0.5}, ActionFromSlice([]float64{0.5}))
	assert.Equal(t, Action{}, ActionFromSlice(nil))
	assert.Equal(t, []float64{1, 2, 3}, Action{Pitch: 1, Yaw: 2, Force: 3}.Slice())
}

func TestExternalPolicyConsumesOnce(t *testing.T) {
	p := NewExternalPolicy()
	_, ok := p.Decide(Observation{})
	assert.False(t, ok)

	p.Submit(Action{Force: 1})
	p.Submit(Action{Force: 0.5})
	a, ok := p.Decide(Observation{})
	assert.True(t, ok)
	assert.Equal(t, Action{Force: 0.5}, a, "latest submission wins")

	_, ok = p.Decide(Observation{})
	assert.False(t, ok)
}

func TestRandomPolicyRangesAndDeterminism(t *testing.T) {
	a, b := NewRandomPolicy(42), NewRandomPolicy(42)
	for i := 0; i < 100; i++ {
		x, ok := a.Decide(Observation{})
		assert.True(t, ok)
		y, _ := b.Decide(Observation{})
		assert.Equal(t, x, y)

		assert.GreaterOrEqual(t, x.Pitch, -1.0)
		assert.Less(t, x.Pitch, 1.0)
		assert.GreaterOrEqual(t, x.Yaw, -1.0)
		assert.Less(t, x.Yaw, 1.0)
		assert.GreaterOrEqual(t, x.Force, 0.0)
		assert.Less(t, x.Force, 1.0)
	}
}

func TestHeuristicPolicyWithoutController(t *testing.T) {
	_, ok := HeuristicPolicy{}.Decide(Observation{})
	assert.False(t, ok)
}
