package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func previewParams() TrajectoryParams {
	return TrajectoryParams{
		Direction:      AimDirection(0, 0),
		Force:          1,
		Mass:           0.5,
		Origin:         Vec3{X: 0, Y: 1.1, Z: -1.2},
		Gravity:        Vec3{Y: -9.81},
		Segments:       20,
		ShowPercentage: 50,
		TickDuration:   0.02,
		Visible:        true,
	}
}

func TestPointCount(t *testing.T) {
	p := previewParams()
	assert.Equal(t, 10, PointCount(p))

	p.ShowPercentage = 100
	assert.Equal(t, 20, PointCount(p))

	p.ShowPercentage = 33
	assert.Equal(t, 6, PointCount(p), "integer division")

	hidden := previewParams()
	hidden.Visible = false
	assert.Equal(t, 0, PointCount(hidden))

	noMass := previewParams()
	noMass.Mass = 0
	assert.Equal(t, 0, PointCount(noMass))

	noSegments := previewParams()
	noSegments.Segments = 0
	assert.Equal(t, 0, PointCount(noSegments))
}

func TestPredictStartsAtOrigin(t *testing.T) {
	p := previewParams()
	points := CollectTrajectory(p)
	require.Len(t, points, 10)
	assert.Equal(t, p.Origin, points[0])

	// Forward throw: Z grows, gravity pulls Y down.
	for i := 1; i < len(points); i++ {
		assert.Greater(t, points[i].Z, points[i-1].Z)
		assert.Less(t, points[i].Y, points[i-1].Y)
		assert.InDelta(t, 0, points[i].X, 1e-12)
	}
}

func TestPredictSampleFormula(t *testing.T) {
	p := previewParams()
	points := CollectTrajectory(p)
	require.Len(t, points, 10)

	// t = 3/20; launch term is (force/mass)*t*tick, gravity term is g*t²/2.
	ti := 3.0 / 20
	want := Vec3{
		X: 0,
		Y: 1.1 + (-9.81)*ti*ti/2,
		Z: -1.2 + (1/0.5)*ti*0.02,
	}
	assert.InDelta(t, want.Y, points[3].Y, 1e-12)
	assert.InDelta(t, want.Z, points[3].Z, 1e-12)
}

func TestPredictStopsEarly(t *testing.T) {
	n := 0
	for range Predict(previewParams()) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestPredictHiddenYieldsNothing(t *testing.T) {
	p := previewParams()
	p.Visible = false
	assert.Empty(t, CollectTrajectory(p))
}
