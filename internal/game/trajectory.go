package game

import (
	"iter"

	"gonum.org/v1/gonum/spatial/r3"
)

// TrajectoryParams describes a pending throw for the preview line.
type TrajectoryParams struct {
	Direction      Vec3
	Force          float64
	Mass           float64
	Origin         Vec3
	Gravity        Vec3
	Segments       int
	ShowPercentage int     // share of one flight-time unit drawn, 0..100
	TickDuration   float64 // fixed physics step
	Visible        bool
}

// PointCount is the number of samples Predict yields for p.
func PointCount(p TrajectoryParams) int {
	if !p.Visible || p.Segments <= 0 || p.Mass <= 0 || p.ShowPercentage <= 0 {
		return 0
	}
	return p.Segments * p.ShowPercentage / 100
}

// Predict yields the preview positions for p, starting at p.Origin.
//
// Sample i sits at t = i/Segments. The launch term is the instantaneous
// velocity scaled by one tick and the gravity term uses t², which is not true
// projectile motion; clients draw this exact curve, so keep it.
func Predict(p TrajectoryParams) iter.Seq[Vec3] {
	n := PointCount(p)
	return func(yield func(Vec3) bool) {
		if n == 0 {
			return
		}
		dt := 1.0 / float64(p.Segments)
		accel := r3.Scale(p.Force/p.Mass, p.Direction)
		for i := 0; i < n; i++ {
			t := dt * float64(i)
			v := r3.Scale(t, accel)
			pos := r3.Add(p.Origin, r3.Scale(p.TickDuration, v))
			pos = r3.Add(pos, r3.Scale(t*t/2, p.Gravity))
			if !yield(pos) {
				return
			}
		}
	}
}

// CollectTrajectory materialises Predict for sinks that need a slice.
func CollectTrajectory(p TrajectoryParams) []Vec3 {
	points := make([]Vec3, 0, PointCount(p))
	for pt := range Predict(p) {
		points = append(points, pt)
	}
	return points
}

// PreviewSink receives the trajectory preview. Implementations are purely
// advisory and never feed back into the controller.
type PreviewSink interface {
	SetVisible(visible bool)
	Draw(points []Vec3)
}

// NopPreview discards the preview.
type NopPreview struct{}

func (NopPreview) SetVisible(bool) {}
func (NopPreview) Draw([]Vec3)     {}
