package game

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 is a 3D vector in world space. Y is up, Z is the throw axis.
type Vec3 = r3.Vec

// Forward is the projectile's facing at zero pitch and yaw.
var Forward = Vec3{X: 0, Y: 0, Z: 1}

// AimDirection returns the forward axis rotated by Euler(pitch, yaw, 0),
// angles in degrees. Positive pitch tilts the axis downward, positive yaw
// turns it toward +X.
func AimDirection(pitchDeg, yawDeg float64) Vec3 {
	p := pitchDeg * math.Pi / 180
	y := yawDeg * math.Pi / 180
	return Vec3{
		X: math.Cos(p) * math.Sin(y),
		Y: -math.Sin(p),
		Z: math.Cos(p) * math.Cos(y),
	}
}

// Distance returns the euclidean distance between a and b.
func Distance(a, b Vec3) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// horizontal drops the Y component.
func horizontal(v Vec3) Vec3 {
	return Vec3{X: v.X, Z: v.Z}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
