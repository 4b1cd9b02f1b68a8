package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 and Quat are the math types shared by every package that touches the scene.
type (
	Vec2 = mgl64.Vec2
	Vec3 = mgl64.Vec3
	Quat = mgl64.Quat
)

// Epsilon is the tolerance used for "effectively zero" checks on lengths and scales.
const Epsilon = 1e-4

var (
	Zero    = Vec3{}
	One     = Vec3{1, 1, 1}
	Up      = Vec3{0, 1, 0}
	Right   = Vec3{1, 0, 0}
	Forward = Vec3{0, 0, 1}
)

// Identity returns the identity rotation.
func Identity() Quat { return mgl64.QuatIdent() }

// Distance computes the Euclidean distance between two points.
func Distance(a, b Vec3) float64 { return b.Sub(a).Len() }

// Clamp01 clamps t to [0, 1].
func Clamp01(t float64) float64 { return mgl64.Clamp(t, 0, 1) }

// InverseLerp returns where v lies between a and b, clamped to [0, 1].
func InverseLerp(a, b, v float64) float64 {
	if a == b {
		return 0
	}
	return Clamp01((v - a) / (b - a))
}

// Lerp linearly interpolates between two points, t clamped to [0, 1].
func Lerp(a, b Vec3, t float64) Vec3 {
	return a.Add(b.Sub(a).Mul(Clamp01(t)))
}

// Normalize returns v scaled to unit length, or Zero for degenerate input.
func Normalize(v Vec3) Vec3 {
	l := v.Len()
	if l < 1e-9 {
		return Zero
	}
	return v.Mul(1 / l)
}

// Project projects v onto the direction of onto.
func Project(v, onto Vec3) Vec3 {
	l := onto.LenSqr()
	if l < Epsilon*Epsilon {
		return Zero
	}
	return onto.Mul(v.Dot(onto) / l)
}

// ProjectOnPlane removes the component of v along normal.
func ProjectOnPlane(v, normal Vec3) Vec3 {
	return v.Sub(Project(v, normal))
}

// Angle returns the unsigned angle between two vectors, in degrees.
func Angle(a, b Vec3) float64 {
	denom := math.Sqrt(a.LenSqr() * b.LenSqr())
	if denom < 1e-15 {
		return 0
	}
	return mgl64.RadToDeg(math.Acos(mgl64.Clamp(a.Dot(b)/denom, -1, 1)))
}

// Scale multiplies two vectors component-wise.
func Scale(a, b Vec3) Vec3 {
	return Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// SlerpVec spherically interpolates between two vectors, treating them as directions
// and interpolating their magnitudes linearly.
func SlerpVec(a, b Vec3, t float64) Vec3 {
	t = Clamp01(t)
	la, lb := a.Len(), b.Len()
	if la < 1e-9 || lb < 1e-9 {
		return Lerp(a, b, t)
	}
	na, nb := a.Mul(1/la), b.Mul(1/lb)
	angle := math.Acos(mgl64.Clamp(na.Dot(nb), -1, 1))
	if angle < 1e-6 {
		return Lerp(a, b, t)
	}
	axis := na.Cross(nb)
	if axis.LenSqr() < 1e-12 {
		// antiparallel: any perpendicular axis will do
		axis = na.Cross(Up)
		if axis.LenSqr() < 1e-12 {
			axis = na.Cross(Right)
		}
	}
	dir := mgl64.QuatRotate(angle*t, axis.Normalize()).Rotate(na)
	return dir.Mul(la + (lb-la)*t)
}

func DegToRad(deg float64) float64 { return mgl64.DegToRad(deg) }
func RadToDeg(rad float64) float64 { return mgl64.RadToDeg(rad) }

// MaxComponent returns the largest absolute component of v.
func MaxComponent(v Vec3) float64 {
	return math.Max(math.Abs(v[0]), math.Max(math.Abs(v[1]), math.Abs(v[2])))
}
