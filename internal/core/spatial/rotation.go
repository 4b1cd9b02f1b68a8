package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Rotations follow the left-to-right composition of mgl64: a.Mul(b) applies b first.
// Euler angles are in degrees and applied in Z, X, Y order (roll, pitch, yaw).

// AngleAxis builds a rotation of deg degrees about axis.
func AngleAxis(deg float64, axis Vec3) Quat {
	if axis.LenSqr() < 1e-12 {
		return Identity()
	}
	return mgl64.QuatRotate(mgl64.DegToRad(deg), axis.Normalize())
}

// ToAngleAxis decomposes q into an angle in degrees within [0, 360) and a unit axis.
// A rotation with no angle reports the X axis.
func ToAngleAxis(q Quat) (float64, Vec3) {
	q = q.Normalize()
	w := mgl64.Clamp(q.W, -1, 1)
	angle := 2 * math.Acos(w)
	s := math.Sqrt(1 - w*w)
	if s < 1e-6 {
		return 0, Right
	}
	return mgl64.RadToDeg(angle), q.V.Mul(1 / s)
}

// Euler builds a rotation from angles about X, Y and Z in degrees.
func Euler(x, y, z float64) Quat {
	return AngleAxis(y, Up).Mul(AngleAxis(x, Right)).Mul(AngleAxis(z, Forward))
}

// EulerVec is Euler taking its angles from a vector.
func EulerVec(e Vec3) Quat { return Euler(e[0], e[1], e[2]) }

// Yaw returns the heading of q about the world up axis, in degrees.
func Yaw(q Quat) float64 {
	f := q.Rotate(Forward)
	if f[0]*f[0]+f[2]*f[2] < 1e-12 {
		return 0
	}
	return mgl64.RadToDeg(math.Atan2(f[0], f[2]))
}

// Slerp spherically interpolates along the shortest arc, t clamped to [0, 1].
func Slerp(a, b Quat, t float64) Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, Clamp01(t))
}

// Nlerp interpolates linearly along the shortest arc and normalizes, t clamped to [0, 1].
func Nlerp(a, b Quat, t float64) Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatNlerp(a, b, Clamp01(t))
}

// QuatAngle returns the angle between two rotations in degrees.
func QuatAngle(a, b Quat) float64 {
	d := math.Abs(a.Normalize().Dot(b.Normalize()))
	return mgl64.RadToDeg(2 * math.Acos(mgl64.Clamp(d, 0, 1)))
}

// FromToRotation returns the rotation taking direction from onto direction to.
func FromToRotation(from, to Vec3) Quat {
	if from.LenSqr() < 1e-12 || to.LenSqr() < 1e-12 {
		return Identity()
	}
	return mgl64.QuatBetweenVectors(from.Normalize(), to.Normalize())
}

// LookRotation returns the rotation whose forward (+Z) axis points along forward and whose
// up (+Y) axis lies in the plane of forward and up. Degenerate input yields Identity.
func LookRotation(forward, up Vec3) Quat {
	if forward.LenSqr() < 1e-12 {
		return Identity()
	}
	f := forward.Normalize()
	r := up.Cross(f)
	if r.LenSqr() < 1e-12 {
		return FromToRotation(Forward, f)
	}
	r = r.Normalize()
	u := f.Cross(r)
	m := mgl64.Mat4{
		r[0], r[1], r[2], 0,
		u[0], u[1], u[2], 0,
		f[0], f[1], f[2], 0,
		0, 0, 0, 1,
	}
	return mgl64.Mat4ToQuat(m).Normalize()
}

// ToEuler returns the X, Y and Z angles of q in degrees, each wrapped to [0, 360), such
// that Euler reproduces q. At ±90° pitch the roll is folded into the yaw.
func ToEuler(q Quat) Vec3 {
	m := q.Normalize().Mat4()
	sx := mgl64.Clamp(-m.At(1, 2), -1, 1)
	x := math.Asin(sx)
	var y, z float64
	if math.Abs(sx) < 1-1e-9 {
		y = math.Atan2(m.At(0, 2), m.At(2, 2))
		z = math.Atan2(m.At(1, 0), m.At(1, 1))
	} else {
		y = math.Atan2(-m.At(2, 0), m.At(0, 0))
	}
	return Vec3{wrapDegrees(mgl64.RadToDeg(x)), wrapDegrees(mgl64.RadToDeg(y)), wrapDegrees(mgl64.RadToDeg(z))}
}

func wrapDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg -= 360
	}
	return deg
}

// SignedAngle normalizes deg into (-180, 180].
func SignedAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}
