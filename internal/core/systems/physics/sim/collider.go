package sim

import (
	"math"

	"github.com/zeusync/grab/internal/core/spatial"
	"github.com/zeusync/grab/internal/core/systems/physics"
)

type shapeKind uint8

const (
	shapeSphere shapeKind = iota
	shapeBox
)

// ColliderOption customizes an attached collider.
type ColliderOption func(*Collider)

// WithLayer puts the collider on a collision layer.
func WithLayer(layer int) ColliderOption {
	return func(c *Collider) { c.layer = layer }
}

// WithCenter offsets the shape from the node origin, in node-local space.
func WithCenter(center spatial.Vec3) ColliderOption {
	return func(c *Collider) { c.center = center }
}

// AsTrigger makes the collider invisible to ray and overlap queries.
func AsTrigger() ColliderOption {
	return func(c *Collider) { c.trigger = true }
}

// Collider is a sphere or an oriented box attached to a node.
type Collider struct {
	node    *spatial.Node
	kind    shapeKind
	radius  float64
	half    spatial.Vec3
	center  spatial.Vec3
	layer   int
	trigger bool
	seq     uint64
}

var _ physics.Collider = (*Collider)(nil)

func (c *Collider) Node() *spatial.Node { return c.node }
func (c *Collider) Layer() int          { return c.layer }
func (c *Collider) IsTrigger() bool     { return c.trigger }

func (c *Collider) Body() (physics.Body, bool) { return physics.BodyOf(c.node) }

// IsSphere reports whether the shape is a sphere.
func (c *Collider) IsSphere() bool { return c.kind == shapeSphere }

func (c *Collider) worldCenter() spatial.Vec3 { return c.node.TransformPoint(c.center) }

func (c *Collider) worldRadius() float64 {
	return c.radius * spatial.MaxComponent(c.node.LossyScale())
}

func (c *Collider) Bounds() physics.Bounds {
	if c.kind == shapeSphere {
		r := c.worldRadius()
		return physics.Bounds{Center: c.worldCenter(), Extents: spatial.Vec3{r, r, r}}
	}
	rot := c.node.Rotation()
	he := spatial.Scale(c.half, absVec(c.node.LossyScale()))
	var ext spatial.Vec3
	for i := range 3 {
		var axis spatial.Vec3
		axis[i] = he[i]
		ext = ext.Add(absVec(rot.Rotate(axis)))
	}
	return physics.Bounds{Center: c.worldCenter(), Extents: ext}
}

// raycast returns the entry distance along a unit direction and the surface normal.
func (c *Collider) raycast(origin, dir spatial.Vec3, maxDistance float64) (float64, spatial.Vec3, bool) {
	if c.kind == shapeSphere {
		return raySphere(origin, dir, c.worldCenter(), c.worldRadius(), maxDistance)
	}
	return c.rayBox(origin, dir, maxDistance)
}

func raySphere(origin, dir, center spatial.Vec3, r, maxDistance float64) (float64, spatial.Vec3, bool) {
	oc := origin.Sub(center)
	b := oc.Dot(dir)
	cc := oc.Dot(oc) - r*r
	if cc <= 0 {
		// origin inside: queries ignore the containing shape
		return 0, spatial.Zero, false
	}
	disc := b*b - cc
	if disc < 0 {
		return 0, spatial.Zero, false
	}
	t := -b - math.Sqrt(disc)
	if t < 0 || t > maxDistance {
		return 0, spatial.Zero, false
	}
	p := origin.Add(dir.Mul(t))
	return t, spatial.Normalize(p.Sub(center)), true
}

func (c *Collider) rayBox(origin, dir spatial.Vec3, maxDistance float64) (float64, spatial.Vec3, bool) {
	scale := c.node.LossyScale()
	for i := range 3 {
		if math.Abs(scale[i]) < 1e-12 {
			return 0, spatial.Zero, false
		}
	}
	inv := c.node.Rotation().Inverse()
	lo := c.node.InverseTransformPoint(origin)
	ld := inv.Rotate(dir)
	for i := range 3 {
		ld[i] /= scale[i]
	}

	tmin, tmax := math.Inf(-1), math.Inf(1)
	axis, sign := -1, 0.0
	for i := range 3 {
		bmin, bmax := c.center[i]-c.half[i], c.center[i]+c.half[i]
		if math.Abs(ld[i]) < 1e-12 {
			if lo[i] < bmin || lo[i] > bmax {
				return 0, spatial.Zero, false
			}
			continue
		}
		t1, t2 := (bmin-lo[i])/ld[i], (bmax-lo[i])/ld[i]
		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1
		}
		if t1 > tmin {
			tmin, axis, sign = t1, i, s
		}
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, spatial.Zero, false
		}
	}
	if axis < 0 || tmin < 0 || tmin > maxDistance {
		return 0, spatial.Zero, false
	}
	var ln spatial.Vec3
	ln[axis] = sign / scale[axis]
	return tmin, spatial.Normalize(c.node.Rotation().Rotate(ln)), true
}

// overlapsSphere tests the shape against a world-space sphere.
func (c *Collider) overlapsSphere(center spatial.Vec3, r float64) bool {
	if c.kind == shapeSphere {
		return spatial.Distance(center, c.worldCenter()) <= r+c.worldRadius()
	}
	local := c.node.InverseTransformPoint(center)
	var closest spatial.Vec3
	for i := range 3 {
		closest[i] = math.Max(c.center[i]-c.half[i], math.Min(local[i], c.center[i]+c.half[i]))
	}
	return spatial.Distance(c.node.TransformPoint(closest), center) <= r
}

func absVec(v spatial.Vec3) spatial.Vec3 {
	return spatial.Vec3{math.Abs(v[0]), math.Abs(v[1]), math.Abs(v[2])}
}
