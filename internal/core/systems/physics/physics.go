package physics

import (
	"math"

	"github.com/zeusync/grab/internal/core/spatial"
)

// LayerMask is a bit set of collision layers.
type LayerMask uint32

// Well-known layers.
const (
	LayerDefault       = 0
	LayerTransparentFX = 1
	LayerIgnoreRaycast = 2
	LayerWater         = 4
	LayerUI            = 5
)

// DefaultIgnoreLayers skips the layers that never take part in manipulation queries.
var DefaultIgnoreLayers = Layers(LayerTransparentFX, LayerIgnoreRaycast, LayerWater, LayerUI)

// Layers builds a mask from layer indices.
func Layers(layers ...int) LayerMask {
	var m LayerMask
	for _, l := range layers {
		if l >= 0 && l < 32 {
			m |= 1 << uint(l)
		}
	}
	return m
}

// Contains reports whether layer is part of the mask.
func (m LayerMask) Contains(layer int) bool {
	return layer >= 0 && layer < 32 && m&(1<<uint(layer)) != 0
}

// Constraints freeze individual degrees of freedom of a body.
type Constraints uint8

const (
	FreezePositionX Constraints = 1 << iota
	FreezePositionY
	FreezePositionZ
	FreezeRotationX
	FreezeRotationY
	FreezeRotationZ

	FreezePosition = FreezePositionX | FreezePositionY | FreezePositionZ
	FreezeRotation = FreezeRotationX | FreezeRotationY | FreezeRotationZ
	FreezeAll      = FreezePosition | FreezeRotation
)

// Has reports whether every flag in c is set.
func (c Constraints) Has(flags Constraints) bool { return c&flags == flags }

// Any reports whether at least one flag in c is set.
func (c Constraints) Any(flags Constraints) bool { return c&flags != 0 }

// Hit describes a ray cast result.
type Hit struct {
	Point    spatial.Vec3
	Normal   spatial.Vec3
	Distance float64
	Collider Collider
}

// Bounds is an axis aligned bounding box.
type Bounds struct {
	Center  spatial.Vec3
	Extents spatial.Vec3
}

// NewBounds creates bounds from centre and full size.
func NewBounds(center, size spatial.Vec3) Bounds {
	return Bounds{Center: center, Extents: size.Mul(0.5)}
}

func (b Bounds) Min() spatial.Vec3  { return b.Center.Sub(b.Extents) }
func (b Bounds) Max() spatial.Vec3  { return b.Center.Add(b.Extents) }
func (b Bounds) Size() spatial.Vec3 { return b.Extents.Mul(2) }

// Encapsulate grows b to include o.
func (b Bounds) Encapsulate(o Bounds) Bounds {
	bmin, bmax := b.Min(), b.Max()
	omin, omax := o.Min(), o.Max()
	var lo, hi spatial.Vec3
	for i := range 3 {
		lo[i] = math.Min(bmin[i], omin[i])
		hi[i] = math.Max(bmax[i], omax[i])
	}
	return Bounds{Center: lo.Add(hi).Mul(0.5), Extents: hi.Sub(lo).Mul(0.5)}
}

// Intersects reports whether two boxes overlap.
func (b Bounds) Intersects(o Bounds) bool {
	bmin, bmax := b.Min(), b.Max()
	omin, omax := o.Min(), o.Max()
	for i := range 3 {
		if bmax[i] < omin[i] || omax[i] < bmin[i] {
			return false
		}
	}
	return true
}

// MaxExtents returns the component-wise maximum of two extents.
func MaxExtents(a, b spatial.Vec3) spatial.Vec3 {
	return spatial.Vec3{math.Max(a[0], b[0]), math.Max(a[1], b[1]), math.Max(a[2], b[2])}
}

// BodyOf returns the body attached to node or to its closest ancestor.
func BodyOf(node *spatial.Node) (Body, bool) {
	if node == nil {
		return nil, false
	}
	return spatial.ComponentInParent[Body](node)
}

// CollidersIn returns the colliders attached to node and its descendants.
func CollidersIn(node *spatial.Node) []Collider {
	if node == nil {
		return nil
	}
	return spatial.ComponentsInChildren[Collider](node)
}

// BoundsOf encapsulates the bounds of every collider below node. ok is false when there is none.
func BoundsOf(node *spatial.Node) (b Bounds, ok bool) {
	for _, c := range CollidersIn(node) {
		if !ok {
			b, ok = c.Bounds(), true
			continue
		}
		b = b.Encapsulate(c.Bounds())
	}
	return b, ok
}
