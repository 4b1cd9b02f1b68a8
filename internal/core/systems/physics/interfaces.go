package physics

import "github.com/zeusync/grab/internal/core/spatial"

// Body is a dynamics body attached to a scene node. Forces accumulate until the next
// simulation step.
type Body interface {
	Node() *spatial.Node
	Mass() float64
	Position() spatial.Vec3

	Velocity() spatial.Vec3
	SetVelocity(v spatial.Vec3)
	// AngularVelocity is in radians per second, world space.
	AngularVelocity() spatial.Vec3
	SetAngularVelocity(w spatial.Vec3)

	UseGravity() bool
	SetUseGravity(bool)
	IsKinematic() bool
	SetKinematic(bool)
	Constraints() Constraints

	AddForce(f spatial.Vec3)
	AddForceAtPosition(f, point spatial.Vec3)
	AddTorque(t spatial.Vec3)
}

// Collider is a collision shape attached to a scene node.
type Collider interface {
	Node() *spatial.Node
	Layer() int
	IsTrigger() bool
	// Bounds is the world-space axis aligned box enclosing the shape.
	Bounds() Bounds
	// Body returns the body the collider moves with, if any.
	Body() (Body, bool)
}

// Query is the collision-query side of a physics engine.
type Query interface {
	// Raycast returns the closest non-trigger hit along direction within maxDistance,
	// skipping colliders on layers in ignore.
	Raycast(origin, direction spatial.Vec3, maxDistance float64, ignore LayerMask) (Hit, bool)
	// OverlapSphere returns the non-trigger colliders intersecting the sphere.
	OverlapSphere(center spatial.Vec3, radius float64, ignore LayerMask) []Collider
}

// World is a physics engine a scene can be simulated in.
type World interface {
	Query
	Gravity() spatial.Vec3
	FixedDeltaTime() float64
	// Step integrates every body by dt seconds and clears accumulated forces.
	Step(dt float64)
}
