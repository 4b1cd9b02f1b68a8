package sim

import (
	"github.com/zeusync/grab/internal/core/spatial"
	"github.com/zeusync/grab/internal/core/systems/physics"
)

// BodyConfig describes a rigid body to attach.
type BodyConfig struct {
	Mass        float64
	UseGravity  bool
	Kinematic   bool
	Constraints physics.Constraints
	// Drag and AngularDrag are per-second velocity damping coefficients.
	Drag        float64
	AngularDrag float64
}

// DefaultBodyConfig mirrors a freshly added rigid body: unit mass, gravity on.
func DefaultBodyConfig() BodyConfig {
	return BodyConfig{Mass: 1, UseGravity: true, AngularDrag: 0.05}
}

// Body is the simulated rigid body.
type Body struct {
	world *World
	node  *spatial.Node
	cfg   BodyConfig

	velocity        spatial.Vec3
	angularVelocity spatial.Vec3
	force           spatial.Vec3
	torque          spatial.Vec3
	grounded        bool
}

var _ physics.Body = (*Body)(nil)

func (b *Body) Node() *spatial.Node                  { return b.node }
func (b *Body) Mass() float64                        { return b.cfg.Mass }
func (b *Body) Position() spatial.Vec3               { return b.node.Position() }
func (b *Body) Velocity() spatial.Vec3               { return b.velocity }
func (b *Body) AngularVelocity() spatial.Vec3        { return b.angularVelocity }
func (b *Body) UseGravity() bool                     { return b.cfg.UseGravity }
func (b *Body) SetUseGravity(v bool)                 { b.cfg.UseGravity = v }
func (b *Body) IsKinematic() bool                    { return b.cfg.Kinematic }
func (b *Body) SetKinematic(v bool)                  { b.cfg.Kinematic = v }
func (b *Body) Constraints() physics.Constraints     { return b.cfg.Constraints }
func (b *Body) SetConstraints(c physics.Constraints) { b.cfg.Constraints = c }

// Grounded reports whether the body rested on the floor during the last step.
func (b *Body) Grounded() bool { return b.grounded }

func (b *Body) SetVelocity(v spatial.Vec3) {
	b.velocity = freeze(v, b.cfg.Constraints, physics.FreezePositionX)
}

func (b *Body) SetAngularVelocity(w spatial.Vec3) {
	b.angularVelocity = freeze(w, b.cfg.Constraints, physics.FreezeRotationX)
}

func (b *Body) AddForce(f spatial.Vec3) {
	b.force = b.force.Add(f)
}

// AddForceAtPosition adds f and the torque it produces about the body's origin.
func (b *Body) AddForceAtPosition(f, point spatial.Vec3) {
	b.force = b.force.Add(f)
	b.torque = b.torque.Add(point.Sub(b.node.Position()).Cross(f))
}

func (b *Body) AddTorque(t spatial.Vec3) {
	b.torque = b.torque.Add(t)
}

// PendingForce returns the force accumulated since the last step.
func (b *Body) PendingForce() spatial.Vec3 { return b.force }

// inertia approximates the body as a solid sphere enclosing its colliders.
func (b *Body) inertia() float64 {
	r := 0.5
	if bounds, ok := physics.BoundsOf(b.node); ok {
		if l := bounds.Extents.Len(); l > spatial.Epsilon {
			r = l
		}
	}
	return 0.4 * b.cfg.Mass * r * r
}

func (b *Body) integrate(dt float64, gravity spatial.Vec3) {
	defer func() {
		b.force = spatial.Zero
		b.torque = spatial.Zero
	}()
	if b.cfg.Kinematic || b.node.IsDestroyed() {
		return
	}

	acc := b.force.Mul(1 / b.cfg.Mass)
	if b.cfg.UseGravity {
		acc = acc.Add(gravity)
	}
	b.SetVelocity(b.velocity.Add(acc.Mul(dt)).Mul(1 / (1 + b.cfg.Drag*dt)))
	b.SetAngularVelocity(b.angularVelocity.Add(b.torque.Mul(dt / b.inertia())).Mul(1 / (1 + b.cfg.AngularDrag*dt)))

	b.node.SetPosition(b.node.Position().Add(b.velocity.Mul(dt)))
	if w := b.angularVelocity.Len(); w > 1e-9 {
		step := spatial.AngleAxis(spatial.RadToDeg(w*dt), b.angularVelocity)
		b.node.SetRotation(step.Mul(b.node.Rotation()))
	}
}

// freeze zeroes the components of v whose flag is set; first is the X flag of the triple.
func freeze(v spatial.Vec3, c physics.Constraints, first physics.Constraints) spatial.Vec3 {
	for i := range 3 {
		if c&(first<<uint(i)) != 0 {
			v[i] = 0
		}
	}
	return v
}
