package manipulables

import (
	"github.com/zeusync/grab/internal/core/interaction"
	"github.com/zeusync/grab/internal/core/spatial"
	"github.com/zeusync/grab/internal/core/systems/physics"
)

const baseRotateTorque = 0.2

// Movable is a Positionable that also turns with the manipulator.
type Movable struct {
	*Positionable
	preserveYaw  bool
	neutral      spatial.Vec3
	releaseDelta spatial.Quat
}

func newMovable(c config) *Movable {
	return &Movable{
		Positionable: newPositionable(c),
		preserveYaw:  c.preserveYaw,
		neutral:      c.neutral,
		releaseDelta: spatial.Identity(),
	}
}

func NewMovable(s *interaction.Session, node *spatial.Node, opts ...Option) *Movable {
	c := newConfig(opts)
	x := newMovable(c)
	x.Manipulable = interaction.NewManipulable(s, node, x, c.manipulable...)
	if x.resolveBody() && x.body.Constraints().Any(physics.FreezeRotationY) {
		x.Log().Warn("body is rotation constrained about Y and cannot turn with manipulators")
	}
	return x
}

func (x *Movable) NeutralRotation() spatial.Vec3 { return x.neutral }

// OffsetEulers is the target's rotation relative to actor when yaw is preserved.
func (x *Movable) OffsetEulers(actor *interaction.Manipulator) spatial.Vec3 {
	if !x.preserveYaw {
		return spatial.Zero
	}
	return spatial.ToEuler(x.Target().Rotation()).Sub(spatial.ToEuler(actor.Node().Rotation()))
}

func (x *Movable) InitializeManipulation(m *interaction.Manipulation) {
	x.Positionable.InitializeManipulation(m)
	x.releaseDelta = spatial.Identity()
	if x.body != nil {
		w := x.body.AngularVelocity()
		x.releaseDelta = spatial.AngleAxis(spatial.RadToDeg(w.Len())*x.Session().FixedDeltaTime(), w)
	}
}

func (x *Movable) PerformManipulation(m *interaction.Manipulation) {
	x.Positionable.PerformManipulation(m)
	actor := m.Manipulator()
	if actor.Strength() <= 0 {
		return
	}
	target := x.Target()
	old := target.Rotation()
	goal := actor.TargetRotationOffset().Mul(spatial.EulerVec(x.neutral))
	target.SetRotation(spatial.Slerp(old, goal, baseRotateTorque*actor.Strength()))
	delta := old.Inverse().Mul(target.Rotation())
	x.releaseDelta = spatial.Slerp(x.releaseDelta, delta, 0.05)

	if x.body != nil {
		damp := 1 - baseDampingFactor*2*baseRotateTorque*actor.Strength()
		x.body.SetAngularVelocity(x.body.AngularVelocity().Mul(damp))
	}
}

// FinalizeManipulation hands the estimated spin over to the body.
func (x *Movable) FinalizeManipulation(m *interaction.Manipulation) {
	x.Positionable.FinalizeManipulation(m)
	if x.body != nil {
		x.body.SetAngularVelocity(angularVelocity(x.releaseDelta, x.Target().Rotation(), x.Session().FixedDeltaTime()))
	}
	x.releaseDelta = spatial.Identity()
}

// angularVelocity converts a per-step local rotation into a world angular velocity in
// radians per second.
func angularVelocity(delta, frame spatial.Quat, dt float64) spatial.Vec3 {
	angle, axis := spatial.ToAngleAxis(delta)
	if angle > 180 {
		angle -= 360
	}
	if angle == 0 || dt <= 0 {
		return spatial.Zero
	}
	return frame.Rotate(axis).Mul(spatial.DegToRad(angle) / dt)
}
