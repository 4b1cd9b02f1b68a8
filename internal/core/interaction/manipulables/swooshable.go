package manipulables

import (
	"math"

	"github.com/zeusync/grab/internal/core/events"
	"github.com/zeusync/grab/internal/core/interaction"
	"github.com/zeusync/grab/internal/core/spatial"
	"github.com/zeusync/grab/internal/core/systems/physics"
)

const (
	stabilityPeriod      = 0.1
	swooshRotateTorque   = 0.1
	stableMotionSqr      = 0.01
	stableUprightDegrees = 1.0
)

// Swooshable is a Positionable that leans into its velocity while held and reports when
// it came to rest upright.
type Swooshable struct {
	*Positionable
	neutral        spatial.Vec3
	speedThreshold float64
	speedFactor    float64
	autoLock       bool

	locked         bool
	settled        bool
	stabilityStart float64
	releaseDelta   spatial.Quat
	onSettled      events.Observers[func()]
	unregister     func()
}

func NewSwooshable(s *interaction.Session, node *spatial.Node, opts ...Option) *Swooshable {
	c := newConfig(opts)
	x := &Swooshable{
		Positionable:   newPositionable(c),
		neutral:        c.neutral,
		speedThreshold: c.speedThreshold,
		speedFactor:    c.speedFactor,
		autoLock:       c.autoLock,
		stabilityStart: -1,
		releaseDelta:   spatial.Identity(),
	}
	x.Manipulable = interaction.NewManipulable(s, node, x, c.manipulable...)
	if x.resolveBody() && x.body.Constraints().Any(physics.FreezeRotation) {
		x.Log().Warn("body is rotation constrained and cannot swoosh")
	}
	x.unregister = s.Register(x)
	node.OnDestroy(x.unregister)
	return x
}

// OnSettled registers fn to run once each time the object comes to rest upright.
func (x *Swooshable) OnSettled(fn func()) func() { return x.onSettled.Add(fn) }

func (x *Swooshable) IsSettled() bool { return x.settled }

// FixedUpdate runs the stability timer.
func (x *Swooshable) FixedUpdate(float64) {
	b := x.body
	if b == nil {
		return
	}
	now := x.Session().Now()
	resting := b.Velocity().LenSqr()+b.AngularVelocity().LenSqr() < stableMotionSqr &&
		spatial.Angle(x.Node().Up(), spatial.Up) < stableUprightDegrees
	if !resting {
		x.stabilityStart = -1
		return
	}
	if x.stabilityStart < 0 {
		x.stabilityStart = now
		return
	}
	if now-x.stabilityStart <= stabilityPeriod {
		return
	}
	if !x.locked && x.autoLock && !b.IsKinematic() {
		b.SetVelocity(spatial.Zero)
		b.SetAngularVelocity(spatial.Zero)
		b.SetKinematic(true)
		x.locked = true
	}
	if !x.settled {
		x.settled = true
		x.onSettled.Each(func(fn func()) { fn() })
		x.Session().Publish(EventSettled, x.Name(), x.Name())
	}
}

func (x *Swooshable) InitializeManipulation(m *interaction.Manipulation) {
	x.Positionable.InitializeManipulation(m)
	x.stabilityStart = -1
	if x.body != nil {
		x.body.SetKinematic(false)
	}
}

func (x *Swooshable) PerformManipulation(m *interaction.Manipulation) {
	x.Positionable.PerformManipulation(m)
	if x.body == nil {
		return
	}
	actor := m.Manipulator()
	if actor.Strength() > 0 {
		v := x.body.Velocity()
		lean := v.Len()
		if x.speedThreshold > spatial.Epsilon {
			lean = (lean - x.speedThreshold) * x.speedFactor
		}
		goal := spatial.Slerp(spatial.Identity(), spatial.FromToRotation(spatial.Up, v), math.Min(lean, 1))
		goal = goal.Mul(spatial.EulerVec(x.neutral))

		target := x.Target()
		oldPos := x.Node().Position()
		old := target.Rotation()
		target.SetRotation(spatial.Slerp(old, goal, swooshRotateTorque*actor.Strength()))
		x.releaseDelta = spatial.Slerp(x.releaseDelta, old.Inverse().Mul(target.Rotation()), 0.2)
		if x.GrabMode() == interaction.HoldHandle {
			target.SetPosition(target.Position().Add(oldPos.Sub(x.Node().Position())))
		}
	}
	x.body.SetAngularVelocity(x.body.AngularVelocity().Mul(1 - baseDampingFactor*actor.Strength()))
}

// FinalizeManipulation keeps the spin about world up from the swoosh and re-arms the
// stability detection.
func (x *Swooshable) FinalizeManipulation(m *interaction.Manipulation) {
	x.Positionable.FinalizeManipulation(m)
	if x.body != nil {
		spin := angularVelocity(x.releaseDelta, x.Target().Rotation(), x.Session().FixedDeltaTime())
		w := x.body.AngularVelocity()
		x.body.SetAngularVelocity(spatial.ProjectOnPlane(w, spatial.Up).Add(spatial.Project(spin, spatial.Up)))
	}
	x.releaseDelta = spatial.Identity()
	x.locked = false
	x.settled = false
	x.stabilityStart = -1
}
