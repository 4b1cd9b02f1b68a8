package manipulables

import (
	"github.com/zeusync/grab/internal/core/interaction"
	"github.com/zeusync/grab/internal/core/observability/log"
	"github.com/zeusync/grab/internal/core/spatial"
	"github.com/zeusync/grab/internal/core/systems/physics"
)

const (
	baseMoveForce     = 200.0
	baseDampingFactor = 0.4
)

// Positionable pulls its target's body towards the grab point of every manipulator
// holding it.
type Positionable struct {
	*Centred
	body              physics.Body
	counteractGravity bool
	gravityApplied    bool
	gravityStep       uint64
}

func newPositionable(c config) *Positionable {
	return &Positionable{Centred: newCentred(c), counteractGravity: c.counteractGravity}
}

func NewPositionable(s *interaction.Session, node *spatial.Node, opts ...Option) *Positionable {
	c := newConfig(opts)
	x := newPositionable(c)
	x.Manipulable = interaction.NewManipulable(s, node, x, c.manipulable...)
	x.resolveBody()
	return x
}

// Body returns the body being driven, nil when the target has none.
func (x *Positionable) Body() physics.Body { return x.body }

// IsPositionable marks every behaviour built on Positionable.
func (x *Positionable) IsPositionable() bool { return true }

func (x *Positionable) resolveBody() bool {
	if x.body != nil {
		return true
	}
	b, ok := physics.BodyOf(x.Target())
	if !ok {
		x.Log().Warn("no body found; position coupling disabled")
		return false
	}
	x.body = b
	if b.Constraints().Has(physics.FreezePosition) {
		x.Log().Warn("body is position constrained and cannot follow manipulators", log.String("body", b.Node().Name()))
	}
	return true
}

func (x *Positionable) InitializeManipulation(m *interaction.Manipulation) {
	x.Centred.InitializeManipulation(m)
	x.resolveBody()
}

func (x *Positionable) PerformManipulation(m *interaction.Manipulation) {
	x.Centred.PerformManipulation(m)
	if x.body == nil {
		return
	}
	x.updatePosition(m.Manipulator())
}

func (x *Positionable) updatePosition(actor *interaction.Manipulator) {
	b := x.body
	s := x.Session()
	mass := b.Mass()
	offset := actor.TargetGrabPosition().Sub(actor.GrabPosition()).Mul(mass * baseMoveForce * actor.Strength())
	centre := b.Velocity().Mul(-mass * baseDampingFactor * actor.Strength() / s.FixedDeltaTime())

	step := s.Clock().FixedStep()
	if x.counteractGravity && b.UseGravity() && !(x.gravityApplied && x.gravityStep == step) {
		centre = centre.Sub(s.Physics().Gravity().Mul(mass))
		x.gravityApplied = true
		x.gravityStep = step
	}

	b.AddForce(centre)
	b.AddForceAtPosition(offset, actor.GrabPosition())

	if ab, ok := actor.Body(); ok && ab != b {
		ab.AddForceAtPosition(centre.Mul(-1), b.Position())
		ab.AddForceAtPosition(offset.Mul(-1), actor.GrabPosition())
	}
}
