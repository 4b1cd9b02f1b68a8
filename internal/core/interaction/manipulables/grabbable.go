package manipulables

import (
	"math"

	"github.com/zeusync/grab/internal/core/events"
	"github.com/zeusync/grab/internal/core/interaction"
	"github.com/zeusync/grab/internal/core/spatial"
)

const (
	slipFreeAngle  = 60.0
	slipBlendAngle = 135.0
)

// Grabbable keeps the grab point on the surface it was grabbed at and lets it slide
// according to its slipperiness. It does not support depth control.
type Grabbable struct {
	*interaction.Manipulable
	slipperiness    float64
	onExitRelease   events.Observers[interaction.ManipulationHandler]
	onNoExitRelease events.Observers[interaction.ManipulationHandler]
}

func newGrabbable(c config) *Grabbable {
	return &Grabbable{slipperiness: c.slipperiness}
}

func NewGrabbable(s *interaction.Session, node *spatial.Node, opts ...Option) *Grabbable {
	c := newConfig(opts)
	x := newGrabbable(c)
	x.Manipulable = interaction.NewManipulable(s, node, x, c.manipulable...)
	x.watchReleases()
	return x
}

func (x *Grabbable) watchReleases() {
	x.OnRelease(func(m *interaction.Manipulation) {
		if m.EndedByExit() {
			x.onExitRelease.Each(func(fn interaction.ManipulationHandler) { fn(m) })
			return
		}
		x.onNoExitRelease.Each(func(fn interaction.ManipulationHandler) { fn(m) })
	})
}

func (x *Grabbable) Slipperiness() float64 { return x.slipperiness }

// OnExitRelease observes releases forced by the manipulator leaving.
func (x *Grabbable) OnExitRelease(fn interaction.ManipulationHandler) func() {
	return x.onExitRelease.Add(fn)
}

// OnNoExitRelease observes voluntary releases.
func (x *Grabbable) OnNoExitRelease(fn interaction.ManipulationHandler) func() {
	return x.onNoExitRelease.Add(fn)
}

func (x *Grabbable) InitializeManipulation(*interaction.Manipulation) {}
func (x *Grabbable) PerformManipulation(*interaction.Manipulation)    {}
func (x *Grabbable) FinalizeManipulation(*interaction.Manipulation)   {}

func (x *Grabbable) SupportsDepthControl() bool { return false }

// UpdatedGrabPosition projects the desired grab point onto the grabbed surface and slides
// towards it by slipperiness⁴.
func (x *Grabbable) UpdatedGrabPosition(m *interaction.Manipulation) spatial.Vec3 {
	actor := m.Manipulator()
	intersection := actor.IntersectionPoint()
	normal := actor.IntersectionDirection()
	desired := actor.TargetGrabPosition()
	pull := desired.Sub(actor.Node().Position())

	if deviation := spatial.Angle(normal.Mul(-1), pull); deviation > slipFreeAngle {
		normal = spatial.SlerpVec(normal, spatial.Normalize(pull).Mul(-1), (deviation-slipFreeAngle)/slipBlendAngle)
	}
	projected := intersection.Add(spatial.ProjectOnPlane(desired.Sub(intersection), normal))
	return spatial.Lerp(actor.GrabPosition(), projected, math.Pow(x.slipperiness, 4))
}
