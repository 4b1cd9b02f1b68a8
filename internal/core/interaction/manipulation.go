package interaction

import (
	"github.com/google/uuid"

	"github.com/zeusync/grab/internal/core/spatial"
)

// IndicatorFactory creates the node displayed in front of a manipulator while it hovers
// a manipulable. Returning nil disables the indicator for that manipulation.
type IndicatorFactory func(m *Manipulation) *spatial.Node

// Manipulation is the state shared by one manipulator and one manipulable between enter
// and exit. Grab positions are stored in the manipulable's local space so they follow
// the target while it moves.
type Manipulation struct {
	id          uuid.UUID
	manipulator *Manipulator
	manipulable *Manipulable

	hoverStartTime float64
	grabStartTime  float64

	localGrabPosition        spatial.Vec3
	initialLocalGrabPosition spatial.Vec3
	initialTargetPosition    spatial.Vec3
	initialTargetRotation    spatial.Quat

	grabbed     bool
	endedByExit bool

	indicator          *spatial.Node
	indicatorBaseScale spatial.Vec3
}

func newManipulation(mb *Manipulable, actor *Manipulator) *Manipulation {
	m := &Manipulation{
		id:                    uuid.New(),
		manipulator:           actor,
		manipulable:           mb,
		hoverStartTime:        mb.session.Now(),
		initialTargetRotation: spatial.Identity(),
	}
	if mb.indicators != nil && actor.ShowsIndicator() {
		if n := mb.indicators(m); n != nil {
			m.indicator = n
			m.indicatorBaseScale = n.LocalScale()
		}
	}
	return m
}

func (m *Manipulation) ID() uuid.UUID                       { return m.id }
func (m *Manipulation) Manipulator() *Manipulator           { return m.manipulator }
func (m *Manipulation) Manipulable() *Manipulable           { return m.manipulable }
func (m *Manipulation) HoverStartTime() float64             { return m.hoverStartTime }
func (m *Manipulation) GrabStartTime() float64              { return m.grabStartTime }
func (m *Manipulation) IsGrabbed() bool                     { return m.grabbed }
func (m *Manipulation) EndedByExit() bool                   { return m.endedByExit }
func (m *Manipulation) Indicator() *spatial.Node            { return m.indicator }
func (m *Manipulation) InitialTargetPosition() spatial.Vec3 { return m.initialTargetPosition }
func (m *Manipulation) InitialTargetRotation() spatial.Quat { return m.initialTargetRotation }

// GrabPosition is the current grab point in world space.
func (m *Manipulation) GrabPosition() spatial.Vec3 {
	return m.manipulable.ConvertToWorld(m.localGrabPosition)
}

func (m *Manipulation) SetGrabPosition(p spatial.Vec3) {
	m.localGrabPosition = m.manipulable.ConvertToLocal(p)
}

// LocalGrabPosition is the grab point in the manipulable's local space.
func (m *Manipulation) LocalGrabPosition() spatial.Vec3 { return m.localGrabPosition }

func (m *Manipulation) InitialLocalGrabPosition() spatial.Vec3 { return m.initialLocalGrabPosition }

// InitialGrabPosition is where the grab started, in current world space.
func (m *Manipulation) InitialGrabPosition() spatial.Vec3 {
	return m.manipulable.ConvertToWorld(m.initialLocalGrabPosition)
}

func (m *Manipulation) beginGrab() {
	m.grabbed = true
	m.endedByExit = false
	m.grabStartTime = m.manipulable.session.Now()
	m.SetGrabPosition(m.manipulator.GrabPosition())
	m.initialLocalGrabPosition = m.localGrabPosition
	target := m.manipulable.Target()
	m.initialTargetPosition = target.Position()
	m.initialTargetRotation = target.Rotation()
}

func (m *Manipulation) endGrab(endedByExit bool) {
	m.grabbed = false
	m.endedByExit = endedByExit
}

// cycle hands the manipulator over to the next manipulable on the same node after a tap.
func (m *Manipulation) cycle() {
	siblings := spatial.ComponentsOf[*Manipulable](m.manipulable.node)
	if len(siblings) < 2 {
		return
	}
	for i, mb := range siblings {
		if mb == m.manipulable {
			m.manipulator.HoverNewManipulable(siblings[(i+1)%len(siblings)], false)
			return
		}
	}
}

// syncIndicator places the indicator in front of the manipulator.
func (m *Manipulation) syncIndicator() {
	if m.indicator == nil || m.indicator.IsDestroyed() {
		return
	}
	a := m.manipulator
	m.indicator.SetPosition(a.PointInFrontOfTarget(0))
	m.indicator.SetRotation(a.IconRotation())
	m.indicator.SetLocalScale(spatial.Scale(m.indicatorBaseScale, a.Node().LossyScale()))
}

func (m *Manipulation) destroy() {
	if m.indicator != nil {
		m.indicator.Destroy()
		m.indicator = nil
	}
}
