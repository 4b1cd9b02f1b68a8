package manipulables

import (
	"github.com/zeusync/grab/internal/core/interaction"
	"github.com/zeusync/grab/internal/core/spatial"
)

// Centred moves the grab point from where the object was grabbed to its pivot.
type Centred struct {
	*interaction.Manipulable
	recentreTime float64
}

func newCentred(c config) *Centred {
	return &Centred{recentreTime: c.recentreTime}
}

func NewCentred(s *interaction.Session, node *spatial.Node, opts ...Option) *Centred {
	c := newConfig(opts)
	x := newCentred(c)
	x.Manipulable = interaction.NewManipulable(s, node, x, c.manipulable...)
	return x
}

func (x *Centred) RecentreTime() float64 { return x.recentreTime }

func (x *Centred) InitializeManipulation(*interaction.Manipulation) {}
func (x *Centred) PerformManipulation(*interaction.Manipulation)    {}
func (x *Centred) FinalizeManipulation(*interaction.Manipulation)   {}

// UpdatedGrabPosition eases the grab point to the pivot over the recentre time.
func (x *Centred) UpdatedGrabPosition(m *interaction.Manipulation) spatial.Vec3 {
	actor := m.Manipulator()
	if !x.IsGrabbed() || x.recentreTime < 0 {
		return actor.TargetGrabPosition()
	}
	pivot := x.ConvertToWorld(spatial.Zero)
	start := actor.GrabStartTime()
	now := x.Session().Now()
	if now > start+x.recentreTime {
		return pivot
	}
	return spatial.Lerp(m.InitialGrabPosition(), pivot, spatial.InverseLerp(start, start+x.recentreTime, now))
}
