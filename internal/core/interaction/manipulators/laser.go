// Package manipulators holds the concrete actors: ray based lasers driven by a device or
// by code, and proximity holders that pick up, delete or spawn objects.
package manipulators

import (
	"github.com/zeusync/grab/internal/core/interaction"
	"github.com/zeusync/grab/internal/core/spatial"
	"github.com/zeusync/grab/internal/core/systems/physics"
)

// DefaultLaserSourceDistance is how far in front of the source PointOnLaser lands by default.
const DefaultLaserSourceDistance = 1.5

// Aim supplies how far a laser pushes its target and how the target is turned while the
// laser interacts with it.
type Aim interface {
	// DepthFactor multiplies the depth the target had when it was grabbed.
	DepthFactor() float64
	OffsetRotation() spatial.Quat
}

type fixedAim struct{}

func (fixedAim) DepthFactor() float64         { return 1 }
func (fixedAim) OffsetRotation() spatial.Quat { return spatial.Identity() }

// Laser casts a ray forward from its node. While it holds something, the ray follows the
// bent laser path from the source to the grab point so the target stays locked.
type Laser struct {
	*interaction.Manipulator
	aim Aim

	path   []spatial.Vec3
	hit    physics.Hit
	hasHit bool

	initialDepth     float64
	initialYawOffset float64

	width, initialWidth float64
}

// NewLaser creates a laser that keeps targets at their grab depth.
func NewLaser(s *interaction.Session, node *spatial.Node, opts ...interaction.ManipulatorOption) *Laser {
	l := &Laser{}
	l.setup(s, node, l, fixedAim{}, opts)
	return l
}

// setup builds the embedded manipulator around outer, the outermost concrete type.
func (l *Laser) setup(s *interaction.Session, node *spatial.Node, outer interaction.Discoverer, aim Aim, opts []interaction.ManipulatorOption) {
	l.aim = aim
	l.width, l.initialWidth = 1, 1
	n := s.Tuning().LaserPoints
	if n < 2 {
		n = 2
	}
	l.path = make([]spatial.Vec3, n)
	for i := range l.path {
		l.path[i] = node.Position()
	}
	l.Manipulator = interaction.NewManipulator(s, node, outer, opts...)
	if scale := s.Scale(); scale != nil {
		l.width = l.initialWidth / scale.Scale()
		node.OnDestroy(scale.OnScaleChanged(func(current, _ float64) {
			l.width = l.initialWidth / current
		}))
	}
}

// Path returns the rendered laser points from the source to the grab point.
func (l *Laser) Path() []spatial.Vec3 { return append([]spatial.Vec3(nil), l.path...) }

// Width is the laser width multiplier, kept visually constant across scene scales.
func (l *Laser) Width() float64 { return l.width }

// Hit returns the last ray cast result.
func (l *Laser) Hit() (physics.Hit, bool) { return l.hit, l.hasHit }

func (l *Laser) InitialDepth() float64 { return l.initialDepth }

// HandleGrab records the depth and yaw the target is held at.
func (l *Laser) HandleGrab() {
	n := l.Node()
	l.initialDepth = spatial.Project(l.GrabPosition().Sub(n.Position()), n.Forward()).Len()
	l.initialYawOffset = 0
	if mb := l.CurrentManipulable(); mb != nil {
		l.initialYawOffset = mb.OffsetEulersFor(l.Manipulator)[1]
	}
}

func (l *Laser) HandleRelease() {}

// FindTargetCollider bends the laser to the current grab point, then casts along it while
// interacting and straight ahead otherwise.
func (l *Laser) FindTargetCollider() physics.Collider {
	l.updatePath()
	if l.IsInteracting() {
		l.hit, l.hasHit = l.castAlongPath(l.CurrentManipulable())
	} else {
		l.hit, l.hasHit = l.castForward()
	}
	if !l.hasHit {
		return nil
	}
	return l.hit.Collider
}

// ComputeTargetGrabPosition is the last hit point, or the held depth scaled by the aim
// while interacting.
func (l *Laser) ComputeTargetGrabPosition() spatial.Vec3 {
	n := l.Node()
	depth := l.Session().Tuning().MaxRaycastDistance
	switch {
	case l.IsInteracting():
		depth = l.initialDepth * l.aim.DepthFactor()
	case l.hasHit:
		return l.hit.Point
	}
	return n.Position().Add(n.Forward().Mul(depth))
}

// AimRotation follows the direction of the laser tip.
func (l *Laser) AimRotation() spatial.Quat {
	tip := len(l.path) - 1
	return spatial.LookRotation(l.path[tip].Sub(l.path[tip-1]), spatial.Up).
		Mul(l.aim.OffsetRotation()).
		Mul(spatial.AngleAxis(l.initialYawOffset, spatial.Up))
}

// AlignIcon faces back along the laser tip once the grab point left the source.
func (l *Laser) AlignIcon() spatial.Quat {
	n := l.Node()
	if spatial.Distance(l.GrabPosition(), n.Position()) > interaction.DistanceOffset {
		tip := len(l.path) - 1
		return spatial.LookRotation(l.path[tip-1].Sub(l.path[tip]), spatial.Up)
	}
	return n.Rotation()
}

// FrontPoint places points back along the last laser segment.
func (l *Laser) FrontPoint(offset float64) spatial.Vec3 {
	tip := len(l.path) - 1
	back := spatial.Normalize(l.path[tip-1].Sub(l.path[tip]))
	return l.GrabPosition().Add(back.Mul(l.DistanceInFrontOfTarget() + offset))
}

// PointOnLaser is the point distance along the first laser segment.
func (l *Laser) PointOnLaser(distance float64) spatial.Vec3 {
	dir := spatial.Normalize(l.path[1].Sub(l.path[0]))
	if dir == spatial.Zero {
		dir = l.Node().Forward()
	}
	return l.Node().Position().Add(dir.Mul(distance))
}

// AimIntersection is the surface hit by the laser, or the grab point facing forward.
func (l *Laser) AimIntersection() (spatial.Vec3, spatial.Vec3) {
	if l.hasHit {
		return l.hit.Point, l.hit.Normal
	}
	return l.GrabPosition(), l.Node().Forward()
}

// updatePath bends the laser from the source towards the target grab point and ends it
// at the grab point.
func (l *Laser) updatePath() {
	origin := l.Node().Position()
	toTarget := l.TargetGrabPosition().Sub(origin)
	toGrab := l.GrabPosition().Sub(origin)
	last := float64(len(l.path) - 1)
	for i := range l.path {
		t := float64(i) / last
		l.path[i] = origin.Add(toTarget.Mul((1 - t) * t)).Add(toGrab.Mul(t * t))
	}
}

func (l *Laser) castForward() (physics.Hit, bool) {
	n := l.Node()
	return l.Session().Physics().Raycast(n.Position(), n.Forward(), l.Session().Tuning().MaxRaycastDistance, l.IgnoreLayers())
}

// castAlongPath keeps lock on mb: segment by segment along the laser, then beyond its tip,
// then from behind the source for targets held so close they swallow the laser.
func (l *Laser) castAlongPath(mb *interaction.Manipulable) (physics.Hit, bool) {
	world := l.Session().Physics()
	ignore := l.IgnoreLayers()
	locked := func(h physics.Hit, ok bool) bool {
		return ok && (mb == nil || h.Collider.Node().IsChildOf(mb.Target()))
	}

	dir := l.Node().Forward()
	for i := 0; i < len(l.path)-1; i++ {
		d := l.path[i+1].Sub(l.path[i])
		if d.LenSqr() == 0 {
			continue
		}
		dir = d
		if h, ok := world.Raycast(l.path[i], d, d.Len()*1.001, ignore); locked(h, ok) {
			return h, true
		}
	}
	if h, ok := world.Raycast(l.path[len(l.path)-1], dir, l.Session().Tuning().MaxRaycastDistance, ignore); locked(h, ok) {
		return h, true
	}
	if mb != nil {
		n := l.Node()
		distance := mb.ApproxRadius() * 2
		from := n.Position().Sub(n.Forward().Mul(distance))
		if h, ok := world.Raycast(from, n.Forward(), distance*1.001, ignore); locked(h, ok) {
			return h, true
		}
	}
	return physics.Hit{}, false
}
