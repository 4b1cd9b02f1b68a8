package interaction

import (
	"github.com/zeusync/grab/internal/core/observability/log"
	"github.com/zeusync/grab/internal/core/spatial"
	"github.com/zeusync/grab/internal/core/systems"
	"github.com/zeusync/grab/internal/core/systems/physics"
)

// DistanceOffset is the gap kept between a target's surface and points placed in front
// of it.
const DistanceOffset = 0.05

// Discoverer finds the collider a manipulator currently points at. Every concrete
// manipulator implements it; the other hook interfaces below are optional.
type Discoverer interface {
	FindTargetCollider() physics.Collider
}

// TargetPositioner computes where the manipulator wants its grab point. The default is
// the manipulator's position.
type TargetPositioner interface {
	ComputeTargetGrabPosition() spatial.Vec3
}

// ReleaseEvaluator decides whether a grab should be given up. The default is
// ExceedsReleaseRange.
type ReleaseEvaluator interface {
	ShouldRelease() bool
}

type HoverHandler interface {
	HandleEnterManipulable()
	HandleExitManipulable()
}

// GrabHandler runs after a manipulator's own Grab and Release.
type GrabHandler interface {
	HandleGrab()
	HandleRelease()
}

// RotationAimer overrides TargetRotationOffset.
type RotationAimer interface {
	AimRotation() spatial.Quat
}

// IntersectionAimer overrides IntersectionPoint and IntersectionDirection.
type IntersectionAimer interface {
	AimIntersection() (point, direction spatial.Vec3)
}

// IconAligner overrides IconRotation.
type IconAligner interface {
	AlignIcon() spatial.Quat
}

// FrontPlacer overrides PointInFrontOfTarget.
type FrontPlacer interface {
	FrontPoint(offset float64) spatial.Vec3
}

type ManipulatorOption func(*Manipulator)

// WithStrength scales the forces the manipulator applies.
func WithStrength(v float64) ManipulatorOption {
	return func(a *Manipulator) { a.strength = v }
}

// WithReleaseRange gives up grabs once the grab point drifts further than r from the
// target grab point, in unscaled units. Negative disables the check.
func WithReleaseRange(r float64) ManipulatorOption {
	return func(a *Manipulator) { a.releaseRange = r }
}

func WithIgnoreLayers(mask physics.LayerMask) ManipulatorOption {
	return func(a *Manipulator) { a.ignore = mask }
}

// WithoutGestures stops the manipulator from emitting taps and long holds.
func WithoutGestures() ManipulatorOption {
	return func(a *Manipulator) { a.gestures = false }
}

// WithoutIndicator hides manipulation indicators for this manipulator.
func WithoutIndicator() ManipulatorOption {
	return func(a *Manipulator) { a.indicator = false }
}

// Manipulator is an actor that discovers manipulables and drives their manipulations.
// Concrete manipulators embed it and pass themselves as the Discoverer; the outermost
// value is what the scheduler drives.
type Manipulator struct {
	session *Session
	node    *spatial.Node
	log     log.Log

	discoverer Discoverer
	targeter   TargetPositioner
	releaser   ReleaseEvaluator
	hover      HoverHandler
	grabs      GrabHandler
	rotation   RotationAimer
	intersect  IntersectionAimer
	icon       IconAligner
	front      FrontPlacer

	strength     float64
	releaseRange float64
	ignore       physics.LayerMask
	gestures     bool
	indicator    bool

	current         *Manipulable
	last            *Manipulable
	currentCollider physics.Collider

	grabbing            bool
	grabbingManipulable bool
	longHoldFired       bool
	grabStartTime       float64

	grabPosition       spatial.Vec3
	targetGrabPosition spatial.Vec3

	destroyed  bool
	unregister func()
}

// NewManipulator creates a manipulator on node and registers the discoverer (or the
// manipulator itself, when the discoverer has no update phases) with the scheduler.
func NewManipulator(s *Session, node *spatial.Node, d Discoverer, opts ...ManipulatorOption) *Manipulator {
	a := &Manipulator{
		session:      s,
		node:         node,
		log:          s.log.With(log.String("manipulator", node.Name())),
		discoverer:   d,
		strength:     1,
		releaseRange: -1,
		ignore:       physics.DefaultIgnoreLayers,
		gestures:     true,
		indicator:    true,
		grabPosition: node.Position(),
	}
	a.targetGrabPosition = a.grabPosition
	a.targeter, _ = d.(TargetPositioner)
	a.releaser, _ = d.(ReleaseEvaluator)
	a.hover, _ = d.(HoverHandler)
	a.grabs, _ = d.(GrabHandler)
	a.rotation, _ = d.(RotationAimer)
	a.intersect, _ = d.(IntersectionAimer)
	a.icon, _ = d.(IconAligner)
	a.front, _ = d.(FrontPlacer)
	for _, opt := range opts {
		opt(a)
	}

	var driven any = a
	_, fixed := d.(systems.FixedUpdater)
	_, late := d.(systems.LateUpdater)
	if fixed && late {
		driven = d
	}
	a.unregister = s.Register(driven)
	node.AddComponent(a)
	node.OnDestroy(a.Destroy)
	return a
}

func (a *Manipulator) Session() *Session { return a.session }

// Discoverer is the concrete manipulator built around this one.
func (a *Manipulator) Discoverer() Discoverer { return a.discoverer }

func (a *Manipulator) Node() *spatial.Node             { return a.node }
func (a *Manipulator) Name() string                    { return a.node.Name() }
func (a *Manipulator) Log() log.Log                    { return a.log }
func (a *Manipulator) Strength() float64               { return a.strength }
func (a *Manipulator) SetStrength(v float64)           { a.strength = v }
func (a *Manipulator) IgnoreLayers() physics.LayerMask { return a.ignore }
func (a *Manipulator) SetIgnoreLayers(m physics.LayerMask) {
	a.ignore = m
}
func (a *Manipulator) SetReleaseRange(r float64) { a.releaseRange = r }
func (a *Manipulator) ShowsIndicator() bool      { return a.indicator }
func (a *Manipulator) IsDestroyed() bool         { return a.destroyed }

// ReleaseRange is the release range scaled by the manipulator's size.
func (a *Manipulator) ReleaseRange() float64 {
	return a.releaseRange * a.node.UniformScale()
}

func (a *Manipulator) CurrentManipulable() *Manipulable { return a.current }

// LastManipulable is the target before the most recent hover update.
func (a *Manipulator) LastManipulable() *Manipulable     { return a.last }
func (a *Manipulator) CurrentCollider() physics.Collider { return a.currentCollider }

// SetCurrentCollider overrides the collider found by the last discovery.
func (a *Manipulator) SetCurrentCollider(c physics.Collider) { a.currentCollider = c }

// IsGrabbing reports whether a grab gesture is in progress.
func (a *Manipulator) IsGrabbing() bool { return a.grabbing }

// IsGrabbingManipulable reports whether the grab gesture is bound to a manipulable.
func (a *Manipulator) IsGrabbingManipulable() bool { return a.grabbingManipulable }
func (a *Manipulator) GrabStartTime() float64      { return a.grabStartTime }

// CouldGrab reports whether the current target holds a manipulation for this manipulator.
func (a *Manipulator) CouldGrab() bool {
	return a.current != nil && a.current.HasManipulation(a)
}

func (a *Manipulator) IsInteracting() bool { return a.CouldGrab() && a.grabbingManipulable }

// CurrentManipulation returns the manipulation with the current target, or nil.
func (a *Manipulator) CurrentManipulation() *Manipulation {
	if a.current == nil {
		return nil
	}
	return a.current.ManipulationOf(a)
}

func (a *Manipulator) GrabPosition() spatial.Vec3       { return a.grabPosition }
func (a *Manipulator) TargetGrabPosition() spatial.Vec3 { return a.targetGrabPosition }

// Body returns the body the manipulator moves with, if any.
func (a *Manipulator) Body() (physics.Body, bool) { return physics.BodyOf(a.node) }

// FixedUpdate keeps the current manipulation alive, holds it while grabbing and gives it
// up when ShouldRelease says so.
func (a *Manipulator) FixedUpdate(float64) {
	if a.destroyed {
		return
	}
	if a.current != nil {
		a.current.Stay(a)
	}
	if a.IsInteracting() {
		a.hold()
	}
	if a.shouldRelease() {
		a.Release(a.gestures)
	}
}

// LateUpdate refreshes the grab points, discovers the pointed-at collider and switches
// targets when it changed.
func (a *Manipulator) LateUpdate(float64) {
	if a.destroyed {
		return
	}
	a.UpdateGrabPosition()
	a.currentCollider = a.discoverer.FindTargetCollider()
	a.HoverNewManipulable(a.ManipulableOf(a.currentCollider), true)
	if m := a.CurrentManipulation(); m != nil {
		m.syncIndicator()
	}
}

// UpdateGrabPosition recomputes the target grab point and, while interacting, lets the
// manipulable place the grab point.
func (a *Manipulator) UpdateGrabPosition() {
	if a.targeter != nil {
		a.targetGrabPosition = a.targeter.ComputeTargetGrabPosition()
	} else {
		a.targetGrabPosition = a.node.Position()
	}
	if m := a.CurrentManipulation(); m != nil && a.grabbingManipulable {
		a.grabPosition = a.current.GrabPositionOf(m)
	} else {
		a.grabPosition = a.targetGrabPosition
	}
}

// Grab starts a grab gesture and binds it to the current target when there is one.
func (a *Manipulator) Grab() {
	if a.destroyed || a.grabbingManipulable {
		return
	}
	a.grabbing = true
	a.grabStartTime = a.session.Now()
	a.longHoldFired = false
	if a.current != nil && a.current.Grab(a) {
		a.grabbingManipulable = true
	}
	if a.grabs != nil {
		a.grabs.HandleGrab()
	}
}

func (a *Manipulator) hold() {
	if !a.current.Hold(a) {
		return
	}
	if a.gestures && !a.longHoldFired && a.session.Now()-a.grabStartTime > a.session.tuning.TapTime {
		a.longHoldFired = true
		a.current.LongHold(a)
	}
}

// Hold drives one hold of the current manipulation outside the fixed phase.
func (a *Manipulator) Hold() {
	if a.IsInteracting() {
		a.hold()
	}
}

// Release ends the grab gesture. When automateTap is set and the grab was shorter than
// the tap time, the target also receives a tap.
func (a *Manipulator) Release(automateTap bool) {
	if !a.grabbing {
		return
	}
	a.grabbing = false
	if !a.grabbingManipulable {
		a.handleRelease()
		return
	}
	a.grabbingManipulable = false
	mb := a.current
	if mb != nil && mb.Release(a, false) {
		if automateTap && !a.longHoldFired && a.session.Now()-a.grabStartTime <= a.session.tuning.TapTime {
			mb.Tap(a)
		}
	}
	a.handleRelease()
}

func (a *Manipulator) handleRelease() {
	if a.grabs != nil {
		a.grabs.HandleRelease()
	}
}

// ManipulableOf returns the interactable manipulable a collider belongs to. The current
// target wins while the collider is still inside it; a manipulator never targets one of
// its own ancestors.
func (a *Manipulator) ManipulableOf(c physics.Collider) *Manipulable {
	if c == nil {
		return nil
	}
	n := c.Node()
	if a.current != nil && a.current.Interactable() && n.IsChildOf(a.current.Node()) {
		return a.current
	}
	for _, mb := range spatial.ComponentsInParent[*Manipulable](n) {
		if mb.Interactable() && !a.node.IsChildOf(mb.Node()) {
			return mb
		}
	}
	return nil
}

// HoverNewManipulable makes next the current target. Leaving the old target releases it
// first when bound. It returns the first collider of the new target.
func (a *Manipulator) HoverNewManipulable(next *Manipulable, causedByExit bool) physics.Collider {
	a.last = a.current
	a.current = next
	if a.last != next {
		if old := a.last; old != nil {
			if a.grabbingManipulable {
				a.grabbingManipulable = false
				old.Release(a, causedByExit)
			}
			old.Exit(a)
			if a.hover != nil {
				a.hover.HandleExitManipulable()
			}
		}
		if next != nil {
			next.Enter(a)
			if a.hover != nil {
				a.hover.HandleEnterManipulable()
			}
		}
	}
	if a.current == nil {
		return nil
	}
	if cols := physics.CollidersIn(a.current.Node()); len(cols) > 0 {
		return cols[0]
	}
	return nil
}

// GrabManipulable releases whatever is held, targets mb and grabs it.
func (a *Manipulator) GrabManipulable(mb *Manipulable) {
	a.Release(a.gestures)
	a.currentCollider = a.HoverNewManipulable(mb, false)
	a.Grab()
}

// unbind drops the grab binding to mb without notifying it.
func (a *Manipulator) unbind(mb *Manipulable) {
	if a.current == mb {
		a.grabbingManipulable = false
	}
}

// unhover forgets mb after it ended the manipulation on its own.
func (a *Manipulator) unhover(mb *Manipulable) {
	if a.current != mb {
		return
	}
	a.last = mb
	a.current = nil
	a.currentCollider = nil
	a.grabbingManipulable = false
	if a.hover != nil {
		a.hover.HandleExitManipulable()
	}
}

func (a *Manipulator) shouldRelease() bool {
	if a.releaser != nil {
		return a.releaser.ShouldRelease()
	}
	return a.ExceedsReleaseRange()
}

// ExceedsReleaseRange reports whether the grab point is further from the target grab
// point than the release range.
func (a *Manipulator) ExceedsReleaseRange() bool {
	r := a.ReleaseRange()
	return r >= 0 && spatial.Distance(a.grabPosition, a.targetGrabPosition) > r
}

// PointInFrontOfTarget is a point between the manipulator and its target, offset further
// towards the manipulator.
func (a *Manipulator) PointInFrontOfTarget(offset float64) spatial.Vec3 {
	if a.front != nil {
		return a.front.FrontPoint(offset)
	}
	return a.grabPosition.Sub(a.node.Forward().Mul(a.DistanceInFrontOfTarget() + offset))
}

// DistanceInFrontOfTarget clears the current target's approximate radius.
func (a *Manipulator) DistanceInFrontOfTarget() float64 {
	if a.current == nil {
		return DistanceOffset
	}
	return a.current.ApproxRadius()*1.1 + DistanceOffset
}

// TargetRotationOffset is the rotation rotating manipulables follow.
func (a *Manipulator) TargetRotationOffset() spatial.Quat {
	if a.rotation != nil {
		return a.rotation.AimRotation()
	}
	return a.node.Rotation()
}

func (a *Manipulator) IntersectionPoint() spatial.Vec3 {
	if a.intersect != nil {
		p, _ := a.intersect.AimIntersection()
		return p
	}
	return a.grabPosition
}

func (a *Manipulator) IntersectionDirection() spatial.Vec3 {
	if a.intersect != nil {
		_, d := a.intersect.AimIntersection()
		return d
	}
	return a.node.Forward()
}

// IconRotation orients indicators drawn for this manipulator.
func (a *Manipulator) IconRotation() spatial.Quat {
	if a.icon != nil {
		return a.icon.AlignIcon()
	}
	return a.node.Rotation()
}

// Destroy releases and exits the current target, then stops the manipulator.
func (a *Manipulator) Destroy() {
	if a.destroyed {
		return
	}
	a.HoverNewManipulable(nil, true)
	a.grabbing = false
	a.destroyed = true
	a.unregister()
	a.node.RemoveComponent(a)
}
