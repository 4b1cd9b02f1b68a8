package interaction

import (
	"slices"

	"github.com/zeusync/grab/internal/core/events"
	"github.com/zeusync/grab/internal/core/observability/log"
	"github.com/zeusync/grab/internal/core/spatial"
	"github.com/zeusync/grab/internal/core/systems/physics"
)

// Behavior receives the grab lifecycle of a Manipulable. Initialize runs after the grab
// observers, Perform after every hold, Finalize after the release observers.
type Behavior interface {
	InitializeManipulation(m *Manipulation)
	PerformManipulation(m *Manipulation)
	FinalizeManipulation(m *Manipulation)
}

// GrabPositionUpdater lets a behaviour choose where a grabbing manipulator's grab point
// sits. The default is the manipulator's target grab position.
type GrabPositionUpdater interface {
	UpdatedGrabPosition(m *Manipulation) spatial.Vec3
}

// OffsetEulersProvider reports the angles a manipulator measures yaw offsets against.
// The default is the euler angles of the manipulable's node.
type OffsetEulersProvider interface {
	OffsetEulers(actor *Manipulator) spatial.Vec3
}

// DepthController reports whether manipulators may change the grab depth. The default
// is true.
type DepthController interface {
	SupportsDepthControl() bool
}

// NopBehavior is the behaviour of a manipulable that only reports events.
type NopBehavior struct{}

func (NopBehavior) InitializeManipulation(*Manipulation) {}
func (NopBehavior) PerformManipulation(*Manipulation)    {}
func (NopBehavior) FinalizeManipulation(*Manipulation)   {}

// GrabMode selects the node grab positions are stored relative to.
type GrabMode uint8

const (
	// HoldTarget stores grab positions relative to the target.
	HoldTarget GrabMode = iota
	// HoldHandle stores grab positions relative to the manipulable's own node.
	HoldHandle
)

type ManipulableOption func(*Manipulable)

// WithTarget sets the node the manipulable acts on.
func WithTarget(target *spatial.Node) ManipulableOption {
	return func(mb *Manipulable) { mb.target = target }
}

func WithGrabMode(mode GrabMode) ManipulableOption {
	return func(mb *Manipulable) { mb.grabMode = mode }
}

func WithIndicator(factory IndicatorFactory) ManipulableOption {
	return func(mb *Manipulable) { mb.indicators = factory }
}

// Interactable sets the initial interactable state.
func Interactable(v bool) ManipulableOption {
	return func(mb *Manipulable) { mb.interactable = v }
}

// Manipulable is a scene object manipulators can hover, grab and release. It is attached
// to its node as a component so manipulators can find it from a collider.
type Manipulable struct {
	session  *Session
	node     *spatial.Node
	log      log.Log
	behavior Behavior

	grabPositions GrabPositionUpdater
	eulers        OffsetEulersProvider
	depth         DepthController

	target       *spatial.Node
	grabMode     GrabMode
	indicators   IndicatorFactory
	interactable bool
	destroyed    bool

	manipulations map[*Manipulator]*Manipulation
	order         []*Manipulator

	onEnter, onStay, onExit   events.Observers[ManipulationHandler]
	onGrab, onHold, onRelease events.Observers[ManipulationHandler]
	onTap, onLongHold         events.Observers[ManipulationHandler]
}

// NewManipulable attaches a manipulable to node. behavior is usually the concrete type
// embedding the returned value; nil means NopBehavior.
func NewManipulable(s *Session, node *spatial.Node, behavior Behavior, opts ...ManipulableOption) *Manipulable {
	if behavior == nil {
		behavior = NopBehavior{}
	}
	mb := &Manipulable{
		session:       s,
		node:          node,
		log:           s.log.With(log.String("manipulable", node.Name())),
		behavior:      behavior,
		interactable:  true,
		manipulations: make(map[*Manipulator]*Manipulation),
	}
	mb.grabPositions, _ = behavior.(GrabPositionUpdater)
	mb.eulers, _ = behavior.(OffsetEulersProvider)
	mb.depth, _ = behavior.(DepthController)
	for _, opt := range opts {
		opt(mb)
	}
	if mb.target == nil {
		mb.target = defaultTarget(node)
	}
	if len(physics.CollidersIn(node)) == 0 {
		mb.log.Warn("manipulable has no collider on itself or its children and cannot be discovered")
	}
	node.AddComponent(mb)
	node.OnDestroy(mb.Destroy)
	return mb
}

// defaultTarget is the closest ancestor carrying a body, or node itself.
func defaultTarget(node *spatial.Node) *spatial.Node {
	if b, ok := physics.BodyOf(node); ok {
		return b.Node()
	}
	return node
}

func (mb *Manipulable) Session() *Session   { return mb.session }
func (mb *Manipulable) Node() *spatial.Node { return mb.node }
func (mb *Manipulable) Name() string        { return mb.node.Name() }
func (mb *Manipulable) Behavior() Behavior  { return mb.behavior }
func (mb *Manipulable) GrabMode() GrabMode  { return mb.grabMode }
func (mb *Manipulable) Interactable() bool  { return mb.interactable && !mb.destroyed }
func (mb *Manipulable) IsDestroyed() bool   { return mb.destroyed }
func (mb *Manipulable) Log() log.Log        { return mb.log }

// Target is the node the manipulable acts on. A destroyed target is replaced by the
// default one.
func (mb *Manipulable) Target() *spatial.Node {
	mb.ensureTarget()
	return mb.target
}

func (mb *Manipulable) SetTarget(target *spatial.Node) { mb.target = target }

func (mb *Manipulable) ensureTarget() {
	if mb.target != nil && (!mb.target.IsDestroyed() || mb.node.IsDestroyed()) {
		return
	}
	mb.target = defaultTarget(mb.node)
	mb.log.Warn("target was reset to default", log.String("target", mb.target.Name()))
}

// TargetBody returns the body of the target, if it has one.
func (mb *Manipulable) TargetBody() (physics.Body, bool) {
	bodies := spatial.ComponentsOf[physics.Body](mb.Target())
	if len(bodies) == 0 {
		return nil, false
	}
	return bodies[0], true
}

// SetInteractable enables or disables the manipulable. Disabling ends every manipulation.
func (mb *Manipulable) SetInteractable(v bool) {
	was := mb.interactable
	mb.interactable = v
	if was && !v {
		mb.EndAllManipulations()
	}
}

// Manipulations returns the live manipulations in the order they began.
func (mb *Manipulable) Manipulations() []*Manipulation {
	out := make([]*Manipulation, 0, len(mb.order))
	for _, a := range mb.order {
		out = append(out, mb.manipulations[a])
	}
	return out
}

// ManipulationOf returns the manipulation bound to actor, or nil.
func (mb *Manipulable) ManipulationOf(actor *Manipulator) *Manipulation {
	return mb.manipulations[actor]
}

func (mb *Manipulable) HasManipulation(actor *Manipulator) bool {
	_, ok := mb.manipulations[actor]
	return ok
}

// IsGrabbed reports whether any manipulator currently grabs the manipulable.
func (mb *Manipulable) IsGrabbed() bool { return mb.GrabCount() > 0 }

func (mb *Manipulable) GrabCount() int {
	n := 0
	for _, m := range mb.manipulations {
		if m.grabbed {
			n++
		}
	}
	return n
}

// IsGrabbedBy reports whether actor currently grabs the manipulable.
func (mb *Manipulable) IsGrabbedBy(actor *Manipulator) bool {
	m := mb.manipulations[actor]
	return m != nil && m.grabbed
}

func (mb *Manipulable) OnEnter(fn ManipulationHandler) func()    { return mb.onEnter.Add(fn) }
func (mb *Manipulable) OnStay(fn ManipulationHandler) func()     { return mb.onStay.Add(fn) }
func (mb *Manipulable) OnExit(fn ManipulationHandler) func()     { return mb.onExit.Add(fn) }
func (mb *Manipulable) OnGrab(fn ManipulationHandler) func()     { return mb.onGrab.Add(fn) }
func (mb *Manipulable) OnHold(fn ManipulationHandler) func()     { return mb.onHold.Add(fn) }
func (mb *Manipulable) OnRelease(fn ManipulationHandler) func()  { return mb.onRelease.Add(fn) }
func (mb *Manipulable) OnTap(fn ManipulationHandler) func()      { return mb.onTap.Add(fn) }
func (mb *Manipulable) OnLongHold(fn ManipulationHandler) func() { return mb.onLongHold.Add(fn) }

func (mb *Manipulable) fire(obs *events.Observers[ManipulationHandler], t EventType, m *Manipulation) {
	obs.Each(func(fn ManipulationHandler) { fn(m) })
	mb.session.Publish(string(t), m.manipulator.Name(), m.event(t, mb.session.Now()))
}

// accepts reports whether the manipulable takes events, warning when it does not.
func (mb *Manipulable) accepts(actor *Manipulator, t EventType) bool {
	if mb.Interactable() {
		return true
	}
	mb.log.Warn("manipulable is not interactable", log.String("event", string(t)), log.String("manipulator", actor.Name()))
	return false
}

// manipulation returns the manipulation for actor when the manipulable accepts events.
func (mb *Manipulable) manipulation(actor *Manipulator, t EventType) (*Manipulation, bool) {
	if !mb.accepts(actor, t) {
		return nil, false
	}
	mb.ensureTarget()
	m := mb.manipulations[actor]
	if m == nil {
		mb.log.Warn("invalid manipulation state", log.String("event", string(t)), log.String("manipulator", actor.Name()))
		return nil, false
	}
	return m, true
}

// Enter starts a manipulation for actor.
func (mb *Manipulable) Enter(actor *Manipulator) bool {
	if !mb.accepts(actor, EventEnter) {
		return false
	}
	mb.ensureTarget()
	if _, ok := mb.manipulations[actor]; ok {
		mb.log.Warn("manipulator entered twice", log.String("manipulator", actor.Name()))
		return false
	}
	m := newManipulation(mb, actor)
	mb.manipulations[actor] = m
	mb.order = append(mb.order, actor)
	mb.fire(&mb.onEnter, EventEnter, m)
	return true
}

func (mb *Manipulable) Stay(actor *Manipulator) bool {
	m, ok := mb.manipulation(actor, EventStay)
	if !ok {
		return false
	}
	mb.fire(&mb.onStay, EventStay, m)
	return true
}

// Exit ends actor's manipulation. A grabbed manipulation is released with endedByExit
// set before the exit is reported.
func (mb *Manipulable) Exit(actor *Manipulator) bool {
	m, ok := mb.manipulation(actor, EventExit)
	if !ok {
		return false
	}
	mb.end(m)
	actor.unhover(mb)
	return true
}

func (mb *Manipulable) Grab(actor *Manipulator) bool {
	m, ok := mb.manipulation(actor, EventGrab)
	if !ok {
		return false
	}
	if m.grabbed {
		mb.log.Warn("manipulation already grabbed", log.String("manipulator", actor.Name()))
		return false
	}
	m.beginGrab()
	mb.fire(&mb.onGrab, EventGrab, m)
	mb.behavior.InitializeManipulation(m)
	return true
}

func (mb *Manipulable) Hold(actor *Manipulator) bool {
	m, ok := mb.manipulation(actor, EventHold)
	if !ok || !m.grabbed {
		return false
	}
	mb.fire(&mb.onHold, EventHold, m)
	mb.behavior.PerformManipulation(m)
	return true
}

// Release ends actor's grab. causedByExit marks a release forced by the manipulator
// leaving the manipulable.
func (mb *Manipulable) Release(actor *Manipulator, causedByExit bool) bool {
	m, ok := mb.manipulation(actor, EventRelease)
	if !ok {
		return false
	}
	if !m.grabbed {
		mb.log.Warn("release without grab", log.String("manipulator", actor.Name()))
		return false
	}
	mb.release(m, causedByExit)
	return true
}

func (mb *Manipulable) release(m *Manipulation, causedByExit bool) {
	m.endGrab(causedByExit)
	mb.fire(&mb.onRelease, EventRelease, m)
	mb.behavior.FinalizeManipulation(m)
}

// Tap reports a short grab. With several manipulables on one node the manipulator then
// moves on to the next one.
func (mb *Manipulable) Tap(actor *Manipulator) bool {
	m, ok := mb.manipulation(actor, EventTap)
	if !ok {
		return false
	}
	mb.fire(&mb.onTap, EventTap, m)
	m.cycle()
	return true
}

func (mb *Manipulable) LongHold(actor *Manipulator) bool {
	m, ok := mb.manipulation(actor, EventLongHold)
	if !ok {
		return false
	}
	mb.fire(&mb.onLongHold, EventLongHold, m)
	return true
}

// end forces release if needed, reports the exit and forgets the manipulation.
func (mb *Manipulable) end(m *Manipulation) {
	actor := m.manipulator
	if m.grabbed {
		actor.unbind(mb)
		mb.release(m, true)
	}
	if mb.manipulations[actor] != m {
		// a release observer already ended it
		return
	}
	mb.fire(&mb.onExit, EventExit, m)
	delete(mb.manipulations, actor)
	mb.order = slices.DeleteFunc(mb.order, func(a *Manipulator) bool { return a == actor })
	m.destroy()
}

// EndAllManipulations releases and exits every manipulator, regardless of the
// interactable state.
func (mb *Manipulable) EndAllManipulations() {
	for _, actor := range slices.Clone(mb.order) {
		m := mb.manipulations[actor]
		if m == nil {
			continue
		}
		mb.end(m)
		actor.unhover(mb)
	}
}

// Destroy ends every manipulation and detaches the manipulable from its node.
func (mb *Manipulable) Destroy() {
	if mb.destroyed {
		return
	}
	mb.EndAllManipulations()
	mb.destroyed = true
	mb.node.RemoveComponent(mb)
}

// GrabPositionOf returns where actor's grab point should be while it grabs.
func (mb *Manipulable) GrabPositionOf(m *Manipulation) spatial.Vec3 {
	if mb.grabPositions != nil {
		return mb.grabPositions.UpdatedGrabPosition(m)
	}
	return m.manipulator.TargetGrabPosition()
}

// OffsetEulersFor returns the angles actor measures yaw offsets against.
func (mb *Manipulable) OffsetEulersFor(actor *Manipulator) spatial.Vec3 {
	if mb.eulers != nil {
		return mb.eulers.OffsetEulers(actor)
	}
	return spatial.ToEuler(mb.node.Rotation())
}

// DepthControl reports whether manipulators may push or pull the grab point.
func (mb *Manipulable) DepthControl() bool {
	return mb.depth == nil || mb.depth.SupportsDepthControl()
}

// ApproxRadius is the length of the largest collider extents under the target.
func (mb *Manipulable) ApproxRadius() float64 { return ApproxRadius(mb.Target(), true) }

// ApproxBounds encapsulates the target position and its collider bounds.
func (mb *Manipulable) ApproxBounds() physics.Bounds { return ApproxBounds(mb.Target()) }

// ApproxRadius measures the collider extents below target. With worldScale false the
// radius is expressed in the space of target's parent.
func ApproxRadius(target *spatial.Node, worldScale bool) float64 {
	var extents spatial.Vec3
	for _, c := range physics.CollidersIn(target) {
		extents = physics.MaxExtents(extents, c.Bounds().Extents)
	}
	if worldScale || target.Parent() == nil {
		return extents.Len()
	}
	ps := target.Parent().LossyScale()
	local := target.Parent().Rotation().Inverse().Rotate(extents)
	for i := range 3 {
		if ps[i] != 0 {
			local[i] /= ps[i]
		}
	}
	return local.Len()
}

func ApproxBounds(target *spatial.Node) physics.Bounds {
	b := physics.Bounds{Center: target.Position()}
	for _, c := range physics.CollidersIn(target) {
		b = b.Encapsulate(c.Bounds())
	}
	return b
}

// ConvertToWorld maps a point from grab space to world space.
func (mb *Manipulable) ConvertToWorld(p spatial.Vec3) spatial.Vec3 {
	return mb.grabSpace().TransformPoint(p)
}

// ConvertToLocal maps a world point into grab space.
func (mb *Manipulable) ConvertToLocal(p spatial.Vec3) spatial.Vec3 {
	return mb.grabSpace().InverseTransformPoint(p)
}

func (mb *Manipulable) grabSpace() *spatial.Node {
	if mb.grabMode == HoldTarget {
		return mb.Target()
	}
	return mb.node
}
