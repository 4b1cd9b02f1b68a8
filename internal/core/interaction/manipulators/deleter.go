package manipulators

import (
	"github.com/zeusync/grab/internal/core/events"
	"github.com/zeusync/grab/internal/core/interaction"
	"github.com/zeusync/grab/internal/core/observability/log"
	"github.com/zeusync/grab/internal/core/spatial"
	"github.com/zeusync/grab/internal/core/systems/physics"
)

// EventDeleted is published when an ItemDeleter destroys an object; the data is the
// object name.
const EventDeleted = "deleter.deleted"

const (
	defaultDeletionTime   = 0.5
	deletionAlignDegrees  = 20.0
	fastDeletionSpeedup   = 3.0
	fastDeletionAlignment = 4.0
)

// ItemDeleter is an ItemHolder that swallows objects: once an object only it holds is
// pushed onto or towards its deletion point, the object stops being interactable, shrinks
// into the deletion point and is destroyed.
type ItemDeleter struct {
	*ItemHolder
	deletionOffset spatial.Vec3
	deletionTime   float64
	fast           bool

	target          *spatial.Node
	initialPosition spatial.Vec3
	initialScale    spatial.Vec3
	progress        float64

	onDeleted events.Observers[func(name string)]
}

func NewItemDeleter(s *interaction.Session, node *spatial.Node, opts ...interaction.ManipulatorOption) *ItemDeleter {
	d := &ItemDeleter{ItemHolder: &ItemHolder{}, deletionTime: defaultDeletionTime}
	d.setup(s, node, d, opts)
	return d
}

// SetDeletionOffset places the deletion point in the deleter's local space.
func (d *ItemDeleter) SetDeletionOffset(v spatial.Vec3) { d.deletionOffset = v }

// SetDeletionTime sets how long the shrinking takes; non-positive values are ignored.
func (d *ItemDeleter) SetDeletionTime(seconds float64) {
	if seconds > 0 {
		d.deletionTime = seconds
	}
}

// SetFastMode speeds deletions up and widens the alignment cone.
func (d *ItemDeleter) SetFastMode(fast bool) { d.fast = fast }
func (d *ItemDeleter) FastMode() bool        { return d.fast }

// DeletionPosition is the world position objects shrink into.
func (d *ItemDeleter) DeletionPosition() spatial.Vec3 {
	return d.Node().TransformPoint(d.deletionOffset)
}

// Deleting returns the object being deleted, or nil.
func (d *ItemDeleter) Deleting() *spatial.Node { return d.target }

func (d *ItemDeleter) OnDeleted(fn func(name string)) func() { return d.onDeleted.Add(fn) }

func (d *ItemDeleter) FixedUpdate(dt float64) {
	d.ItemHolder.FixedUpdate(dt)
	if d.target != nil && d.target.IsDestroyed() {
		d.target = nil
	}
	if d.target == nil && d.shouldDelete() {
		d.begin(d.CurrentManipulable())
	}
	if d.target != nil {
		d.advance()
	}
}

func (d *ItemDeleter) shouldDelete() bool {
	mb := d.CurrentManipulable()
	if mb == nil || !mb.IsGrabbedBy(d.Manipulator) || mb.GrabCount() != 1 {
		return false
	}
	pos, goal, del := mb.Target().Position(), d.TargetGrabPosition(), d.DeletionPosition()
	if spatial.Distance(pos, goal) < d.ReleaseRange()*0.4 {
		return true
	}
	cone := deletionAlignDegrees
	if d.fast {
		cone *= fastDeletionAlignment
	}
	return spatial.Angle(pos.Sub(del), goal.Sub(del)) < cone
}

func (d *ItemDeleter) begin(mb *interaction.Manipulable) {
	target := mb.Target()
	for _, m := range spatial.ComponentsInChildren[*interaction.Manipulable](target) {
		m.SetInteractable(false)
	}
	d.Release(false)
	if b, ok := physics.BodyOf(target); ok && b.Node() == target {
		b.SetVelocity(spatial.Zero)
		b.SetAngularVelocity(spatial.Zero)
		b.SetKinematic(true)
	}
	d.target = target
	d.initialPosition = target.Position()
	d.initialScale = target.LocalScale()
	d.progress = 0
	d.Log().Debug("deleting", log.String("target", target.Name()))
}

func (d *ItemDeleter) advance() {
	t := d.target
	t.SetPosition(spatial.Lerp(d.initialPosition, d.DeletionPosition(), d.progress))
	t.SetLocalScale(d.initialScale.Mul(1 - d.progress))
	speed := 1.0
	if d.fast {
		speed = fastDeletionSpeedup
	}
	d.progress += d.Session().FixedDeltaTime() * speed / d.deletionTime
	if d.progress < 1 {
		return
	}
	name := t.Name()
	d.target = nil
	t.Destroy()
	d.onDeleted.Each(func(fn func(string)) { fn(name) })
	d.Session().Publish(EventDeleted, d.Name(), name)
}

func (d *ItemDeleter) AimIntersection() (spatial.Vec3, spatial.Vec3) {
	return d.GrabPosition(), d.deletionOffset
}
