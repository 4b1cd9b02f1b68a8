package interaction

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/grab/internal/core/events/bus"
	"github.com/zeusync/grab/internal/core/observability/log"
	"github.com/zeusync/grab/internal/core/spatial"
	"github.com/zeusync/grab/internal/core/systems"
	"github.com/zeusync/grab/internal/core/systems/physics"
	"github.com/zeusync/grab/internal/core/systems/physics/sim"
)

const step = 0.02

type harness struct {
	t       *testing.T
	sched   *systems.Scheduler
	world   *sim.World
	session *Session
	logs    *observer.ObservedLogs
}

func newHarness(t *testing.T, opts ...SessionOption) *harness {
	t.Helper()
	sched, err := systems.NewScheduler(step)
	require.NoError(t, err)
	world := sim.New(sim.DefaultConfig(), log.NewNop())
	sched.Register(world)
	core, logs := observer.New(zapcore.DebugLevel)
	return &harness{
		t:       t,
		sched:   sched,
		world:   world,
		session: NewSession(sched, world, log.NewWithCore(core), opts...),
		logs:    logs,
	}
}

func (h *harness) tick(frames int) {
	for range frames {
		h.sched.Tick(step)
	}
}

// object creates a node with a sphere collider.
func (h *harness) object(name string, pos spatial.Vec3) *spatial.Node {
	h.t.Helper()
	n := spatial.NewNode(name)
	n.SetPosition(pos)
	_, err := h.world.AttachSphere(n, 0.5)
	require.NoError(h.t, err)
	return n
}

// aimer is a manipulator pointed at whatever collider the test chooses.
type aimer struct {
	*Manipulator
	aim physics.Collider
}

func (p *aimer) FindTargetCollider() physics.Collider { return p.aim }

func (h *harness) aimer(name string, opts ...ManipulatorOption) *aimer {
	p := &aimer{}
	p.Manipulator = NewManipulator(h.session, spatial.NewNode(name), p, opts...)
	return p
}

func (p *aimer) pointAt(n *spatial.Node) {
	p.aim = nil
	if n != nil {
		p.aim = physics.CollidersIn(n)[0]
	}
}

// recorder logs behaviour hooks and observer events in order.
type recorder struct {
	events []string
	grabAt *spatial.Vec3
}

func (r *recorder) InitializeManipulation(*Manipulation) { r.events = append(r.events, "init") }
func (r *recorder) PerformManipulation(*Manipulation)    {}
func (r *recorder) FinalizeManipulation(*Manipulation)   { r.events = append(r.events, "finalize") }

func (r *recorder) UpdatedGrabPosition(m *Manipulation) spatial.Vec3 {
	if r.grabAt != nil {
		return *r.grabAt
	}
	return m.Manipulator().TargetGrabPosition()
}

func (r *recorder) watch(mb *Manipulable) {
	add := func(name string) ManipulationHandler {
		return func(m *Manipulation) {
			if name == "release" && m.EndedByExit() {
				r.events = append(r.events, "release(exit)")
				return
			}
			r.events = append(r.events, name)
		}
	}
	mb.OnEnter(add("enter"))
	mb.OnExit(add("exit"))
	mb.OnGrab(add("grab"))
	mb.OnRelease(add("release"))
	mb.OnTap(add("tap"))
	mb.OnLongHold(add("long_hold"))
}

func (r *recorder) count(name string) int {
	n := 0
	for _, e := range r.events {
		if e == name {
			n++
		}
	}
	return n
}

func (h *harness) manipulable(name string) (*Manipulable, *recorder) {
	rec := &recorder{}
	mb := NewManipulable(h.session, h.object(name, spatial.Vec3{0, 0, 2}), rec)
	rec.watch(mb)
	return mb, rec
}

func TestEnterExitAreSymmetric(t *testing.T) {
	h := newHarness(t)
	a, recA := h.manipulable("a")
	b, recB := h.manipulable("b")
	p := h.aimer("aimer")

	p.pointAt(a.Node())
	h.tick(1)
	assert.Same(t, a, p.CurrentManipulable())
	assert.True(t, p.CouldGrab())

	p.pointAt(b.Node())
	h.tick(1)
	p.pointAt(nil)
	h.tick(1)

	assert.Equal(t, []string{"enter", "exit"}, recA.events)
	assert.Equal(t, []string{"enter", "exit"}, recB.events)
	assert.Nil(t, p.CurrentManipulable())
	assert.Same(t, b, p.LastManipulable())
	assert.Empty(t, a.Manipulations())
}

func TestTapOnShortGrab(t *testing.T) {
	h := newHarness(t)
	mb, rec := h.manipulable("button")
	p := h.aimer("aimer")
	p.pointAt(mb.Node())
	h.tick(1)

	p.Grab()
	assert.True(t, p.IsInteracting())
	assert.True(t, mb.IsGrabbedBy(p.Manipulator))
	h.tick(5)
	p.Release(true)

	assert.Equal(t, []string{"enter", "grab", "init", "release", "finalize", "tap"}, rec.events)
	assert.False(t, p.IsGrabbing())
	assert.False(t, mb.IsGrabbed())
}

func TestLongHoldFiresOnceAndSuppressesTap(t *testing.T) {
	h := newHarness(t)
	mb, rec := h.manipulable("lever")
	p := h.aimer("aimer")
	p.pointAt(mb.Node())
	h.tick(1)

	p.Grab()
	h.tick(30)
	p.Release(true)

	assert.Equal(t, 1, rec.count("long_hold"))
	assert.Zero(t, rec.count("tap"))
	assert.Equal(t, 1, rec.count("release"))
}

func TestGrabWithoutTargetIsUnbound(t *testing.T) {
	h := newHarness(t)
	p := h.aimer("aimer")
	p.Grab()
	assert.True(t, p.IsGrabbing())
	assert.False(t, p.IsGrabbingManipulable())

	mb, rec := h.manipulable("late")
	p.pointAt(mb.Node())
	h.tick(3)
	p.Release(true)
	assert.Equal(t, []string{"enter"}, rec.events, "grab gesture started before hover must not bind")
}

func TestSwitchingTargetWhileGrabbedReleasesByExit(t *testing.T) {
	h := newHarness(t)
	a, recA := h.manipulable("a")
	b, recB := h.manipulable("b")
	p := h.aimer("aimer")
	p.pointAt(a.Node())
	h.tick(1)
	p.Grab()
	h.tick(2)

	p.pointAt(b.Node())
	h.tick(3)

	assert.Equal(t, []string{"enter", "grab", "init", "release(exit)", "finalize", "exit"}, recA.events)
	assert.Equal(t, []string{"enter"}, recB.events)
	assert.True(t, p.IsGrabbing())
	assert.False(t, p.IsInteracting())

	p.Release(true)
	assert.Equal(t, []string{"enter"}, recB.events)
}

func TestForcedExitReleasesFirst(t *testing.T) {
	cases := map[string]func(mb *Manipulable, p *aimer){
		"not interactable":  func(mb *Manipulable, _ *aimer) { mb.SetInteractable(false) },
		"manipulable gone":  func(mb *Manipulable, _ *aimer) { mb.Node().Destroy() },
		"manipulator gone":  func(_ *Manipulable, p *aimer) { p.Node().Destroy() },
		"direct exit":       func(mb *Manipulable, p *aimer) { mb.Exit(p.Manipulator) },
		"end all":           func(mb *Manipulable, _ *aimer) { mb.EndAllManipulations() },
		"manipulable freed": func(mb *Manipulable, _ *aimer) { mb.Destroy() },
	}
	for name, end := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			mb, rec := h.manipulable("target")
			p := h.aimer("aimer")
			p.pointAt(mb.Node())
			h.tick(1)
			p.Grab()
			h.tick(2)

			end(mb, p)
			require.GreaterOrEqual(t, len(rec.events), 3)
			assert.Equal(t, []string{"release(exit)", "finalize", "exit"}, rec.events[len(rec.events)-3:])
			assert.Equal(t, 1, rec.count("release(exit)"))
			assert.Equal(t, 1, rec.count("exit"))
			assert.False(t, p.IsInteracting())
			assert.Empty(t, mb.Manipulations())

			p.pointAt(nil)
			h.tick(2)
			p.Release(true)
			assert.Equal(t, 1, rec.count("exit"), "no second exit")
			assert.Zero(t, rec.count("tap"))
		})
	}
}

func TestReleaseRangeReleasesExactlyOnce(t *testing.T) {
	h := newHarness(t)
	mb, rec := h.manipulable("far")
	p := h.aimer("aimer", WithReleaseRange(5))
	p.pointAt(mb.Node())
	h.tick(1)
	p.Grab()

	at := spatial.Vec3{4.9, 0, 0}
	rec.grabAt = &at
	h.tick(3)
	assert.Zero(t, rec.count("release"))
	assert.True(t, p.IsInteracting())

	at = spatial.Vec3{5.1, 0, 0}
	h.tick(5)
	assert.Equal(t, 1, rec.count("release"))
	assert.False(t, p.IsGrabbing())
}

func TestReleaseRangeFollowsScale(t *testing.T) {
	h := newHarness(t)
	p := h.aimer("aimer", WithReleaseRange(2))
	p.Node().SetLocalScale(spatial.Vec3{3, 3, 3})
	assert.InDelta(t, 6, p.ReleaseRange(), 1e-9)

	p.SetReleaseRange(-1)
	assert.False(t, p.ExceedsReleaseRange())
}

func TestToggleTapsCycleThroughManipulablesOnOneNode(t *testing.T) {
	h := newHarness(t)
	n := h.object("multi", spatial.Vec3{0, 0, 2})
	first := NewManipulable(h.session, n, nil)
	second := NewManipulable(h.session, n, nil)
	p := h.aimer("aimer")
	p.pointAt(n)
	h.tick(1)
	require.Same(t, first, p.CurrentManipulable())

	for i, want := range []*Manipulable{second, first, second} {
		p.Grab()
		h.tick(1)
		p.Release(true)
		h.tick(1)
		assert.Same(t, want, p.CurrentManipulable(), "after tap %d", i+1)
	}
}

func TestInvalidStateIsLoggedNotFatal(t *testing.T) {
	h := newHarness(t)
	mb, rec := h.manipulable("lonely")
	p := h.aimer("aimer")

	assert.False(t, mb.Stay(p.Manipulator))
	assert.False(t, mb.Grab(p.Manipulator))
	assert.Empty(t, rec.events)
	assert.Equal(t, 2, h.logs.FilterMessage("invalid manipulation state").Len())

	mb.SetInteractable(false)
	assert.False(t, mb.Enter(p.Manipulator))
	assert.False(t, mb.Tap(p.Manipulator))
	assert.Empty(t, rec.events)
	rejected := h.logs.FilterMessage("manipulable is not interactable")
	require.Equal(t, 2, rejected.Len())
	assert.Equal(t, string(EventEnter), rejected.All()[0].ContextMap()["event"])
	assert.Equal(t, string(EventTap), rejected.All()[1].ContextMap()["event"])
}

func TestGrabPositionFollowsTarget(t *testing.T) {
	h := newHarness(t)
	mb, _ := h.manipulable("crate")
	target := mb.Target()
	target.SetRotation(spatial.Euler(0, 90, 0))
	target.SetLocalScale(spatial.Vec3{2, 2, 2})

	p := h.aimer("aimer")
	p.pointAt(target)
	h.tick(1)
	m := p.CurrentManipulation()
	require.NotNil(t, m)

	world := spatial.Vec3{1, 0.5, 2.5}
	m.SetGrabPosition(world)
	assertNear(t, world, m.GrabPosition())

	target.SetPosition(target.Position().Add(spatial.Vec3{0, 1, 0}))
	assertNear(t, world.Add(spatial.Vec3{0, 1, 0}), m.GrabPosition())
}

func TestDefaultTargetIsClosestBody(t *testing.T) {
	h := newHarness(t)
	root := spatial.NewNode("root")
	_, err := h.world.AttachBody(root, sim.DefaultBodyConfig())
	require.NoError(t, err)
	handle := h.object("handle", spatial.Zero)
	require.NoError(t, handle.SetParent(root, false))

	mb := NewManipulable(h.session, handle, nil)
	assert.Same(t, root, mb.Target())
	_, ok := mb.TargetBody()
	assert.True(t, ok)

	bare := NewManipulable(h.session, h.object("bare", spatial.Zero), nil)
	assert.Same(t, bare.Node(), bare.Target())
}

func TestApproxRadiusAndBounds(t *testing.T) {
	h := newHarness(t)
	n := h.object("ball", spatial.Vec3{1, 0, 0})
	mb := NewManipulable(h.session, n, nil)
	assert.InDelta(t, 0.5*spatial.One.Len(), mb.ApproxRadius(), 1e-9)
	b := mb.ApproxBounds()
	assertNear(t, spatial.Vec3{1, 0, 0}, b.Center)
	assertNear(t, spatial.Vec3{0.5, 0.5, 0.5}, b.Extents)
}

func TestManipulatorIgnoresItsAncestors(t *testing.T) {
	h := newHarness(t)
	mb, _ := h.manipulable("carrier")
	p := h.aimer("aimer")
	require.NoError(t, p.Node().SetParent(mb.Node(), false))
	p.pointAt(mb.Node())
	h.tick(1)
	assert.Nil(t, p.CurrentManipulable())
}

func TestEventsArePublishedOnBus(t *testing.T) {
	b := bus.New()
	h := newHarness(t, WithBus(b, "interaction"))
	var got []ManipulationEvent
	_, err := b.SubscribeTopic("interaction", string(EventGrab), func(e bus.Event) error {
		got = append(got, e.Data().(ManipulationEvent))
		return nil
	})
	require.NoError(t, err)

	mb, _ := h.manipulable("published")
	p := h.aimer("aimer")
	p.pointAt(mb.Node())
	h.tick(1)
	p.Grab()

	require.Len(t, got, 1)
	assert.Equal(t, "aimer", got[0].Manipulator)
	assert.Equal(t, "published", got[0].Target)
	assert.True(t, got[0].Grabbed)
	assert.Equal(t, p.CurrentManipulation().ID().String(), got[0].Manipulation)
}

func TestIndicatorFollowsManipulator(t *testing.T) {
	h := newHarness(t)
	var made []*spatial.Node
	n := h.object("marked", spatial.Vec3{0, 0, 3})
	NewManipulable(h.session, n, nil, WithIndicator(func(m *Manipulation) *spatial.Node {
		ind := spatial.NewNode(fmt.Sprintf("indicator-%d", len(made)))
		made = append(made, ind)
		return ind
	}))
	p := h.aimer("aimer")
	p.pointAt(n)
	h.tick(2)

	require.Len(t, made, 1)
	assertNear(t, p.PointInFrontOfTarget(0), made[0].Position())

	p.pointAt(nil)
	h.tick(1)
	assert.True(t, made[0].IsDestroyed())

	hidden := h.aimer("hidden", WithoutIndicator())
	hidden.pointAt(n)
	h.tick(1)
	assert.Len(t, made, 1)
}

func assertNear(t *testing.T, want, got spatial.Vec3) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, want[i], got[i], 1e-9, "component %d of %v vs %v", i, want, got)
	}
}
