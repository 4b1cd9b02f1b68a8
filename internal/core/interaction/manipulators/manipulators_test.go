package manipulators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/grab/internal/core/device"
	"github.com/zeusync/grab/internal/core/interaction"
	"github.com/zeusync/grab/internal/core/interaction/manipulables"
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
	session *interaction.Session
	logs    *observer.ObservedLogs
	dev     *device.Device
	haptics *device.HapticRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sched, err := systems.NewScheduler(step)
	require.NoError(t, err)
	world := sim.New(sim.DefaultConfig(), log.NewNop())
	sched.Register(world)
	core, logs := observer.New(zapcore.DebugLevel)
	logger := log.NewWithCore(core)

	rec := &device.HapticRecorder{}
	dev := device.New(logger, sched, device.WithHaptics(rec))
	sched.Register(dev)
	dev.Connect("test")
	return &harness{
		t:       t,
		sched:   sched,
		world:   world,
		session: interaction.NewSession(sched, world, logger, interaction.WithDevice(dev)),
		logs:    logs,
		dev:     dev,
		haptics: rec,
	}
}

func (h *harness) tick(frames int) {
	for range frames {
		h.sched.Tick(step)
	}
}

// sphere is a collider-only node.
func (h *harness) sphere(name string, pos spatial.Vec3, radius float64) *spatial.Node {
	h.t.Helper()
	n := spatial.NewNode(name)
	n.SetPosition(pos)
	_, err := h.world.AttachSphere(n, radius)
	require.NoError(h.t, err)
	return n
}

// crate is a weightless positionable sphere.
func (h *harness) crate(name string, pos spatial.Vec3, radius float64) (*spatial.Node, *manipulables.Positionable) {
	h.t.Helper()
	n := h.sphere(name, pos, radius)
	_, err := h.world.AttachBody(n, sim.BodyConfig{Mass: 1})
	require.NoError(h.t, err)
	return n, manipulables.NewPositionable(h.session, n)
}

// aimer is a manipulator aimed by hand.
type aimer struct {
	*interaction.Manipulator
	aim physics.Collider
}

func (p *aimer) FindTargetCollider() physics.Collider {
	if p.aim != nil {
		return p.aim
	}
	return p.CurrentCollider()
}

func (h *harness) aimer(name string, pos spatial.Vec3) *aimer {
	p := &aimer{}
	node := spatial.NewNode(name)
	node.SetPosition(pos)
	p.Manipulator = interaction.NewManipulator(h.session, node, p)
	return p
}

func assertNear(t *testing.T, want, got spatial.Vec3, delta float64) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, want[i], got[i], delta, "component %d of %v vs %v", i, want, got)
	}
}

func TestLaserTargetsForwardHit(t *testing.T) {
	h := newHarness(t)
	ball := h.sphere("ball", spatial.Vec3{0, 0, 5}, 0.5)
	mb := manipulables.NewCentred(h.session, ball)
	l := NewLaser(h.session, spatial.NewNode("laser"))

	h.tick(2)
	assert.Same(t, mb.Manipulable, l.CurrentManipulable())
	hit, ok := l.Hit()
	require.True(t, ok)
	assert.InDelta(t, 4.5, hit.Distance, 1e-9)
	assertNear(t, spatial.Vec3{0, 0, 4.5}, l.TargetGrabPosition(), 1e-9)

	path := l.Path()
	require.Len(t, path, h.session.Tuning().LaserPoints)
	assertNear(t, spatial.Zero, path[0], 1e-12)
	assertNear(t, l.GrabPosition(), path[len(path)-1], 1e-9)
}

func TestLaserKeepsLockAlongBentPath(t *testing.T) {
	h := newHarness(t)
	ball := h.sphere("ball", spatial.Vec3{0, 0, 5}, 0.5)
	mb := manipulables.NewCentred(h.session, ball, manipulables.WithRecentreTime(0))
	l := NewLaser(h.session, spatial.NewNode("laser"))
	h.tick(2)

	l.Grab()
	assert.InDelta(t, 4.5, l.InitialDepth(), 1e-9)
	h.tick(2)
	l.Node().SetRotation(spatial.AngleAxis(20, spatial.Up))
	h.tick(5)

	assert.True(t, l.IsInteracting())
	assert.Same(t, mb.Manipulable, l.CurrentManipulable())
	path := l.Path()
	assertNear(t, spatial.Vec3{0, 0, 5}, path[len(path)-1], 1e-9)

	l.Release(false)
	h.tick(2)
	assert.Nil(t, l.CurrentManipulable(), "a straight ray misses once the lock is gone")
}

func TestLaserWidthFollowsScale(t *testing.T) {
	h := newHarness(t)
	scale := device.NewScaleNotifier()
	s := interaction.NewSession(h.sched, h.world, log.NewNop(), interaction.WithScale(scale))
	l := NewLaser(s, spatial.NewNode("laser"))
	assert.InDelta(t, 1, l.Width(), 1e-12)
	scale.SetScale(4)
	assert.InDelta(t, 0.25, l.Width(), 1e-12)
}

func TestVirtualPointerTouches(t *testing.T) {
	h := newHarness(t)
	ball := h.sphere("ball", spatial.Vec3{0, 0, 5}, 0.5)
	manipulables.NewCentred(h.session, ball)
	v := NewVirtualPointer(h.session, spatial.NewNode("virtual"))
	h.tick(2)

	v.StartTouch()
	assert.False(t, v.IsGrabbing(), "touches apply in the update phase")
	h.tick(1)
	require.True(t, v.IsGrabbingManipulable())
	assertNear(t, spatial.Vec3{0, 0, 4.5}, v.TargetGrabPosition(), 1e-9)

	v.SetDepthFactor(2)
	h.tick(1)
	assertNear(t, spatial.Vec3{0, 0, 9}, v.TargetGrabPosition(), 1e-9)
	v.SetDepthFactor(20)
	assert.InDelta(t, maxVirtualDepthFactor, v.DepthFactor(), 1e-12)

	v.StartTouch()
	v.EndTouch()
	h.tick(1)
	assert.True(t, v.IsGrabbing(), "a start requested in the same frame wins")
	h.tick(1)
	assert.False(t, v.IsGrabbing())
}

func TestPointerFollowsDevice(t *testing.T) {
	h := newHarness(t)
	ball := h.sphere("ball", spatial.Vec3{0, 0, 5}, 0.5)
	mb := manipulables.NewCentred(h.session, ball)
	taps := 0
	mb.OnTap(func(*interaction.Manipulation) { taps++ })
	p := NewPointer(h.session, spatial.NewNode("pointer"))

	h.tick(2)
	assert.Contains(t, h.haptics.Played, device.SharpTick3_60)

	h.dev.StartTouch(spatial.Vec2{0.5, 0.5}, spatial.Vec2{})
	assert.True(t, p.IsGrabbingManipulable())
	h.tick(3)
	h.dev.EndTouch(spatial.Vec2{0.5, 0.5}, spatial.Vec2{})
	assert.False(t, p.IsGrabbing())
	assert.Equal(t, 1, taps)

	p.Node().SetRotation(spatial.AngleAxis(90, spatial.Up))
	h.tick(1)
	assert.Nil(t, p.CurrentManipulable())
	assert.Equal(t, device.SoftBump30, h.haptics.Played[len(h.haptics.Played)-1])
}

func TestPointerTwistSetsDepth(t *testing.T) {
	for _, tc := range []struct {
		name  string
		hand  device.Handedness
		twist float64
	}{
		{"right hand twists clockwise", device.RightHanded, 60},
		{"left hand twists anticlockwise", device.LeftHanded, -60},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.dev.SetHandedness(tc.hand)
			manipulables.NewCentred(h.session, h.sphere("ball", spatial.Vec3{0, 0, 5}, 0.5))
			p := NewPointer(h.session, spatial.NewNode("pointer"))
			h.tick(2)

			h.dev.StartTouch(spatial.Vec2{0.5, 0.5}, spatial.Vec2{})
			h.dev.SetTwist(tc.twist)
			h.tick(1)
			assertNear(t, spatial.Vec3{0, 0, 4.5 * defaultMaxDepthFactor}, p.TargetGrabPosition(), 1e-9)

			h.tick(1)
			assert.Greater(t, p.TargetGrabPosition()[2], 4.5*defaultMaxDepthFactor, "the range stretches at the far end")
		})
	}
}

func TestPointerClutchRollSnaps(t *testing.T) {
	h := newHarness(t)
	h.dev.SetGripType(device.GripClutch)
	manipulables.NewCentred(h.session, h.sphere("ball", spatial.Vec3{0, 0, 5}, 0.5))
	p := NewPointer(h.session, spatial.NewNode("pointer"))
	h.tick(2)

	h.dev.StartTouch(spatial.Vec2{0.5, 0.5}, spatial.Vec2{})
	h.dev.SetTwist(20)
	assert.InDelta(t, 0, spatial.QuatAngle(spatial.Identity(), p.OffsetRotation()), 1e-6)
	h.dev.SetTwist(50)
	assert.InDelta(t, 0, spatial.QuatAngle(spatial.AngleAxis(90, spatial.Forward), p.OffsetRotation()), 1e-6)
}

func TestItemHolderPicksUpPositionables(t *testing.T) {
	h := newHarness(t)
	holder := NewItemHolder(h.session, spatial.NewNode("holder"))
	manipulables.NewCentred(h.session, h.sphere("label", spatial.Vec3{0, 0.1, 0}, 0.05))
	_, crate := h.crate("crate", spatial.Vec3{0, 0, 0.1}, 0.05)
	taps := 0
	crate.OnTap(func(*interaction.Manipulation) { taps++ })

	h.tick(2)
	assert.Same(t, crate.Manipulable, holder.CurrentManipulable())
	assert.True(t, holder.IsGrabbingManipulable())

	holder.Node().SetPosition(spatial.Vec3{10, 0, 0})
	h.tick(2)
	assert.False(t, holder.IsGrabbingManipulable())
	assert.Nil(t, holder.CurrentManipulable())
	assert.Zero(t, taps, "holders never tap")
}

func TestItemDeleterDestroysHeldObject(t *testing.T) {
	h := newHarness(t)
	d := NewItemDeleter(h.session, spatial.NewNode("bin"))
	d.SetDeletionOffset(spatial.Vec3{0, -1, 0})
	var deleted []string
	d.OnDeleted(func(name string) { deleted = append(deleted, name) })
	obj, crate := h.crate("crate", spatial.Vec3{0, 0, 0.1}, 0.05)

	h.tick(2)
	require.Same(t, obj, d.Deleting())
	assert.False(t, crate.Interactable())
	assert.False(t, d.IsGrabbingManipulable())

	h.tick(12)
	assert.Less(t, obj.LocalScale()[0], 0.6)
	assert.False(t, obj.IsDestroyed())

	h.tick(15)
	assert.True(t, obj.IsDestroyed())
	assert.Nil(t, d.Deleting())
	assert.Equal(t, []string{"crate"}, deleted)
}

func (h *harness) spawner(spawn Factory) *ItemSpawner {
	icon := func(parent *spatial.Node) (*spatial.Node, error) {
		n := spatial.NewNode("icon")
		if err := n.SetParent(parent, false); err != nil {
			return nil, err
		}
		if _, err := h.world.AttachSphere(n, 0.5); err != nil {
			return nil, err
		}
		_, err := h.world.AttachBody(n, sim.BodyConfig{Mass: 1})
		return n, err
	}
	return NewItemSpawner(h.session, spatial.NewNode("spawner"), SpawnerConfig{Spawn: spawn, Icon: icon})
}

func TestItemSpawnerHandsOverSpawnedObject(t *testing.T) {
	h := newHarness(t)
	var spawned []*spatial.Node
	sp := h.spawner(func(parent *spatial.Node) (*spatial.Node, error) {
		n, _ := h.crate("crate", spatial.Zero, 0.5)
		return n, nil
	})
	sp.OnSpawn(func(n *spatial.Node) { spawned = append(spawned, n) })
	holder := NewItemHolder(h.session, spatial.NewNode("holder"))

	h.tick(30)
	icon := sp.Icon()
	require.NotNil(t, icon)
	assert.True(t, sp.IsGrabbingManipulable())
	assert.Nil(t, holder.CurrentManipulable(), "icons held by a spawner are left alone")
	assert.InDelta(t, 1, icon.LocalScale()[0], 0.02)

	p := h.aimer("hand", spatial.Zero)
	p.aim = physics.CollidersIn(icon)[0]
	h.tick(1)
	p.Grab()
	p.aim = nil
	require.Len(t, sp.Holders(), 1)

	icon.SetPosition(spatial.Vec3{1, 0, 0})
	p.Node().SetPosition(spatial.Vec3{1, 0, 0})
	h.tick(2)
	require.Len(t, spawned, 1)
	assert.Empty(t, sp.Holders())
	assert.True(t, p.IsGrabbingManipulable())
	mb := p.CurrentManipulable()
	require.NotNil(t, mb)
	assert.Same(t, spawned[0], mb.Node())
	assertNear(t, spatial.Vec3{1, 0, 0}, spawned[0].Position(), 0.25)
	assertNear(t, spatial.Zero, icon.LocalScale(), 1e-12)
}

func TestItemSpawnerWithoutPositionableLetsGo(t *testing.T) {
	h := newHarness(t)
	sp := h.spawner(func(parent *spatial.Node) (*spatial.Node, error) {
		return h.sphere("rock", spatial.Zero, 0.5), nil
	})
	h.tick(30)
	p := h.aimer("hand", spatial.Zero)
	p.aim = physics.CollidersIn(sp.Icon())[0]
	h.tick(1)
	p.Grab()
	p.aim = nil

	sp.Icon().SetPosition(spatial.Vec3{1, 0, 0})
	p.Node().SetPosition(spatial.Vec3{1, 0, 0})
	h.tick(2)
	assert.False(t, p.IsGrabbing())
	assert.Equal(t, 1, h.logs.FilterMessage("spawned object has no positionable manipulable and cannot be carried").Len())
}

func TestItemSpawnerIconErrors(t *testing.T) {
	h := newHarness(t)
	NewItemSpawner(h.session, spatial.NewNode("spawner"), SpawnerConfig{
		Spawn: func(*spatial.Node) (*spatial.Node, error) { return spatial.NewNode("bare"), nil },
	})
	h.tick(5)
	logs := h.logs.FilterMessage("cannot generate spawner icon").All()
	require.Len(t, logs, 1, "the failure is reported once")
	assert.Contains(t, logs[0].ContextMap()["error"], ErrIconNoCollider.Error())
}
