package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/grab/internal/core/observability/log"
	"github.com/zeusync/grab/internal/core/spatial"
	"github.com/zeusync/grab/internal/core/systems/physics"
)

func newWorld(t *testing.T) *World {
	t.Helper()
	return New(DefaultConfig(), log.NewNop())
}

func TestRaycastHitsClosestCollider(t *testing.T) {
	w := newWorld(t)
	near := spatial.NewNode("near")
	near.SetPosition(spatial.Vec3{0, 0, 5})
	far := spatial.NewNode("far")
	far.SetPosition(spatial.Vec3{0, 0, 10})
	_, err := w.AttachSphere(near, 0.5)
	require.NoError(t, err)
	_, err = w.AttachBox(far, spatial.Vec3{1, 1, 1})
	require.NoError(t, err)

	hit, ok := w.Raycast(spatial.Zero, spatial.Forward, 100, 0)
	require.True(t, ok)
	assert.Same(t, near, hit.Collider.Node())
	assert.InDelta(t, 4.5, hit.Distance, 1e-9)
	assert.InDelta(t, -1, hit.Normal[2], 1e-9)
}

func TestRaycastBoxNormalAndLayers(t *testing.T) {
	w := newWorld(t)
	box := spatial.NewNode("box")
	box.SetPosition(spatial.Vec3{0, 0, 3})
	box.SetLocalScale(spatial.Vec3{2, 2, 2})
	_, err := w.AttachBox(box, spatial.Vec3{1, 1, 1}, WithLayer(physics.LayerUI))
	require.NoError(t, err)

	_, ok := w.Raycast(spatial.Zero, spatial.Forward, 100, physics.DefaultIgnoreLayers)
	assert.False(t, ok, "ignored layer must not be hit")

	hit, ok := w.Raycast(spatial.Zero, spatial.Forward, 100, 0)
	require.True(t, ok)
	assert.InDelta(t, 2, hit.Distance, 1e-9)
	assert.InDelta(t, -1, hit.Normal[2], 1e-9)

	_, ok = w.Raycast(spatial.Zero, spatial.Forward, 1.5, 0)
	assert.False(t, ok, "hit beyond max distance")
}

func TestTriggersAreInvisibleToQueries(t *testing.T) {
	w := newWorld(t)
	n := spatial.NewNode("trigger")
	_, err := w.AttachSphere(n, 1, AsTrigger())
	require.NoError(t, err)

	assert.Empty(t, w.OverlapSphere(spatial.Zero, 1, 0))
	_, ok := w.Raycast(spatial.Vec3{0, 0, -5}, spatial.Forward, 10, 0)
	assert.False(t, ok)
}

func TestOverlapSphereOrderAndShapes(t *testing.T) {
	w := newWorld(t)
	a := spatial.NewNode("a")
	a.SetPosition(spatial.Vec3{0.3, 0, 0})
	b := spatial.NewNode("b")
	b.SetPosition(spatial.Vec3{-0.3, 0, 0})
	c := spatial.NewNode("c")
	c.SetPosition(spatial.Vec3{50, 0, 0})
	_, _ = w.AttachBox(a, spatial.Vec3{0.2, 0.2, 0.2})
	_, _ = w.AttachSphere(b, 0.1)
	_, _ = w.AttachSphere(c, 0.1)

	got := w.OverlapSphere(spatial.Zero, 0.25, 0)
	require.Len(t, got, 2)
	assert.Same(t, a, got[0].Node())
	assert.Same(t, b, got[1].Node())
}

func TestOverlapSphereSeesMovedNodes(t *testing.T) {
	w := newWorld(t)
	n := spatial.NewNode("n")
	_, _ = w.AttachSphere(n, 0.1)
	require.Len(t, w.OverlapSphere(spatial.Zero, 0.2, 0), 1)

	n.SetPosition(spatial.Vec3{10, 10, 10})
	assert.Empty(t, w.OverlapSphere(spatial.Zero, 0.2, 0))
	assert.Len(t, w.OverlapSphere(spatial.Vec3{10, 10, 10}, 0.2, 0), 1)
}

func TestStepIntegratesForcesAndGravity(t *testing.T) {
	w := newWorld(t)
	n := spatial.NewNode("body")
	b, err := w.AttachBody(n, BodyConfig{Mass: 2, UseGravity: false})
	require.NoError(t, err)

	b.AddForce(spatial.Vec3{4, 0, 0})
	w.Step(0.5)
	assert.InDelta(t, 1, b.Velocity()[0], 1e-9)
	assert.InDelta(t, 0.5, n.Position()[0], 1e-9)
	assert.Equal(t, spatial.Zero, b.PendingForce())

	b.SetUseGravity(true)
	w.Step(0.1)
	assert.InDelta(t, -0.981, b.Velocity()[1], 1e-9)
}

func TestForceAtPositionProducesTorque(t *testing.T) {
	w := newWorld(t)
	n := spatial.NewNode("body")
	_, _ = w.AttachSphere(n, 0.5)
	b, _ := w.AttachBody(n, BodyConfig{Mass: 1})

	b.AddForceAtPosition(spatial.Vec3{0, 0, 1}, spatial.Vec3{1, 0, 0})
	w.Step(0.02)
	assert.Less(t, b.AngularVelocity()[1], 0.0)
}

func TestConstraintsAndKinematic(t *testing.T) {
	w := newWorld(t)
	n := spatial.NewNode("frozen")
	b, _ := w.AttachBody(n, BodyConfig{Mass: 1, UseGravity: true, Constraints: physics.FreezePositionY})
	w.Step(1)
	assert.Zero(t, b.Velocity()[1])

	k := spatial.NewNode("kinematic")
	kb, _ := w.AttachBody(k, BodyConfig{Mass: 1, UseGravity: true, Kinematic: true})
	kb.AddForce(spatial.Vec3{10, 0, 0})
	w.Step(1)
	assert.Equal(t, spatial.Zero, k.Position())
	assert.Equal(t, spatial.Zero, kb.PendingForce())
}

func TestAttachValidation(t *testing.T) {
	w := newWorld(t)
	n := spatial.NewNode("n")
	_, err := w.AttachBody(n, BodyConfig{Mass: 0})
	assert.ErrorIs(t, err, ErrInvalidMass)
	_, err = w.AttachBody(n, BodyConfig{Mass: 1})
	require.NoError(t, err)
	_, err = w.AttachBody(n, BodyConfig{Mass: 1})
	assert.ErrorIs(t, err, ErrAlreadyAttached)
	_, err = w.AttachSphere(n, 0)
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestFloorStopsFallingBody(t *testing.T) {
	cfg := DefaultConfig()
	floor := 0.0
	cfg.Floor = &floor
	w := New(cfg, log.NewNop())
	n := spatial.NewNode("ball")
	n.SetPosition(spatial.Vec3{0, 1, 0})
	_, _ = w.AttachSphere(n, 0.25)
	b, _ := w.AttachBody(n, DefaultBodyConfig())

	for range 200 {
		w.Step(0.02)
	}
	assert.True(t, b.Grounded())
	assert.InDelta(t, 0.25, n.Position()[1], 1e-6)
	assert.Less(t, b.Velocity().LenSqr(), 0.01)
}

func TestDestroyedNodeLeavesWorld(t *testing.T) {
	w := newWorld(t)
	parent := spatial.NewNode("parent")
	child := spatial.NewNode("child")
	require.NoError(t, child.SetParent(parent, false))
	_, _ = w.AttachSphere(child, 1)
	_, _ = w.AttachBody(parent, DefaultBodyConfig())

	parent.Destroy()
	assert.Empty(t, w.OverlapSphere(spatial.Zero, 1, 0))
	assert.Empty(t, w.bodies)
}

func TestBodyOfWalksAncestors(t *testing.T) {
	w := newWorld(t)
	root := spatial.NewNode("root")
	handle := spatial.NewNode("handle")
	require.NoError(t, handle.SetParent(root, false))
	col, _ := w.AttachSphere(handle, 0.1)
	b, _ := w.AttachBody(root, DefaultBodyConfig())

	got, ok := col.Body()
	require.True(t, ok)
	assert.Same(t, b, got)

	bounds, ok := physics.BoundsOf(root)
	require.True(t, ok)
	assert.InDelta(t, 0.1, bounds.Extents[0], 1e-9)
}
