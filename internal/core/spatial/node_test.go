package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVec(t *testing.T, want, got Vec3) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, want[i], got[i], 1e-9, "component %d of %v vs %v", i, want, got)
	}
}

func TestWorldLocalRoundTrip(t *testing.T) {
	root := NewNode("root")
	root.SetPosition(Vec3{1, 2, 3})
	root.SetRotation(Euler(10, 45, -20))
	root.SetLocalScale(Vec3{2, 0.5, 1.5})

	child := NewNode("child")
	require.NoError(t, child.SetParent(root, false))
	child.SetLocalPosition(Vec3{0.3, -1, 4})
	child.SetLocalRotation(Euler(0, -90, 30))
	child.SetLocalScale(Vec3{0.7, 0.7, 0.7})

	for _, p := range []Vec3{{0, 0, 0}, {5, -3, 2}, {-0.25, 10, 7.5}} {
		local := child.InverseTransformPoint(p)
		assertVec(t, p, child.TransformPoint(local))
	}
}

func TestSetParentKeepWorld(t *testing.T) {
	a := NewNode("a")
	a.SetPosition(Vec3{10, 0, 0})
	a.SetRotation(AngleAxis(90, Up))

	n := NewNode("n")
	n.SetPosition(Vec3{1, 1, 1})
	require.NoError(t, n.SetParent(a, true))
	assertVec(t, Vec3{1, 1, 1}, n.Position())
	assert.InDelta(t, 0, QuatAngle(Identity(), n.Rotation()), 1e-6)

	a.SetPosition(Vec3{11, 0, 0})
	assertVec(t, Vec3{2, 1, 1}, n.Position())
}

func TestSetParentRejectsCycles(t *testing.T) {
	a, b := NewNode("a"), NewNode("b")
	require.NoError(t, b.SetParent(a, false))
	assert.ErrorIs(t, a.SetParent(b, false), ErrHierarchyCycle)
	assert.ErrorIs(t, a.SetParent(a, false), ErrHierarchyCycle)
}

func TestIsChildOfIncludesSelf(t *testing.T) {
	a, b, c := NewNode("a"), NewNode("b"), NewNode("c")
	require.NoError(t, b.SetParent(a, false))
	assert.True(t, b.IsChildOf(b))
	assert.True(t, b.IsChildOf(a))
	assert.False(t, a.IsChildOf(b))
	assert.False(t, c.IsChildOf(a))
	assert.False(t, c.IsChildOf(nil))
}

func TestLossyScale(t *testing.T) {
	a := NewNode("a")
	a.SetLocalScale(Vec3{2, 2, 2})
	b := NewNode("b")
	require.NoError(t, b.SetParent(a, false))
	b.SetLocalScale(Vec3{0.5, 3, 1})
	assertVec(t, Vec3{1, 6, 2}, b.LossyScale())
	assert.InDelta(t, 2, a.UniformScale(), 1e-9)
}

type marker struct{ id int }

func TestComponentLookup(t *testing.T) {
	root := NewNode("root")
	mid := NewNode("mid")
	leaf := NewNode("leaf")
	require.NoError(t, mid.SetParent(root, false))
	require.NoError(t, leaf.SetParent(mid, false))
	root.AddComponent(&marker{id: 1})
	mid.AddComponent(&marker{id: 2})
	mid.AddComponent("not a marker")

	m, ok := ComponentInParent[*marker](leaf)
	require.True(t, ok)
	assert.Equal(t, 2, m.id)

	all := ComponentsInParent[*marker](leaf)
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[1].id)

	assert.Len(t, ComponentsInChildren[*marker](root), 2)
}

func TestDestroyRunsHooksChildrenFirst(t *testing.T) {
	root := NewNode("root")
	child := NewNode("child")
	require.NoError(t, child.SetParent(root, false))

	var order []string
	root.OnDestroy(func() { order = append(order, "root") })
	child.OnDestroy(func() { order = append(order, "child") })

	root.Destroy()
	root.Destroy()
	assert.Equal(t, []string{"child", "root"}, order)
	assert.True(t, child.IsDestroyed())
	assert.Empty(t, root.Children())
	assert.ErrorIs(t, child.SetParent(nil, false), ErrNodeDestroyed)
}

func TestRotationHelpers(t *testing.T) {
	q := LookRotation(Vec3{1, 0, 0}, Up)
	assertVec(t, Vec3{1, 0, 0}, q.Rotate(Forward))
	assertVec(t, Up, q.Rotate(Up))

	angle, axis := ToAngleAxis(AngleAxis(30, Vec3{0, 2, 0}))
	assert.InDelta(t, 30, angle, 1e-6)
	assertVec(t, Up, axis)

	assert.InDelta(t, 90, Yaw(AngleAxis(90, Up)), 1e-9)
	assert.InDelta(t, 45, QuatAngle(Identity(), Slerp(Identity(), AngleAxis(90, Up), 0.5)), 1e-6)
	assertVec(t, Vec3{0, 0, 1}, FromToRotation(Up, Forward).Rotate(Up))
}

func TestVectorHelpers(t *testing.T) {
	assert.InDelta(t, 90, Angle(Up, Right), 1e-9)
	assertVec(t, Vec3{0, 2, 0}, Project(Vec3{3, 2, 0}, Up))
	assertVec(t, Vec3{3, 0, 0}, ProjectOnPlane(Vec3{3, 2, 0}, Up))
	assert.Equal(t, Zero, Normalize(Zero))
	assert.InDelta(t, 0.25, InverseLerp(1, 5, 2), 1e-9)
	mid := SlerpVec(Right, Up, 0.5)
	assert.InDelta(t, 45, Angle(mid, Right), 1e-6)
	assert.InDelta(t, 1, mid.Len(), 1e-9)
}

func TestToEulerRoundTrip(t *testing.T) {
	for _, e := range []Vec3{{10, 20, 30}, {0, 270, 0}, {350, 45, 5}, {0, 0, 0}} {
		got := ToEuler(EulerVec(e))
		assert.InDelta(t, 0, QuatAngle(EulerVec(e), EulerVec(got)), 1e-6, "euler %v -> %v", e, got)
	}
	assertVec(t, Vec3{10, 20, 30}, ToEuler(Euler(10, 20, 30)))
	assert.InDelta(t, 270, ToEuler(AngleAxis(-90, Up))[1], 1e-9)

	locked := Euler(90, 30, 0)
	assert.InDelta(t, 0, QuatAngle(locked, EulerVec(ToEuler(locked))), 1e-6)
}

func TestSignedAngle(t *testing.T) {
	assert.InDelta(t, -90, SignedAngle(270), 1e-9)
	assert.InDelta(t, 180, SignedAngle(-180), 1e-9)
	assert.InDelta(t, 10, SignedAngle(730), 1e-9)
}
