package spatial

import (
	"errors"
	"slices"

	"github.com/google/uuid"
)

var (
	ErrHierarchyCycle = errors.New("node cannot be parented to itself or a descendant")
	ErrNodeDestroyed  = errors.New("node is destroyed")
)

// Node is an entity in the scene hierarchy: a TRS transform with a parent, children and
// attached components. World-space accessors compose the local transforms of all ancestors.
type Node struct {
	id       uuid.UUID
	name     string
	parent   *Node
	children []*Node

	localPosition Vec3
	localRotation Quat
	localScale    Vec3

	components []any
	onDestroy  []func()
	destroyed  bool
	tags       map[string]struct{}
}

// NewNode creates a root node at the origin with identity rotation and unit scale.
func NewNode(name string) *Node {
	return &Node{
		id:            uuid.New(),
		name:          name,
		localRotation: Identity(),
		localScale:    One,
	}
}

func (n *Node) ID() uuid.UUID       { return n.id }
func (n *Node) Name() string        { return n.name }
func (n *Node) SetName(name string) { n.name = name }
func (n *Node) String() string      { return n.name }
func (n *Node) Parent() *Node       { return n.parent }
func (n *Node) IsDestroyed() bool   { return n.destroyed }

// Children returns a snapshot of the direct children.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// SetParent re-parents the node. With keepWorld the world pose is preserved; otherwise the
// local pose is kept and the world pose follows the new parent.
func (n *Node) SetParent(parent *Node, keepWorld bool) error {
	if n.destroyed {
		return ErrNodeDestroyed
	}
	if parent != nil && parent.IsChildOf(n) {
		return ErrHierarchyCycle
	}
	pos, rot := n.Position(), n.Rotation()
	if n.parent != nil {
		n.parent.children = slices.DeleteFunc(n.parent.children, func(c *Node) bool { return c == n })
	}
	n.parent = parent
	if parent != nil {
		parent.children = append(parent.children, n)
	}
	if keepWorld {
		n.SetPosition(pos)
		n.SetRotation(rot)
	}
	return nil
}

// IsChildOf reports whether other is this node or one of its ancestors.
func (n *Node) IsChildOf(other *Node) bool {
	if other == nil {
		return false
	}
	for cur := n; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	return false
}

func (n *Node) LocalPosition() Vec3 { return n.localPosition }
func (n *Node) LocalRotation() Quat { return n.localRotation }
func (n *Node) LocalScale() Vec3    { return n.localScale }

func (n *Node) SetLocalPosition(p Vec3) { n.localPosition = p }
func (n *Node) SetLocalRotation(q Quat) { n.localRotation = q.Normalize() }
func (n *Node) SetLocalScale(s Vec3)    { n.localScale = s }

// Position returns the world-space position.
func (n *Node) Position() Vec3 {
	if n.parent == nil {
		return n.localPosition
	}
	return n.parent.TransformPoint(n.localPosition)
}

// SetPosition moves the node to a world-space position.
func (n *Node) SetPosition(p Vec3) {
	if n.parent == nil {
		n.localPosition = p
		return
	}
	n.localPosition = n.parent.InverseTransformPoint(p)
}

// Rotation returns the world-space rotation.
func (n *Node) Rotation() Quat {
	if n.parent == nil {
		return n.localRotation
	}
	return n.parent.Rotation().Mul(n.localRotation).Normalize()
}

// SetRotation sets the world-space rotation.
func (n *Node) SetRotation(q Quat) {
	if n.parent == nil {
		n.localRotation = q.Normalize()
		return
	}
	n.localRotation = n.parent.Rotation().Inverse().Mul(q).Normalize()
}

// LossyScale approximates the world scale as the product of local scales.
func (n *Node) LossyScale() Vec3 {
	s := n.localScale
	for p := n.parent; p != nil; p = p.parent {
		s = Scale(s, p.localScale)
	}
	return s
}

// UniformScale is the magnitude of the lossy scale relative to a unit scale.
func (n *Node) UniformScale() float64 {
	return n.LossyScale().Len() / One.Len()
}

// TransformPoint converts a point from local to world space.
func (n *Node) TransformPoint(p Vec3) Vec3 {
	inParent := n.localPosition.Add(n.localRotation.Rotate(Scale(p, n.localScale)))
	if n.parent == nil {
		return inParent
	}
	return n.parent.TransformPoint(inParent)
}

// InverseTransformPoint converts a point from world to local space. Axes with zero scale
// collapse to zero.
func (n *Node) InverseTransformPoint(p Vec3) Vec3 {
	if n.parent != nil {
		p = n.parent.InverseTransformPoint(p)
	}
	d := n.localRotation.Inverse().Rotate(p.Sub(n.localPosition))
	var out Vec3
	for i := range 3 {
		if n.localScale[i] != 0 {
			out[i] = d[i] / n.localScale[i]
		}
	}
	return out
}

// TransformDirection rotates a local direction into world space.
func (n *Node) TransformDirection(d Vec3) Vec3 { return n.Rotation().Rotate(d) }

func (n *Node) Forward() Vec3 { return n.TransformDirection(Forward) }
func (n *Node) Up() Vec3      { return n.TransformDirection(Up) }
func (n *Node) Right() Vec3   { return n.TransformDirection(Right) }

// AddComponent attaches a component to the node.
func (n *Node) AddComponent(c any) {
	n.components = append(n.components, c)
}

// RemoveComponent detaches a component; unknown components are ignored.
func (n *Node) RemoveComponent(c any) {
	n.components = slices.DeleteFunc(n.components, func(x any) bool { return x == c })
}

// Components returns a snapshot of the attached components, in attachment order.
func (n *Node) Components() []any { return slices.Clone(n.components) }

// OnDestroy registers a callback run when the node is destroyed.
func (n *Node) OnDestroy(fn func()) {
	n.onDestroy = append(n.onDestroy, fn)
}

// Destroy tears down the node and its subtree, children first, and detaches it from its parent.
func (n *Node) Destroy() {
	if n.destroyed {
		return
	}
	for _, c := range n.Children() {
		c.Destroy()
	}
	n.destroyed = true
	hooks := n.onDestroy
	n.onDestroy = nil
	for _, fn := range hooks {
		fn()
	}
	if n.parent != nil {
		n.parent.children = slices.DeleteFunc(n.parent.children, func(c *Node) bool { return c == n })
		n.parent = nil
	}
	n.components = nil
}

// Walk visits the node and all its descendants depth-first.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.Walk(fn)
	}
}

func (n *Node) AddTag(tag string) {
	if n.tags == nil {
		n.tags = make(map[string]struct{})
	}
	n.tags[tag] = struct{}{}
}

func (n *Node) HasTag(tag string) bool {
	_, ok := n.tags[tag]
	return ok
}

// ComponentsOf returns the components of n implementing T, in attachment order.
func ComponentsOf[T any](n *Node) []T {
	var out []T
	for _, c := range n.components {
		if t, ok := c.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// ComponentInParent returns the first component implementing T on n or its closest ancestor.
func ComponentInParent[T any](n *Node) (T, bool) {
	for cur := n; cur != nil; cur = cur.parent {
		if cs := ComponentsOf[T](cur); len(cs) > 0 {
			return cs[0], true
		}
	}
	var zero T
	return zero, false
}

// ComponentsInParent returns every component implementing T on n and its ancestors,
// nearest first.
func ComponentsInParent[T any](n *Node) []T {
	var out []T
	for cur := n; cur != nil; cur = cur.parent {
		out = append(out, ComponentsOf[T](cur)...)
	}
	return out
}

// ComponentsInChildren returns every component implementing T on n and its descendants.
func ComponentsInChildren[T any](n *Node) []T {
	var out []T
	n.Walk(func(c *Node) { out = append(out, ComponentsOf[T](c)...) })
	return out
}
