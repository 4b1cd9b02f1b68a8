// Package sim is a small in-memory physics world: sphere and oriented box colliders,
// semi-implicit Euler integration and an optional ground plane. It exists so scenes can
// be simulated headless; it does not resolve collisions between bodies.
package sim

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/zeusync/grab/internal/core/observability/log"
	"github.com/zeusync/grab/internal/core/spatial"
	"github.com/zeusync/grab/internal/core/systems"
	"github.com/zeusync/grab/internal/core/systems/physics"
)

var (
	ErrAlreadyAttached = errors.New("node already has a body")
	ErrInvalidMass     = errors.New("body mass must be positive")
	ErrInvalidShape    = errors.New("collider size must be positive")
)

// Config tunes a World.
type Config struct {
	Gravity        spatial.Vec3
	FixedDeltaTime float64
	// Floor is the height of an infinite ground plane; nil disables it.
	Floor *float64
	// Friction damps the velocities of bodies resting on the floor, per second.
	Friction float64
	CellSize float64
}

// DefaultConfig is earth gravity at 50 Hz with no floor.
func DefaultConfig() Config {
	return Config{
		Gravity:        spatial.Vec3{0, -9.81, 0},
		FixedDeltaTime: 0.02,
		Friction:       8,
		CellSize:       1,
	}
}

// World implements physics.World.
type World struct {
	cfg       Config
	log       log.Log
	bodies    []*Body
	colliders []*Collider
	grid      *spatialHash
	seq       uint64
	steps     uint64
}

var _ physics.World = (*World)(nil)

// New creates an empty world.
func New(cfg Config, logger log.Log) *World {
	if cfg.FixedDeltaTime <= 0 {
		cfg.FixedDeltaTime = DefaultConfig().FixedDeltaTime
	}
	if cfg.CellSize <= 0 {
		cfg.CellSize = 1
	}
	return &World{
		cfg:  cfg,
		log:  logger.Named("physics"),
		grid: newSpatialHash(cfg.CellSize),
	}
}

func (w *World) Gravity() spatial.Vec3   { return w.cfg.Gravity }
func (w *World) FixedDeltaTime() float64 { return w.cfg.FixedDeltaTime }

// Steps counts completed simulation steps.
func (w *World) Steps() uint64 { return w.steps }

// AttachBody gives node a rigid body.
func (w *World) AttachBody(node *spatial.Node, cfg BodyConfig) (*Body, error) {
	if cfg.Mass <= 0 {
		return nil, fmt.Errorf("attach body to %s: %w", node.Name(), ErrInvalidMass)
	}
	if len(spatial.ComponentsOf[physics.Body](node)) > 0 {
		return nil, ErrAlreadyAttached
	}
	b := &Body{world: w, node: node, cfg: cfg}
	node.AddComponent(b)
	w.bodies = append(w.bodies, b)
	node.OnDestroy(func() { w.detachBody(b) })
	w.log.Debug("body attached", log.String("node", node.Name()), log.Float64("mass", cfg.Mass))
	return b, nil
}

// AttachSphere adds a sphere collider of the given local radius.
func (w *World) AttachSphere(node *spatial.Node, radius float64, opts ...ColliderOption) (*Collider, error) {
	if radius <= 0 {
		return nil, ErrInvalidShape
	}
	return w.attachCollider(&Collider{node: node, kind: shapeSphere, radius: radius}, opts)
}

// AttachBox adds a box collider of the given local size.
func (w *World) AttachBox(node *spatial.Node, size spatial.Vec3, opts ...ColliderOption) (*Collider, error) {
	if size[0] <= 0 || size[1] <= 0 || size[2] <= 0 {
		return nil, ErrInvalidShape
	}
	return w.attachCollider(&Collider{node: node, kind: shapeBox, half: size.Mul(0.5)}, opts)
}

func (w *World) attachCollider(c *Collider, opts []ColliderOption) (*Collider, error) {
	for _, opt := range opts {
		opt(c)
	}
	w.seq++
	c.seq = w.seq
	c.node.AddComponent(c)
	w.colliders = append(w.colliders, c)
	c.node.OnDestroy(func() { w.detachCollider(c) })
	return c, nil
}

// Detach removes every body and collider attached to node.
func (w *World) Detach(node *spatial.Node) {
	for _, b := range slices.Clone(w.bodies) {
		if b.node == node {
			node.RemoveComponent(b)
			w.detachBody(b)
		}
	}
	for _, c := range slices.Clone(w.colliders) {
		if c.node == node {
			node.RemoveComponent(c)
			w.detachCollider(c)
		}
	}
}

func (w *World) detachBody(b *Body) {
	w.bodies = slices.DeleteFunc(w.bodies, func(x *Body) bool { return x == b })
}

func (w *World) detachCollider(c *Collider) {
	w.colliders = slices.DeleteFunc(w.colliders, func(x *Collider) bool { return x == c })
}

// Raycast implements physics.Query.
func (w *World) Raycast(origin, direction spatial.Vec3, maxDistance float64, ignore physics.LayerMask) (physics.Hit, bool) {
	dir := spatial.Normalize(direction)
	if dir == spatial.Zero || maxDistance <= 0 {
		return physics.Hit{}, false
	}
	best := physics.Hit{Distance: math.Inf(1)}
	found := false
	for _, c := range w.colliders {
		if c.trigger || ignore.Contains(c.layer) || c.node.IsDestroyed() {
			continue
		}
		t, n, ok := c.raycast(origin, dir, maxDistance)
		if ok && t < best.Distance {
			best = physics.Hit{Point: origin.Add(dir.Mul(t)), Normal: n, Distance: t, Collider: c}
			found = true
		}
	}
	return best, found
}

// OverlapSphere implements physics.Query. Results are in attachment order.
func (w *World) OverlapSphere(center spatial.Vec3, radius float64, ignore physics.LayerMask) []physics.Collider {
	if radius < 0 {
		return nil
	}
	w.syncTransforms()
	q := physics.Bounds{Center: center, Extents: spatial.Vec3{radius, radius, radius}}
	candidates := w.grid.candidates(q)
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].seq < candidates[j].seq })

	var out []physics.Collider
	for _, c := range candidates {
		if c.trigger || ignore.Contains(c.layer) || c.node.IsDestroyed() {
			continue
		}
		if c.overlapsSphere(center, radius) {
			out = append(out, c)
		}
	}
	return out
}

// syncTransforms rebuilds the broadphase from current node poses.
func (w *World) syncTransforms() {
	w.grid.reset()
	for _, c := range w.colliders {
		w.grid.insert(c)
	}
}

// Step implements physics.World.
func (w *World) Step(dt float64) {
	for _, b := range slices.Clone(w.bodies) {
		b.integrate(dt, w.cfg.Gravity)
		w.resolveFloor(b, dt)
	}
	w.steps++
}

func (w *World) resolveFloor(b *Body, dt float64) {
	b.grounded = false
	if w.cfg.Floor == nil || b.cfg.Kinematic {
		return
	}
	bounds, ok := physics.BoundsOf(b.node)
	if !ok {
		return
	}
	penetration := *w.cfg.Floor - bounds.Min()[1]
	if penetration < 0 {
		return
	}
	b.grounded = true
	b.node.SetPosition(b.node.Position().Add(spatial.Vec3{0, penetration, 0}))
	v := b.velocity
	if v[1] < 0 {
		v[1] = 0
	}
	damp := math.Max(0, 1-w.cfg.Friction*dt)
	v[0] *= damp
	v[2] *= damp
	b.SetVelocity(v)
	b.SetAngularVelocity(b.angularVelocity.Mul(damp))
}

// FixedUpdate steps the world from a scheduler's fixed phase.
func (w *World) FixedUpdate(fixedDeltaTime float64) { w.Step(fixedDeltaTime) }

// Priority runs the simulation after every other fixed updater.
func (w *World) Priority() systems.Priority { return 0 }
