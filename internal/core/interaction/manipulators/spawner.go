package manipulators

import (
	"errors"
	"fmt"
	"slices"

	"github.com/zeusync/grab/internal/core/device"
	"github.com/zeusync/grab/internal/core/events"
	"github.com/zeusync/grab/internal/core/interaction"
	"github.com/zeusync/grab/internal/core/interaction/manipulables"
	"github.com/zeusync/grab/internal/core/observability/log"
	"github.com/zeusync/grab/internal/core/spatial"
	"github.com/zeusync/grab/internal/core/systems/physics"
)

// EventSpawned is published when an ItemSpawner hands a new object over; the data is the
// spawned node name.
const EventSpawned = "spawner.spawned"

const (
	defaultSpawnerStrength     = 0.5
	defaultSpawnerReleaseRange = 0.1
	iconGrowth                 = 0.15
	iconResetAngle             = 60.0
)

var (
	ErrNoSpawnFactory = errors.New("spawner has no spawn factory")
	ErrIconNoCollider = errors.New("spawner icon has no collider")
	ErrIconNoBody     = errors.New("spawner icon has no body of its own")
)

// Factory builds a node under parent; parent may be nil for the scene root.
type Factory func(parent *spatial.Node) (*spatial.Node, error)

// SpawnerConfig describes what an ItemSpawner creates.
type SpawnerConfig struct {
	// Spawn builds the objects handed to manipulators. They need a positionable
	// manipulable to be carried away.
	Spawn Factory
	// Icon builds the miniature kept at the spawner. It must carry a collider and a body
	// on its root node.
	Icon Factory
	// IconScale is the full size of the icon; spherical icons use the smallest component.
	IconScale spatial.Vec3
	// Parent receives spawned objects.
	Parent *spatial.Node
	// ScaleFactor multiplies the local scale of spawned objects.
	ScaleFactor float64
}

// ItemSpawner keeps a miniature icon grabbed in place. Pulling the icon away with another
// manipulator spawns a full object that is handed to that manipulator, while a new icon
// grows back.
type ItemSpawner struct {
	*interaction.Manipulator
	cfg SpawnerConfig

	icon       *spatial.Node
	iconBody   physics.Body
	iconScale  spatial.Vec3
	resetting  bool
	iconFailed bool
	holders    []*interaction.Manipulator
	onSpawn    events.Observers[func(*spatial.Node)]
}

// NewItemSpawner defaults to strength 0.5 and release range 0.1; opts may override both.
func NewItemSpawner(s *interaction.Session, node *spatial.Node, cfg SpawnerConfig, opts ...interaction.ManipulatorOption) *ItemSpawner {
	if cfg.IconScale == spatial.Zero {
		cfg.IconScale = spatial.One
	}
	if cfg.ScaleFactor <= 0 {
		cfg.ScaleFactor = 1
	}
	if cfg.Icon == nil {
		cfg.Icon = cfg.Spawn
	}
	x := &ItemSpawner{cfg: cfg, iconScale: cfg.IconScale}
	base := []interaction.ManipulatorOption{
		interaction.WithStrength(defaultSpawnerStrength),
		interaction.WithReleaseRange(defaultSpawnerReleaseRange),
		interaction.WithoutIndicator(),
	}
	x.Manipulator = interaction.NewManipulator(s, node, x, append(base, opts...)...)
	if cfg.Spawn == nil {
		x.Log().Warn("spawner will not work", log.Error(ErrNoSpawnFactory))
	}
	return x
}

// Icon returns the current icon node, nil before the first fixed step.
func (x *ItemSpawner) Icon() *spatial.Node { return x.icon }

// Holders returns the other manipulators grabbing the icon.
func (x *ItemSpawner) Holders() []*interaction.Manipulator { return slices.Clone(x.holders) }

// OnSpawn registers fn to run with each spawned object after it was handed over.
func (x *ItemSpawner) OnSpawn(fn func(*spatial.Node)) func() { return x.onSpawn.Add(fn) }

// FixedUpdate keeps an icon alive, grows or resets it, and keeps it grabbed.
func (x *ItemSpawner) FixedUpdate(dt float64) {
	if x.cfg.Spawn == nil {
		return
	}
	if x.icon == nil || x.icon.IsDestroyed() {
		if err := x.generateIcon(); err != nil {
			if !x.iconFailed {
				x.Log().Warn("cannot generate spawner icon", log.Error(err))
			}
			x.iconFailed = true
			return
		}
		x.iconFailed = false
	} else {
		x.animateIcon()
	}
	x.Manipulator.FixedUpdate(dt)
	if !x.IsGrabbingManipulable() {
		x.Grab()
	}
}

func (x *ItemSpawner) animateIcon() {
	icon := x.icon
	if x.iconBody.IsKinematic() {
		x.iconBody.SetKinematic(false)
	}
	if x.resetting {
		icon.SetLocalScale(icon.LocalScale().Mul(1 - iconGrowth))
		if icon.LocalScale().LenSqr() < 0.001 {
			icon.SetPosition(x.TargetGrabPosition())
			icon.SetRotation(spatial.Slerp(x.TargetRotationOffset(), icon.Rotation(), 0.5))
			x.resetting = false
		}
	} else {
		icon.SetLocalScale(icon.LocalScale().Mul(1 - iconGrowth).Add(x.iconScale.Mul(iconGrowth)))
	}
	pulled := spatial.Distance(icon.Position(), x.TargetGrabPosition()) > x.ReleaseRange()*2
	turned := spatial.Distance(icon.LocalScale(), x.iconScale) < 0.01 &&
		spatial.QuatAngle(icon.Rotation(), x.TargetRotationOffset()) > iconResetAngle
	if pulled || turned {
		x.resetting = true
	}
}

// FindTargetCollider keeps pointing at the icon.
func (x *ItemSpawner) FindTargetCollider() physics.Collider { return x.CurrentCollider() }

// AlignIcon faces the spawner from the grab point.
func (x *ItemSpawner) AlignIcon() spatial.Quat {
	n := x.Node()
	if spatial.Distance(x.GrabPosition(), n.Position()) > interaction.DistanceOffset {
		return spatial.LookRotation(n.Position().Sub(x.GrabPosition()), spatial.Up)
	}
	return n.Rotation()
}

func (x *ItemSpawner) generateIcon() error {
	node := x.Node()
	icon, err := x.cfg.Icon(node)
	if err != nil {
		return fmt.Errorf("build icon: %w", err)
	}
	if icon.Parent() != node {
		if err := icon.SetParent(node, false); err != nil {
			icon.Destroy()
			return fmt.Errorf("parent icon: %w", err)
		}
	}
	cols := physics.CollidersIn(icon)
	if len(cols) == 0 {
		icon.Destroy()
		return ErrIconNoCollider
	}
	body, ok := physics.BodyOf(icon)
	if !ok || body.Node() != icon {
		icon.Destroy()
		return ErrIconNoBody
	}
	for _, mb := range spatial.ComponentsInChildren[*interaction.Manipulable](icon) {
		mb.Destroy()
	}
	icon.SetName(fmt.Sprintf("Icon(%s)", node.Name()))
	icon.SetLocalPosition(spatial.Zero)
	icon.SetLocalRotation(spatial.Identity())

	if sphere, ok := cols[0].(interface{ IsSphere() bool }); ok && sphere.IsSphere() {
		m := min(x.cfg.IconScale[0], x.cfg.IconScale[1], x.cfg.IconScale[2])
		x.iconScale = spatial.Vec3{m, m, m}
	}
	body.SetKinematic(true)
	body.SetUseGravity(false)

	movable := manipulables.NewMovable(x.Session(), icon)
	movable.OnGrab(x.handleGrabIcon)
	movable.OnRelease(x.handleReleaseIcon)

	icon.SetLocalScale(spatial.Zero)
	x.icon, x.iconBody = icon, body
	x.holders = x.holders[:0]
	x.resetting = false
	x.SetCurrentCollider(cols[0])
	x.Log().Debug("icon generated", log.String("icon", icon.Name()))
	return nil
}

func (x *ItemSpawner) handleGrabIcon(m *interaction.Manipulation) {
	if a := m.Manipulator(); a != x.Manipulator && !slices.Contains(x.holders, a) {
		x.holders = append(x.holders, a)
	}
}

func (x *ItemSpawner) handleReleaseIcon(m *interaction.Manipulation) {
	a := m.Manipulator()
	if a == x.Manipulator {
		if len(x.holders) > 0 {
			x.spawn()
		}
		return
	}
	x.holders = slices.DeleteFunc(x.holders, func(h *interaction.Manipulator) bool { return h == a })
}

// spawn hands one new object to each manipulator holding the icon, then puts the icon
// back to grow again.
func (x *ItemSpawner) spawn() {
	holders := slices.Clone(x.holders)
	for i := len(holders) - 1; i >= 0; i-- {
		h := holders[i]
		obj, err := x.cfg.Spawn(x.cfg.Parent)
		if err != nil {
			x.Log().Warn("cannot spawn object", log.Error(err))
			h.Release(true)
			continue
		}
		obj.SetPosition(x.icon.Position())
		obj.SetRotation(x.icon.Rotation())
		obj.SetLocalScale(obj.LocalScale().Mul(x.cfg.ScaleFactor))

		mb := positionableIn(obj)
		if mb == nil {
			x.Log().Warn("spawned object has no positionable manipulable and cannot be carried",
				log.String("object", obj.Name()), log.String("manipulator", h.Name()))
			h.Release(true)
			continue
		}
		if _, ok := h.Discoverer().(*Pointer); ok {
			x.Session().PlayHaptics(device.RampUpShortSmooth50)
		}
		h.GrabManipulable(mb)
		x.onSpawn.Each(func(fn func(*spatial.Node)) { fn(obj) })
		x.Session().Publish(EventSpawned, x.Name(), obj.Name())
	}
	x.holders = x.holders[:0]
	x.icon.SetLocalPosition(spatial.Zero)
	x.icon.SetLocalScale(spatial.Zero)
}

func positionableIn(n *spatial.Node) *interaction.Manipulable {
	for _, mb := range spatial.ComponentsInChildren[*interaction.Manipulable](n) {
		if IsPositionable(mb) {
			return mb
		}
	}
	return nil
}
