// Package scenario builds a headless scene from a config.Scenario, replays its timed steps
// on the frame scheduler and checks the expected outcome.
package scenario

import (
	"fmt"

	"github.com/zeusync/grab/internal/config"
	"github.com/zeusync/grab/internal/core/device"
	"github.com/zeusync/grab/internal/core/events/bus"
	"github.com/zeusync/grab/internal/core/interaction"
	"github.com/zeusync/grab/internal/core/interaction/manipulables"
	"github.com/zeusync/grab/internal/core/interaction/manipulators"
	"github.com/zeusync/grab/internal/core/observability/log"
	"github.com/zeusync/grab/internal/core/spatial"
	"github.com/zeusync/grab/internal/core/systems"
	"github.com/zeusync/grab/internal/core/systems/physics"
	"github.com/zeusync/grab/internal/core/systems/physics/sim"
)

// Option customizes Build.
type Option func(*options)

type options struct {
	bus   bus.EventBus
	topic string
}

// WithBus publishes the scene events on b under topic instead of a private bus.
func WithBus(b bus.EventBus, topic string) Option {
	return func(o *options) {
		o.bus = b
		o.topic = topic
	}
}

// actor is a manipulator placed by the scenario; concrete is the outermost type.
type actor struct {
	*interaction.Manipulator
	concrete any
}

// Scene is one built scenario. It is driven from a single goroutine.
type Scene struct {
	spec    *config.Scenario
	cfg     *config.Config
	log     log.Log
	sched   *systems.Scheduler
	world   *sim.World
	session *interaction.Session
	bus     bus.EventBus
	topic   string
	sub     bus.Subscription
	device  *device.Device
	haptics *device.HapticRecorder
	frameDt float64
	ran     bool
	nodes   map[string]*spatial.Node
	actors  map[string]*actor
	events  eventLog
	spawned int
}

// Build creates the nodes, physics, manipulables and actors of spec.
func Build(spec *config.Scenario, cfg *config.Config, logger log.Log, opts ...Option) (*Scene, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{topic: spec.Name}
	for _, opt := range opts {
		opt(&o)
	}
	if o.bus == nil {
		o.bus = bus.New()
	}

	sched, err := systems.NewScheduler(cfg.Physics.FixedTimestep)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", spec.Name, err)
	}
	sched.SetMaxFixedSteps(cfg.Physics.MaxFixedSteps)

	simCfg := sim.Config{
		Gravity:        cfg.Physics.Gravity.Vec(),
		FixedDeltaTime: cfg.Physics.FixedTimestep,
		Floor:          cfg.Physics.Floor,
		Friction:       cfg.Physics.Friction,
		CellSize:       cfg.Physics.CellSize,
	}
	if spec.Floor != nil {
		simCfg.Floor = spec.Floor
	}
	logger = logger.Named("scenario").With(log.String("scenario", spec.Name))
	world := sim.New(simCfg, logger)
	sched.Register(world)

	s := &Scene{
		spec:    spec,
		cfg:     cfg,
		log:     logger,
		sched:   sched,
		world:   world,
		bus:     o.bus,
		topic:   o.topic,
		frameDt: cfg.Interaction.FrameTime,
		nodes:   make(map[string]*spatial.Node),
		actors:  make(map[string]*actor),
	}
	if spec.FrameTime > 0 {
		s.frameDt = spec.FrameTime
	}

	sessionOpts := []interaction.SessionOption{
		interaction.WithBus(o.bus, o.topic),
		interaction.WithTuning(interaction.Tuning{
			TapTime:            cfg.Interaction.TapTime,
			MaxRaycastDistance: cfg.Interaction.MaxRaycastDistance,
			LaserPoints:        cfg.Interaction.LaserPoints,
		}),
	}
	if d := s.buildDevice(); d != nil {
		sessionOpts = append(sessionOpts, interaction.WithDevice(d))
	}
	s.session = interaction.NewSession(sched, world, logger, sessionOpts...)

	desc := spec.Description
	if desc == "" {
		desc = "scenario " + spec.Name
	}
	if err = o.bus.CreateTopic(o.topic, bus.TopicConfig{Description: desc}); err != nil {
		return nil, fmt.Errorf("scenario %s: create topic: %w", spec.Name, err)
	}
	if s.sub, err = o.bus.SubscribeTopic(o.topic, bus.Wildcard, s.events.record); err != nil {
		return nil, fmt.Errorf("scenario %s: subscribe: %w", spec.Name, err)
	}

	templates := make(map[string][]config.Object)
	for _, obj := range spec.Objects {
		if obj.Template {
			root := obj.Name
			if obj.Parent != "" {
				root = templateRoot(spec, obj.Parent)
			}
			templates[root] = append(templates[root], obj)
			continue
		}
		if _, err := s.buildObject(obj, s.nodes); err != nil {
			s.Close()
			return nil, fmt.Errorf("scenario %s: %w", spec.Name, err)
		}
	}
	for _, a := range spec.Actors {
		if err := s.buildActor(a, templates[a.Template]); err != nil {
			s.Close()
			return nil, fmt.Errorf("scenario %s: actor %s: %w", spec.Name, a.Name, err)
		}
	}
	s.log.Debug("scene built", log.Int("nodes", len(s.nodes)), log.Int("actors", len(s.actors)))
	return s, nil
}

func templateRoot(spec *config.Scenario, name string) string {
	for {
		parent := ""
		for _, o := range spec.Objects {
			if o.Name == name {
				parent = o.Parent
				break
			}
		}
		if parent == "" {
			return name
		}
		name = parent
	}
}

// buildDevice creates the device shared by every pointer actor, if there is one.
func (s *Scene) buildDevice() *device.Device {
	var opts []device.Option
	found := false
	for _, a := range s.spec.Actors {
		if a.Kind != config.ActorPointer {
			continue
		}
		found = true
		if a.LeftHanded {
			opts = append(opts, device.WithHandedness(device.LeftHanded))
		}
		if a.Clutch {
			opts = append(opts, device.WithGripType(device.GripClutch))
		}
	}
	if !found {
		return nil
	}
	s.haptics = &device.HapticRecorder{}
	s.device = device.New(s.log, s.sched, append([]device.Option{device.WithHaptics(s.haptics)}, opts...)...)
	s.sched.Register(s.device)
	return s.device
}

// buildObject creates one object node with its physics and manipulables, registering it
// in nodes under its configured name.
func (s *Scene) buildObject(obj config.Object, nodes map[string]*spatial.Node) (*spatial.Node, error) {
	n := spatial.NewNode(obj.Name)
	if obj.Parent != "" {
		parent, ok := nodes[obj.Parent]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNode, obj.Parent)
		}
		if err := n.SetParent(parent, false); err != nil {
			return nil, err
		}
	}
	place(n, obj.Position, obj.Rotation)
	if obj.Scale != nil {
		n.SetLocalScale(obj.Scale.Vec())
	}
	if sh := obj.Shape; sh != nil {
		opts := []sim.ColliderOption{sim.WithLayer(sh.Layer), sim.WithCenter(sh.Center.Vec())}
		var err error
		if sh.Kind == "sphere" {
			_, err = s.world.AttachSphere(n, sh.Radius, opts...)
		} else {
			_, err = s.world.AttachBox(n, sh.Size.Vec(), opts...)
		}
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", obj.Name, err)
		}
	}
	if obj.Body != nil {
		if _, err := s.world.AttachBody(n, bodyConfig(obj.Body)); err != nil {
			return nil, fmt.Errorf("object %s: %w", obj.Name, err)
		}
	}
	nodes[obj.Name] = n
	for _, m := range obj.Manipulables {
		if err := s.addManipulable(n, m, nodes); err != nil {
			return nil, fmt.Errorf("object %s: %w", obj.Name, err)
		}
	}
	return n, nil
}

func place(n *spatial.Node, pos, rot config.Vec3) {
	n.SetLocalPosition(pos.Vec())
	n.SetLocalRotation(spatial.EulerVec(rot.Vec()))
}

func bodyConfig(b *config.Body) sim.BodyConfig {
	cfg := sim.BodyConfig{Mass: b.Mass, UseGravity: b.UseGravity, Kinematic: b.Kinematic}
	if b.FreezePosition {
		cfg.Constraints |= physics.FreezePosition
	}
	if b.FreezeRotation {
		cfg.Constraints |= physics.FreezeRotation
	}
	return cfg
}

func (s *Scene) addManipulable(n *spatial.Node, m config.Manipulable, nodes map[string]*spatial.Node) error {
	var base []interaction.ManipulableOption
	if m.Target != "" {
		target, ok := nodes[m.Target]
		if !ok {
			return fmt.Errorf("%w: target %q", ErrUnknownNode, m.Target)
		}
		base = append(base, interaction.WithTarget(target))
	}
	if m.HoldHandle {
		base = append(base, interaction.WithGrabMode(interaction.HoldHandle))
	}
	if m.Interactable != nil {
		base = append(base, interaction.Interactable(*m.Interactable))
	}

	opts := []manipulables.Option{manipulables.With(base...)}
	if m.PreserveYaw != nil {
		opts = append(opts, manipulables.PreserveYaw(*m.PreserveYaw))
	}
	if m.AutoLock != nil {
		opts = append(opts, manipulables.AutoLock(*m.AutoLock))
	}
	if m.RecentreTime != nil {
		opts = append(opts, manipulables.WithRecentreTime(*m.RecentreTime))
	}
	if m.Slipperiness != nil {
		opts = append(opts, manipulables.WithSlipperiness(*m.Slipperiness))
	}
	if m.Sensitivity > 0 {
		opts = append(opts, manipulables.WithSensitivity(m.Sensitivity))
	}
	if m.Min != nil && m.Max != nil {
		opts = append(opts, manipulables.WithRange(*m.Min, *m.Max))
	}

	switch m.Kind {
	case config.KindPlain:
		interaction.NewManipulable(s.session, n, interaction.NopBehavior{}, base...)
	case config.KindCentred:
		manipulables.NewCentred(s.session, n, opts...)
	case config.KindPositionable:
		manipulables.NewPositionable(s.session, n, opts...)
	case config.KindMovable:
		manipulables.NewMovable(s.session, n, opts...)
	case config.KindSwooshable:
		manipulables.NewSwooshable(s.session, n, opts...)
	case config.KindGrabbable:
		manipulables.NewGrabbable(s.session, n, opts...)
	case config.KindSelectable:
		mode := manipulables.HoldToSelect
		if m.Toggle {
			mode = manipulables.TapToToggle
		}
		manipulables.NewSelectable(s.session, n, append(opts, manipulables.WithSelectionMode(mode))...)
	case config.KindScalable:
		manipulables.NewScalable(s.session, n, opts...)
	case config.KindRotatable:
		manipulables.NewRotatable(s.session, n, opts...)
	}
	return nil
}

func (s *Scene) buildActor(a config.Actor, template []config.Object) error {
	n := spatial.NewNode(a.Name)
	if a.Parent != "" {
		if err := n.SetParent(s.nodes[a.Parent], false); err != nil {
			return err
		}
	}
	place(n, a.Position, a.Rotation)
	if a.Body != nil {
		if _, err := s.world.AttachBody(n, bodyConfig(a.Body)); err != nil {
			return err
		}
	}

	var opts []interaction.ManipulatorOption
	if a.Strength != nil {
		opts = append(opts, interaction.WithStrength(*a.Strength))
	}
	if a.ReleaseRange != nil {
		opts = append(opts, interaction.WithReleaseRange(*a.ReleaseRange))
	}

	var x *actor
	switch a.Kind {
	case config.ActorLaser:
		l := manipulators.NewLaser(s.session, n, opts...)
		x = &actor{l.Manipulator, l}
	case config.ActorPointer:
		p := manipulators.NewPointer(s.session, n, opts...)
		x = &actor{p.Manipulator, p}
	case config.ActorVirtualPointer:
		v := manipulators.NewVirtualPointer(s.session, n, opts...)
		x = &actor{v.Manipulator, v}
	case config.ActorHolder:
		h := manipulators.NewItemHolder(s.session, n, opts...)
		x = &actor{h.Manipulator, h}
	case config.ActorDeleter:
		d := manipulators.NewItemDeleter(s.session, n, opts...)
		d.SetFastMode(a.Fast)
		x = &actor{d.Manipulator, d}
	case config.ActorSpawner:
		sp := manipulators.NewItemSpawner(s.session, n, manipulators.SpawnerConfig{
			Spawn: s.instantiate(template, false),
			Icon:  s.instantiate(template, true),
		}, opts...)
		x = &actor{sp.Manipulator, sp}
	default:
		return fmt.Errorf("%w: kind %q", ErrUnsupportedStep, a.Kind)
	}
	s.nodes[a.Name] = n
	s.actors[a.Name] = x
	return nil
}

// instantiate returns a factory copying a template tree. Spawned copies get numbered
// names; icons get no manipulables.
func (s *Scene) instantiate(template []config.Object, icon bool) manipulators.Factory {
	return func(parent *spatial.Node) (*spatial.Node, error) {
		if len(template) == 0 {
			return nil, fmt.Errorf("%w: empty template", ErrUnknownNode)
		}
		suffix := "icon"
		if !icon {
			s.spawned++
			suffix = fmt.Sprint(s.spawned)
		}
		nodes := make(map[string]*spatial.Node, len(template))
		var root *spatial.Node
		for _, obj := range template {
			if icon {
				obj.Manipulables = nil
			}
			n, err := s.buildObject(obj, nodes)
			if err != nil {
				if root != nil {
					root.Destroy()
				}
				return nil, err
			}
			n.SetName(fmt.Sprintf("%s#%s", obj.Name, suffix))
			if root == nil {
				root = n
			}
		}
		if parent != nil {
			if err := root.SetParent(parent, true); err != nil {
				root.Destroy()
				return nil, err
			}
		}
		return root, nil
	}
}

// Session exposes the interaction session, mainly for tests.
func (s *Scene) Session() *interaction.Session { return s.session }

// Node returns a configured object or actor node.
func (s *Scene) Node(name string) (*spatial.Node, bool) {
	n, ok := s.nodes[name]
	return n, ok
}

// Haptics returns the effects played on the scene device, nil without one.
func (s *Scene) Haptics() []device.HapticEffect {
	if s.haptics == nil {
		return nil
	}
	return append([]device.HapticEffect(nil), s.haptics.Played...)
}

// Close detaches the scene from its bus.
func (s *Scene) Close() {
	_ = s.bus.Unsubscribe(s.sub)
	s.sub = nil
}
