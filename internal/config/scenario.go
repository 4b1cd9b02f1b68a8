package config

import (
	"fmt"
	"slices"
)

// Manipulable kinds.
const (
	KindPlain        = "plain"
	KindCentred      = "centred"
	KindPositionable = "positionable"
	KindMovable      = "movable"
	KindSwooshable   = "swooshable"
	KindGrabbable    = "grabbable"
	KindSelectable   = "selectable"
	KindScalable     = "scalable"
	KindRotatable    = "rotatable"
)

// Actor kinds.
const (
	ActorLaser          = "laser"
	ActorPointer        = "pointer"
	ActorVirtualPointer = "virtual_pointer"
	ActorHolder         = "holder"
	ActorDeleter        = "deleter"
	ActorSpawner        = "spawner"
)

// Step actions.
const (
	ActionGrab         = "grab"
	ActionRelease      = "release"
	ActionGrabObject   = "grab_object"
	ActionMove         = "move"
	ActionRotate       = "rotate"
	ActionLookAt       = "look_at"
	ActionTouchStart   = "touch_start"
	ActionTouch        = "touch"
	ActionTouchEnd     = "touch_end"
	ActionTwist        = "twist"
	ActionConnect      = "connect"
	ActionInteractable = "interactable"
	ActionDestroy      = "destroy"
)

var (
	manipulableKinds = []string{KindPlain, KindCentred, KindPositionable, KindMovable, KindSwooshable,
		KindGrabbable, KindSelectable, KindScalable, KindRotatable}
	actorKinds = []string{ActorLaser, ActorPointer, ActorVirtualPointer, ActorHolder, ActorDeleter, ActorSpawner}
	actions    = []string{ActionGrab, ActionRelease, ActionGrabObject, ActionMove, ActionRotate, ActionLookAt,
		ActionTouchStart, ActionTouch, ActionTouchEnd, ActionTwist, ActionConnect, ActionInteractable, ActionDestroy}
)

// Scenario is a scripted scene: objects, actors, timed steps and the outcome expected.
type Scenario struct {
	Name        string  `yaml:"name" toml:"name"`
	Description string  `yaml:"description,omitempty" toml:"description,omitempty"`
	Duration    float64 `yaml:"duration" toml:"duration"`
	// FrameTime overrides interaction.frame_time for this scenario.
	FrameTime float64  `yaml:"frame_time,omitempty" toml:"frame_time,omitempty"`
	Floor     *float64 `yaml:"floor,omitempty" toml:"floor,omitempty"`

	Objects []Object      `yaml:"objects" toml:"objects"`
	Actors  []Actor       `yaml:"actors" toml:"actors"`
	Steps   []Step        `yaml:"steps" toml:"steps"`
	Expect  []Expectation `yaml:"expect,omitempty" toml:"expect,omitempty"`
}

// Shape is a collider description. Kind is "sphere" or "box".
type Shape struct {
	Kind   string  `yaml:"kind" toml:"kind"`
	Radius float64 `yaml:"radius,omitempty" toml:"radius,omitempty"`
	Size   Vec3    `yaml:"size,omitempty" toml:"size,omitempty"`
	Center Vec3    `yaml:"center,omitempty" toml:"center,omitempty"`
	Layer  int     `yaml:"layer,omitempty" toml:"layer,omitempty"`
}

type Body struct {
	Mass           float64 `yaml:"mass" toml:"mass"`
	UseGravity     bool    `yaml:"use_gravity" toml:"use_gravity"`
	Kinematic      bool    `yaml:"kinematic,omitempty" toml:"kinematic,omitempty"`
	FreezePosition bool    `yaml:"freeze_position,omitempty" toml:"freeze_position,omitempty"`
	FreezeRotation bool    `yaml:"freeze_rotation,omitempty" toml:"freeze_rotation,omitempty"`
}

// Object is a scene node, optionally carrying physics and manipulables.
type Object struct {
	Name     string `yaml:"name" toml:"name"`
	Parent   string `yaml:"parent,omitempty" toml:"parent,omitempty"`
	Position Vec3   `yaml:"position,omitempty" toml:"position,omitempty"`
	Rotation Vec3   `yaml:"rotation,omitempty" toml:"rotation,omitempty"`
	// Scale defaults to one on every axis.
	Scale        *Vec3         `yaml:"scale,omitempty" toml:"scale,omitempty"`
	Shape        *Shape        `yaml:"shape,omitempty" toml:"shape,omitempty"`
	Body         *Body         `yaml:"body,omitempty" toml:"body,omitempty"`
	Manipulables []Manipulable `yaml:"manipulables,omitempty" toml:"manipulables,omitempty"`
	// Template objects are not placed in the scene; spawners instantiate them.
	Template bool `yaml:"template,omitempty" toml:"template,omitempty"`
}

// Manipulable configures one manipulation behaviour on an object. Fields that do not apply
// to Kind are ignored.
type Manipulable struct {
	Kind string `yaml:"kind" toml:"kind"`
	// Target names the node the behaviour moves; empty picks the nearest body.
	Target       string `yaml:"target,omitempty" toml:"target,omitempty"`
	HoldHandle   bool   `yaml:"hold_handle,omitempty" toml:"hold_handle,omitempty"`
	Interactable *bool  `yaml:"interactable,omitempty" toml:"interactable,omitempty"`

	Min         *float64 `yaml:"min,omitempty" toml:"min,omitempty"`
	Max         *float64 `yaml:"max,omitempty" toml:"max,omitempty"`
	Sensitivity float64  `yaml:"sensitivity,omitempty" toml:"sensitivity,omitempty"`

	Toggle       bool     `yaml:"toggle,omitempty" toml:"toggle,omitempty"`
	Slipperiness *float64 `yaml:"slipperiness,omitempty" toml:"slipperiness,omitempty"`
	AutoLock     *bool    `yaml:"auto_lock,omitempty" toml:"auto_lock,omitempty"`
	PreserveYaw  *bool    `yaml:"preserve_yaw,omitempty" toml:"preserve_yaw,omitempty"`
	RecentreTime *float64 `yaml:"recentre_time,omitempty" toml:"recentre_time,omitempty"`
}

// Actor is a manipulator placed in the scene.
type Actor struct {
	Name     string `yaml:"name" toml:"name"`
	Kind     string `yaml:"kind" toml:"kind"`
	Parent   string `yaml:"parent,omitempty" toml:"parent,omitempty"`
	Position Vec3   `yaml:"position,omitempty" toml:"position,omitempty"`
	Rotation Vec3   `yaml:"rotation,omitempty" toml:"rotation,omitempty"`

	Strength     *float64 `yaml:"strength,omitempty" toml:"strength,omitempty"`
	ReleaseRange *float64 `yaml:"release_range,omitempty" toml:"release_range,omitempty"`
	Body         *Body    `yaml:"body,omitempty" toml:"body,omitempty"`

	// LeftHanded and Clutch configure the pointer device.
	LeftHanded bool `yaml:"left_handed,omitempty" toml:"left_handed,omitempty"`
	Clutch     bool `yaml:"clutch,omitempty" toml:"clutch,omitempty"`
	// Template names the object a spawner hands out.
	Template string `yaml:"template,omitempty" toml:"template,omitempty"`
	Fast     bool   `yaml:"fast,omitempty" toml:"fast,omitempty"`
}

// Step is an action applied at a scene time.
type Step struct {
	At     float64 `yaml:"at" toml:"at"`
	Action string  `yaml:"action" toml:"action"`
	Actor  string  `yaml:"actor,omitempty" toml:"actor,omitempty"`
	Object string  `yaml:"object,omitempty" toml:"object,omitempty"`

	Position *Vec3      `yaml:"position,omitempty" toml:"position,omitempty"`
	Rotation *Vec3      `yaml:"rotation,omitempty" toml:"rotation,omitempty"`
	Touch    [2]float64 `yaml:"touch,omitempty" toml:"touch,omitempty"`
	Value    float64    `yaml:"value,omitempty" toml:"value,omitempty"`
	Enabled  *bool      `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
}

// Expectation is checked once a scenario has run. Nil fields are not checked.
type Expectation struct {
	Object    string   `yaml:"object" toml:"object"`
	Event     string   `yaml:"event,omitempty" toml:"event,omitempty"`
	Count     *int     `yaml:"count,omitempty" toml:"count,omitempty"`
	Selected  *bool    `yaml:"selected,omitempty" toml:"selected,omitempty"`
	Destroyed *bool    `yaml:"destroyed,omitempty" toml:"destroyed,omitempty"`
	Value     *float64 `yaml:"value,omitempty" toml:"value,omitempty"`
	Position  *Vec3    `yaml:"position,omitempty" toml:"position,omitempty"`
	Tolerance float64  `yaml:"tolerance,omitempty" toml:"tolerance,omitempty"`
}

// Validate checks names, references and kinds. The returned error wraps ErrInvalidScenario.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidScenario)
	}
	if s.Duration <= 0 {
		return fmt.Errorf("%w: %s: duration must be positive", ErrInvalidScenario, s.Name)
	}
	if s.FrameTime < 0 {
		return fmt.Errorf("%w: %s: frame_time must not be negative", ErrInvalidScenario, s.Name)
	}

	objects := make(map[string]*Object, len(s.Objects))
	for i := range s.Objects {
		o := &s.Objects[i]
		if err := s.validateObject(o, objects); err != nil {
			return err
		}
		objects[o.Name] = o
	}

	actors := make(map[string]*Actor, len(s.Actors))
	for i := range s.Actors {
		a := &s.Actors[i]
		if a.Name == "" {
			return fmt.Errorf("%w: %s: actor %d has no name", ErrInvalidScenario, s.Name, i)
		}
		if _, dup := actors[a.Name]; dup {
			return fmt.Errorf("%w: %s: duplicate actor %q", ErrInvalidScenario, s.Name, a.Name)
		}
		if _, dup := objects[a.Name]; dup {
			return fmt.Errorf("%w: %s: actor %q shadows an object", ErrInvalidScenario, s.Name, a.Name)
		}
		if !slices.Contains(actorKinds, a.Kind) {
			return fmt.Errorf("%w: %s: actor %q has unknown kind %q", ErrInvalidScenario, s.Name, a.Name, a.Kind)
		}
		if a.Parent != "" && objects[a.Parent] == nil {
			return fmt.Errorf("%w: %s: actor %q has unknown parent %q", ErrInvalidScenario, s.Name, a.Name, a.Parent)
		}
		if a.Kind == ActorSpawner {
			t := objects[a.Template]
			if t == nil || !t.Template {
				return fmt.Errorf("%w: %s: spawner %q needs a template object", ErrInvalidScenario, s.Name, a.Name)
			}
		}
		if a.Body != nil && a.Body.Mass <= 0 {
			return fmt.Errorf("%w: %s: actor %q body mass must be positive", ErrInvalidScenario, s.Name, a.Name)
		}
		actors[a.Name] = a
	}

	last := 0.0
	for i, st := range s.Steps {
		if st.At < last {
			return fmt.Errorf("%w: %s: step %d is out of order", ErrInvalidScenario, s.Name, i)
		}
		last = st.At
		if !slices.Contains(actions, st.Action) {
			return fmt.Errorf("%w: %s: step %d has unknown action %q", ErrInvalidScenario, s.Name, i, st.Action)
		}
		if st.Actor != "" && actors[st.Actor] == nil {
			return fmt.Errorf("%w: %s: step %d names unknown actor %q", ErrInvalidScenario, s.Name, i, st.Actor)
		}
		if st.Object != "" && objects[st.Object] == nil {
			return fmt.Errorf("%w: %s: step %d names unknown object %q", ErrInvalidScenario, s.Name, i, st.Object)
		}
		if st.Object != "" && objects[st.Object].Template {
			return fmt.Errorf("%w: %s: step %d names template %q, which is never placed", ErrInvalidScenario, s.Name, i, st.Object)
		}
		if err := validateStepTarget(st); err != nil {
			return fmt.Errorf("%w: %s: step %d: %w", ErrInvalidScenario, s.Name, i, err)
		}
	}

	for i, e := range s.Expect {
		if objects[e.Object] == nil && actors[e.Object] == nil {
			return fmt.Errorf("%w: %s: expectation %d names unknown object %q", ErrInvalidScenario, s.Name, i, e.Object)
		}
		if e.Count != nil && e.Event == "" {
			return fmt.Errorf("%w: %s: expectation %d counts no event", ErrInvalidScenario, s.Name, i)
		}
	}
	return nil
}

func (s *Scenario) validateObject(o *Object, seen map[string]*Object) error {
	if o.Name == "" {
		return fmt.Errorf("%w: %s: object without name", ErrInvalidScenario, s.Name)
	}
	if _, dup := seen[o.Name]; dup {
		return fmt.Errorf("%w: %s: duplicate object %q", ErrInvalidScenario, s.Name, o.Name)
	}
	if o.Parent != "" {
		p := seen[o.Parent]
		if p == nil {
			return fmt.Errorf("%w: %s: object %q must follow its parent %q", ErrInvalidScenario, s.Name, o.Name, o.Parent)
		}
		if p.Template != o.Template {
			return fmt.Errorf("%w: %s: object %q and parent %q differ in template flag", ErrInvalidScenario, s.Name, o.Name, o.Parent)
		}
	}
	if sh := o.Shape; sh != nil {
		switch sh.Kind {
		case "sphere":
			if sh.Radius <= 0 {
				return fmt.Errorf("%w: %s: object %q sphere radius must be positive", ErrInvalidScenario, s.Name, o.Name)
			}
		case "box":
			if sh.Size[0] <= 0 || sh.Size[1] <= 0 || sh.Size[2] <= 0 {
				return fmt.Errorf("%w: %s: object %q box size must be positive", ErrInvalidScenario, s.Name, o.Name)
			}
		default:
			return fmt.Errorf("%w: %s: object %q has unknown shape %q", ErrInvalidScenario, s.Name, o.Name, sh.Kind)
		}
	}
	if o.Body != nil && o.Body.Mass <= 0 {
		return fmt.Errorf("%w: %s: object %q body mass must be positive", ErrInvalidScenario, s.Name, o.Name)
	}
	for _, m := range o.Manipulables {
		if !slices.Contains(manipulableKinds, m.Kind) {
			return fmt.Errorf("%w: %s: object %q has unknown manipulable %q", ErrInvalidScenario, s.Name, o.Name, m.Kind)
		}
		if m.Target != "" && seen[m.Target] == nil && m.Target != o.Name {
			return fmt.Errorf("%w: %s: object %q targets unknown node %q", ErrInvalidScenario, s.Name, o.Name, m.Target)
		}
	}
	return nil
}

func validateStepTarget(st Step) error {
	switch st.Action {
	case ActionGrab, ActionRelease, ActionTouchStart, ActionTouch, ActionTouchEnd, ActionTwist, ActionConnect:
		if st.Actor == "" {
			return fmt.Errorf("%s needs an actor", st.Action)
		}
	case ActionGrabObject:
		if st.Actor == "" || st.Object == "" {
			return fmt.Errorf("%s needs an actor and an object", st.Action)
		}
	case ActionLookAt:
		if st.Actor == "" || (st.Object == "" && st.Position == nil) {
			return fmt.Errorf("%s needs an actor and an object or position", st.Action)
		}
	case ActionMove:
		if st.Position == nil {
			return fmt.Errorf("%s needs a position", st.Action)
		}
		fallthrough
	case ActionRotate, ActionDestroy:
		if (st.Actor == "") == (st.Object == "") {
			return fmt.Errorf("%s needs exactly one of actor or object", st.Action)
		}
		if st.Action == ActionRotate && st.Rotation == nil {
			return fmt.Errorf("%s needs a rotation", st.Action)
		}
	case ActionInteractable:
		if st.Object == "" || st.Enabled == nil {
			return fmt.Errorf("%s needs an object and enabled", st.Action)
		}
	}
	return nil
}
