package manipulables

import (
	"math"

	"github.com/zeusync/grab/internal/core/interaction"
	"github.com/zeusync/grab/internal/core/observability/log"
	"github.com/zeusync/grab/internal/core/spatial"
)

// sliderValue is what a Slider drives.
type sliderValue interface {
	value() float64
	bounds() (min, max float64)
	apply(v float64)
}

// holderRebaser is implemented by values that snapshot more state when a new holder
// takes over.
type holderRebaser interface {
	rebase()
}

// Slider maps the pull of the manipulator along an axis facing it onto a bounded value.
// Only the first manipulator to grab drives the value until it releases; the longest
// standing remaining grabber then takes over from the current value.
type Slider struct {
	*Centred
	source      sliderValue
	sensitivity float64
	axis        spatial.Vec3

	holder          *interaction.Manipulator
	initialDistance float64
	initialValue    float64
	warnedRange     bool
}

func newSlider(c config, axis spatial.Vec3) *Slider {
	return &Slider{Centred: newCentred(c), sensitivity: c.sensitivity, axis: axis}
}

// Value is the current value.
func (x *Slider) Value() float64 { return x.source.value() }

// Bounds is the range the value is clamped to.
func (x *Slider) Bounds() (float64, float64) { return x.source.bounds() }

// InitialValue is the value at the start of the current grab.
func (x *Slider) InitialValue() float64 { return x.initialValue }

// Holder is the manipulator driving the slider, nil when released.
func (x *Slider) Holder() *interaction.Manipulator { return x.holder }

func (x *Slider) SupportsDepthControl() bool { return false }

func (x *Slider) InitializeManipulation(m *interaction.Manipulation) {
	x.Centred.InitializeManipulation(m)
	if x.holder != nil {
		return
	}
	x.take(m.Manipulator())
}

// take makes actor the holder, measuring its pull from the current value.
func (x *Slider) take(actor *interaction.Manipulator) {
	x.holder = actor
	x.initialDistance = x.grabDistance(actor)
	x.initialValue = x.source.value()
	if r, ok := x.source.(holderRebaser); ok {
		r.rebase()
	}
}

func (x *Slider) PerformManipulation(m *interaction.Manipulation) {
	x.Centred.PerformManipulation(m)
	actor := m.Manipulator()
	if actor != x.holder {
		return
	}
	lo, hi := x.source.bounds()
	if lo >= hi {
		if !x.warnedRange {
			x.warnedRange = true
			x.Log().Warn("slider maximum is not above its minimum; value is left unchanged",
				log.Float64("min", lo), log.Float64("max", hi))
		}
		return
	}
	sensitivity := x.sensitivity
	targetPos, actorPos := x.Target().Position(), actor.Node().Position()
	if targetPos != actorPos {
		sensitivity /= 1 + spatial.Distance(targetPos, actorPos)
	}
	delta := x.grabDistance(actor) - x.initialDistance
	x.source.apply(clamp(x.initialValue+delta*sensitivity*(hi-lo), lo, hi))
}

func (x *Slider) FinalizeManipulation(m *interaction.Manipulation) {
	x.Centred.FinalizeManipulation(m)
	if m.Manipulator() != x.holder {
		return
	}
	x.holder = nil
	var next *interaction.Manipulation
	for _, other := range x.Manipulations() {
		if other == m || !other.IsGrabbed() {
			continue
		}
		if next == nil || other.GrabStartTime() < next.GrabStartTime() {
			next = other
		}
	}
	if next != nil {
		x.take(next.Manipulator())
	}
}

// grabDistance is the signed length of the pull projected on the slider axis as seen
// from the manipulator.
func (x *Slider) grabDistance(actor *interaction.Manipulator) float64 {
	target := x.Target().Position()
	axis := spatial.LookRotation(target.Sub(actor.Node().Position()), spatial.Up).Rotate(x.axis)
	pull := actor.TargetGrabPosition().Sub(target)
	projected := spatial.Project(pull, axis)
	return projected.Len() * sign(pull.Dot(axis))
}

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// Scalable scales its target between a minimum and a maximum factor of the scale it had
// when created, by pulling up or down.
type Scalable struct {
	*Slider
	baseScale spatial.Vec3
	min, max  float64
}

// NewScalable defaults to factors [0.6, 2] unless WithRange says otherwise.
func NewScalable(s *interaction.Session, node *spatial.Node, opts ...Option) *Scalable {
	c := newConfig(append([]Option{WithRange(0.6, 2)}, opts...))
	x := &Scalable{Slider: newSlider(c, spatial.Up), min: math.Max(c.min, spatial.Epsilon), max: c.max}
	x.source = x
	x.Manipulable = interaction.NewManipulable(s, node, x, c.manipulable...)
	x.baseScale = x.Target().LocalScale()
	if x.baseScale[0] < spatial.Epsilon {
		x.baseScale[0] = spatial.Epsilon
	}
	return x
}

func (x *Scalable) BaseScale() spatial.Vec3 { return x.baseScale }

func (x *Scalable) value() float64             { return x.Target().LocalScale()[0] / x.baseScale[0] }
func (x *Scalable) bounds() (float64, float64) { return x.min, x.max }
func (x *Scalable) apply(v float64)            { x.Target().SetLocalScale(x.baseScale.Mul(v)) }

// Rotatable turns its target about a local axis by pulling sideways, up to 185° either
// way from where the grab started.
type Rotatable struct {
	*Slider
	rotationAxis    spatial.Vec3
	initialRotation spatial.Quat
}

func NewRotatable(s *interaction.Session, node *spatial.Node, opts ...Option) *Rotatable {
	c := newConfig(opts)
	x := &Rotatable{
		Slider:          newSlider(c, spatial.Right),
		rotationAxis:    spatial.Normalize(c.rotationAxis),
		initialRotation: spatial.Identity(),
	}
	x.source = x
	x.Manipulable = interaction.NewManipulable(s, node, x, c.manipulable...)
	return x
}

func (x *Rotatable) RotationAxis() spatial.Vec3 { return x.rotationAxis }

func (x *Rotatable) rebase() { x.initialRotation = x.Target().LocalRotation() }

func (x *Rotatable) value() float64 {
	angle, axis := spatial.ToAngleAxis(x.Target().LocalRotation())
	return -angle * axis.Dot(x.rotationAxis)
}

func (x *Rotatable) bounds() (float64, float64) {
	return x.initialValue - 185, x.initialValue + 185
}

func (x *Rotatable) apply(v float64) {
	t := x.Target()
	current := x.initialRotation.Inverse().Mul(t.LocalRotation())
	goal := spatial.AngleAxis(x.initialValue-v, x.rotationAxis)
	t.SetLocalRotation(x.initialRotation.Mul(spatial.Nlerp(current, goal, 0.25)))
}

// ValueSlider drives any value through a getter and a setter.
type ValueSlider struct {
	*Slider
	get      func() float64
	set      func(float64)
	min, max float64
}

// NewValueSlider defaults to the range [0, 1].
func NewValueSlider(s *interaction.Session, node *spatial.Node, get func() float64, set func(float64), opts ...Option) *ValueSlider {
	c := newConfig(opts)
	x := &ValueSlider{Slider: newSlider(c, spatial.Up), get: get, set: set, min: c.min, max: c.max}
	x.source = x
	x.Manipulable = interaction.NewManipulable(s, node, x, c.manipulable...)
	return x
}

func (x *ValueSlider) value() float64             { return x.get() }
func (x *ValueSlider) bounds() (float64, float64) { return x.min, x.max }
func (x *ValueSlider) apply(v float64)            { x.set(v) }
