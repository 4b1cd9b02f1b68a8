// Package device models the handheld controller driving pointer manipulators: trackpad
// touches, twist, handedness and grip, haptics, and the scene scale reported by the AR
// layer. Transport and pairing live outside this package; whatever talks to the hardware
// calls the Start/Move/EndTouch, SetTwist and Connect entry points.
package device

import (
	"github.com/zeusync/grab/internal/core/events"
	"github.com/zeusync/grab/internal/core/observability/log"
	"github.com/zeusync/grab/internal/core/spatial"
	"github.com/zeusync/grab/internal/core/systems"
)

// CalibrationDelayFrames is how many frame boundaries pass between a connection and the
// first calibration, so the device pose has been updated at least once.
const CalibrationDelayFrames = 2

type Handedness uint8

const (
	RightHanded Handedness = iota
	LeftHanded
)

func (h Handedness) String() string {
	if h == LeftHanded {
		return "left"
	}
	return "right"
}

// GripType is how the device is held.
type GripType uint8

const (
	GripPoint GripType = iota
	GripClutch
)

func (g GripType) String() string {
	if g == GripClutch {
		return "clutch"
	}
	return "point"
}

// Touch is a trackpad contact. Position is normalized to [0, 1] on both axes.
type Touch struct {
	Position      spatial.Vec2
	WorldPosition spatial.Vec2
}

type TouchHandler func(Touch)

// Scheduler is the part of the frame scheduler a Device needs.
type Scheduler interface {
	Now() float64
	Defer(frames int, fn func())
}

type Option func(*Device)

// WithHaptics plays haptic effects on p. Without it effects are dropped.
func WithHaptics(p HapticPlayer) Option {
	return func(d *Device) { d.haptics = p }
}

func WithHandedness(h Handedness) Option {
	return func(d *Device) { d.handedness = h }
}

func WithGripType(g GripType) Option {
	return func(d *Device) { d.grip = g }
}

// Device is the session-wide controller state. It is driven from the scheduler thread.
type Device struct {
	log     log.Log
	sched   Scheduler
	haptics HapticPlayer

	name         string
	connected    bool
	touching     bool
	touch        Touch
	touchStart   float64
	twist        float64
	handedness   Handedness
	grip         GripType
	calibrations int

	onTouchStart   events.Observers[TouchHandler]
	onTouchHold    events.Observers[TouchHandler]
	onTouchEnd     events.Observers[TouchHandler]
	onHandedness   events.Observers[func(current, previous Handedness)]
	onGripType     events.Observers[func(current, previous GripType)]
	onConnected    events.Observers[func(name string)]
	onDisconnected events.Observers[func(name string)]
	onCalibrated   events.Observers[func()]
}

// New creates a disconnected device.
func New(logger log.Log, sched Scheduler, opts ...Option) *Device {
	d := &Device{log: logger.Named("device"), sched: sched}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Device) Name() string               { return d.name }
func (d *Device) IsConnected() bool          { return d.connected }
func (d *Device) Touching() bool             { return d.touching }
func (d *Device) Touch() Touch               { return d.touch }
func (d *Device) TouchStartTime() float64    { return d.touchStart }
func (d *Device) Twist() float64             { return d.twist }
func (d *Device) Handedness() Handedness     { return d.handedness }
func (d *Device) GripType() GripType         { return d.grip }
func (d *Device) Calibrations() int          { return d.calibrations }
func (d *Device) HasHaptics() bool           { return d.haptics != nil }
func (d *Device) Priority() systems.Priority { return systems.PriorityHighest }

func (d *Device) OnTouchStart(fn TouchHandler) func() { return d.onTouchStart.Add(fn) }
func (d *Device) OnTouchHold(fn TouchHandler) func()  { return d.onTouchHold.Add(fn) }
func (d *Device) OnTouchEnd(fn TouchHandler) func()   { return d.onTouchEnd.Add(fn) }
func (d *Device) OnConnected(fn func(name string)) func() {
	return d.onConnected.Add(fn)
}
func (d *Device) OnDisconnected(fn func(name string)) func() {
	return d.onDisconnected.Add(fn)
}
func (d *Device) OnCalibrated(fn func()) func() { return d.onCalibrated.Add(fn) }
func (d *Device) OnHandednessChanged(fn func(current, previous Handedness)) func() {
	return d.onHandedness.Add(fn)
}
func (d *Device) OnGripTypeChanged(fn func(current, previous GripType)) func() {
	return d.onGripType.Add(fn)
}

// Connect marks the device connected, plays the connection cue and schedules the first
// calibration CalibrationDelayFrames frames later.
func (d *Device) Connect(name string) {
	if d.connected {
		d.log.Warn("device already connected", log.String("device", d.name), log.String("requested", name))
		return
	}
	d.name = name
	d.connected = true
	d.log.Info("device connected", log.String("device", name))
	d.PlayHapticEffects(PulsingSharp1_100)
	d.sched.Defer(CalibrationDelayFrames, func() { d.Calibrate() })
	d.onConnected.Each(func(fn func(string)) { fn(name) })
}

// Disconnect ends an active touch and marks the device disconnected.
func (d *Device) Disconnect() {
	if !d.connected {
		return
	}
	if d.touching {
		d.EndTouch(d.touch.Position, d.touch.WorldPosition)
	}
	name := d.name
	d.connected = false
	d.log.Info("device disconnected", log.String("device", name))
	d.onDisconnected.Each(func(fn func(string)) { fn(name) })
}

// Calibrate aligns the device pose with the camera. It needs a connected device.
func (d *Device) Calibrate() bool {
	if !d.connected {
		d.log.Warn("there is no device connected; cannot calibrate")
		return false
	}
	d.calibrations++
	d.log.Debug("device calibrated", log.Int("count", d.calibrations))
	d.onCalibrated.Each(func(fn func()) { fn() })
	return true
}

// StartTouch begins a trackpad contact.
func (d *Device) StartTouch(position, world spatial.Vec2) {
	if d.touching {
		d.EndTouch(d.touch.Position, d.touch.WorldPosition)
	}
	d.touching = true
	d.touch = Touch{Position: position, WorldPosition: world}
	d.touchStart = d.sched.Now()
	t := d.touch
	d.onTouchStart.Each(func(fn TouchHandler) { fn(t) })
}

// MoveTouch updates the contact position; it is reported by the next hold notification.
func (d *Device) MoveTouch(position, world spatial.Vec2) {
	if !d.touching {
		return
	}
	d.touch = Touch{Position: position, WorldPosition: world}
}

// EndTouch ends the contact.
func (d *Device) EndTouch(position, world spatial.Vec2) {
	if !d.touching {
		return
	}
	d.touch = Touch{Position: position, WorldPosition: world}
	t := d.touch
	d.onTouchEnd.Each(func(fn TouchHandler) { fn(t) })
	d.touching = false
}

// Update reports a hold once per frame while the trackpad is touched.
func (d *Device) Update(float64) {
	if !d.touching {
		return
	}
	t := d.touch
	d.onTouchHold.Each(func(fn TouchHandler) { fn(t) })
}

// SetTwist sets the roll of the device in degrees.
func (d *Device) SetTwist(deg float64) { d.twist = deg }

func (d *Device) SetHandedness(h Handedness) {
	if h == d.handedness {
		return
	}
	prev := d.handedness
	d.handedness = h
	d.onHandedness.Each(func(fn func(Handedness, Handedness)) { fn(h, prev) })
}

func (d *Device) SetGripType(g GripType) {
	if g == d.grip {
		return
	}
	prev := d.grip
	d.grip = g
	d.onGripType.Each(func(fn func(GripType, GripType)) { fn(g, prev) })
}

// PlayHapticEffects plays effects in order. It is a no-op without a haptic player or while
// disconnected.
func (d *Device) PlayHapticEffects(effects ...HapticEffect) {
	if d.haptics == nil || !d.connected || len(effects) == 0 {
		return
	}
	if err := d.haptics.PlayHapticEffects(effects...); err != nil {
		d.log.Warn("cannot play haptic effect", log.Error(err), log.Stringer("effect", effects[0]))
	}
}
