// Package interaction is the hover/grab/release core: Manipulators (actors) discover and
// drive Manipulables (targets) through per-pair Manipulations. Everything here runs on
// the scheduler thread of one Session.
package interaction

import (
	"github.com/zeusync/grab/internal/core/device"
	"github.com/zeusync/grab/internal/core/events/bus"
	"github.com/zeusync/grab/internal/core/observability/log"
	"github.com/zeusync/grab/internal/core/systems"
	"github.com/zeusync/grab/internal/core/systems/physics"
)

// Scheduler is the frame scheduler a Session drives its objects with.
type Scheduler interface {
	systems.Clock
	Register(obj any) (unregister func())
	Defer(frames int, fn func())
}

// Tuning holds the interaction constants shared by every actor of a session.
type Tuning struct {
	// TapTime separates a tap from a long hold, in seconds.
	TapTime            float64
	MaxRaycastDistance float64
	LaserPoints        int
}

func DefaultTuning() Tuning {
	return Tuning{TapTime: 0.3, MaxRaycastDistance: 1000, LaserPoints: 21}
}

type SessionOption func(*Session)

// WithBus publishes every interaction event on b under topic.
func WithBus(b bus.EventBus, topic string) SessionOption {
	return func(s *Session) {
		s.bus = b
		s.topic = topic
	}
}

// WithDevice gives pointer actors a controller to read input from.
func WithDevice(d *device.Device) SessionOption {
	return func(s *Session) { s.device = d }
}

func WithScale(n *device.ScaleNotifier) SessionOption {
	return func(s *Session) { s.scale = n }
}

func WithTuning(t Tuning) SessionOption {
	return func(s *Session) { s.tuning = t }
}

// Session is the context injected into every Manipulator and Manipulable of one scene.
type Session struct {
	scheduler Scheduler
	physics   physics.World
	log       log.Log
	bus       bus.EventBus
	topic     string
	device    *device.Device
	scale     *device.ScaleNotifier
	tuning    Tuning
}

// NewSession creates a session. Without WithBus events are only delivered to per-entity
// observers.
func NewSession(sched Scheduler, world physics.World, logger log.Log, opts ...SessionOption) *Session {
	s := &Session{
		scheduler: sched,
		physics:   world,
		log:       logger.Named("interaction"),
		tuning:    DefaultTuning(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tuning.TapTime <= 0 {
		s.tuning.TapTime = DefaultTuning().TapTime
	}
	if s.tuning.MaxRaycastDistance <= 0 {
		s.tuning.MaxRaycastDistance = DefaultTuning().MaxRaycastDistance
	}
	if s.tuning.LaserPoints < 2 {
		s.tuning.LaserPoints = DefaultTuning().LaserPoints
	}
	return s
}

func (s *Session) Clock() systems.Clock    { return s.scheduler }
func (s *Session) Scheduler() Scheduler    { return s.scheduler }
func (s *Session) Physics() physics.World  { return s.physics }
func (s *Session) Log() log.Log            { return s.log }
func (s *Session) Tuning() Tuning          { return s.tuning }
func (s *Session) Now() float64            { return s.scheduler.Now() }
func (s *Session) FixedDeltaTime() float64 { return s.scheduler.FixedDeltaTime() }
func (s *Session) Bus() bus.EventBus       { return s.bus }
func (s *Session) Topic() string           { return s.topic }

// Device returns the controller, nil when the session has none.
func (s *Session) Device() *device.Device { return s.device }

// Scale returns the scene scale notifier, nil when the session has none.
func (s *Session) Scale() *device.ScaleNotifier { return s.scale }

// Register adds obj to the scheduler phases it implements.
func (s *Session) Register(obj any) func() { return s.scheduler.Register(obj) }

// Defer runs fn after frames frame boundaries.
func (s *Session) Defer(frames int, fn func()) { s.scheduler.Defer(frames, fn) }

// PlayHaptics plays effects on the session device, if there is one.
func (s *Session) PlayHaptics(effects ...device.HapticEffect) {
	if s.device != nil {
		s.device.PlayHapticEffects(effects...)
	}
}

// Publish sends an event on the session bus.
func (s *Session) Publish(eventType, source string, data any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishToTopic(s.topic, bus.NewEvent(eventType, source, data, nil)); err != nil {
		s.log.Warn("event handler failed", log.String("event", eventType), log.Error(err))
	}
}
