// Package manipulables holds the behaviours a scene object can respond to manipulators
// with: position and rotation coupling, slipping, selection, sliders and swooshing.
package manipulables

import (
	"github.com/zeusync/grab/internal/core/interaction"
	"github.com/zeusync/grab/internal/core/spatial"
)

// Bus event types published by the behaviours in this package.
const (
	EventSelectionChanged = "selectable.changed"
	EventSettled          = "swooshable.settled"
)

type config struct {
	manipulable []interaction.ManipulableOption

	recentreTime      float64
	counteractGravity bool
	preserveYaw       bool
	neutral           spatial.Vec3

	autoLock       bool
	speedThreshold float64
	speedFactor    float64

	slipperiness float64
	selection    SelectionMode

	sensitivity  float64
	min, max     float64
	rotationAxis spatial.Vec3
}

func newConfig(opts []Option) config {
	c := config{
		recentreTime:      0.5,
		counteractGravity: true,
		preserveYaw:       true,
		autoLock:          true,
		speedThreshold:    1,
		speedFactor:       7.5,
		selection:         TapToToggle,
		sensitivity:       4,
		min:               0,
		max:               1,
		rotationAxis:      spatial.Up,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Option configures a behaviour. Options a behaviour does not use are ignored.
type Option func(*config)

// With forwards options to the underlying interaction.Manipulable.
func With(opts ...interaction.ManipulableOption) Option {
	return func(c *config) { c.manipulable = append(c.manipulable, opts...) }
}

// WithRecentreTime sets how long the grab point takes to reach the pivot. Negative keeps
// the surface grab point.
func WithRecentreTime(seconds float64) Option {
	return func(c *config) { c.recentreTime = seconds }
}

func WithoutGravityCounteraction() Option {
	return func(c *config) { c.counteractGravity = false }
}

// PreserveYaw keeps the yaw offset between target and manipulator while rotating.
func PreserveYaw(v bool) Option {
	return func(c *config) { c.preserveYaw = v }
}

// WithNeutralRotation is the rotation, as euler angles, held relative to the manipulator.
func WithNeutralRotation(eulers spatial.Vec3) Option {
	return func(c *config) { c.neutral = eulers }
}

// AutoLock freezes a swooshable once it settled after a release.
func AutoLock(v bool) Option {
	return func(c *config) { c.autoLock = v }
}

func WithSpeedThreshold(threshold, factor float64) Option {
	return func(c *config) {
		c.speedThreshold = threshold
		c.speedFactor = factor
	}
}

// WithSlipperiness sets how freely the grab point slides over the surface, in [0, 1].
func WithSlipperiness(v float64) Option {
	return func(c *config) { c.slipperiness = spatial.Clamp01(v) }
}

func WithSelectionMode(mode SelectionMode) Option {
	return func(c *config) { c.selection = mode }
}

func WithSensitivity(v float64) Option {
	return func(c *config) { c.sensitivity = v }
}

// WithRange bounds a slider value.
func WithRange(min, max float64) Option {
	return func(c *config) {
		c.min = min
		c.max = max
	}
}

// WithRotationAxis is the local axis a Rotatable turns about.
func WithRotationAxis(axis spatial.Vec3) Option {
	return func(c *config) { c.rotationAxis = axis }
}
