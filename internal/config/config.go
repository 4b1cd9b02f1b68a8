// Package config holds the tunables of a simulation session and the scenario scripts
// replayed by the CLI. Files are YAML or TOML; the CLI layers viper on top for env and
// flag overrides, hence the mapstructure tags.
package config

import (
	"fmt"
	"strings"

	"github.com/zeusync/grab/internal/core/observability/log"
	"github.com/zeusync/grab/internal/core/spatial"
)

// Vec3 is a vector as written in config files: a three element list.
type Vec3 [3]float64

func (v Vec3) Vec() spatial.Vec3 { return spatial.Vec3{v[0], v[1], v[2]} }

// Config is the root configuration.
type Config struct {
	Interaction Interaction `yaml:"interaction" toml:"interaction" mapstructure:"interaction"`
	Physics     Physics     `yaml:"physics" toml:"physics" mapstructure:"physics"`
	Log         Log         `yaml:"log" toml:"log" mapstructure:"log"`
	Telemetry   Telemetry   `yaml:"telemetry" toml:"telemetry" mapstructure:"telemetry"`
}

// Interaction tunes gesture timing and target discovery.
type Interaction struct {
	// TapTime separates a tap from a long hold, in seconds.
	TapTime            float64 `yaml:"tap_time" toml:"tap_time" mapstructure:"tap_time"`
	MaxRaycastDistance float64 `yaml:"max_raycast_distance" toml:"max_raycast_distance" mapstructure:"max_raycast_distance"`
	LaserPoints        int     `yaml:"laser_points" toml:"laser_points" mapstructure:"laser_points"`
	// FrameTime is the variable-rate frame length used when replaying scenarios.
	FrameTime float64 `yaml:"frame_time" toml:"frame_time" mapstructure:"frame_time"`
}

// Physics configures the in-memory physics world.
type Physics struct {
	Gravity       Vec3     `yaml:"gravity" toml:"gravity" mapstructure:"gravity"`
	FixedTimestep float64  `yaml:"fixed_timestep" toml:"fixed_timestep" mapstructure:"fixed_timestep"`
	MaxFixedSteps int      `yaml:"max_fixed_steps" toml:"max_fixed_steps" mapstructure:"max_fixed_steps"`
	Floor         *float64 `yaml:"floor,omitempty" toml:"floor,omitempty" mapstructure:"floor"`
	Friction      float64  `yaml:"friction" toml:"friction" mapstructure:"friction"`
	CellSize      float64  `yaml:"cell_size" toml:"cell_size" mapstructure:"cell_size"`
}

type Log struct {
	Level string `yaml:"level" toml:"level" mapstructure:"level"`
	// Format is "json" or "console".
	Format string `yaml:"format" toml:"format" mapstructure:"format"`
}

// Telemetry configures the websocket event feed.
type Telemetry struct {
	Addr       string `yaml:"addr" toml:"addr" mapstructure:"addr"`
	Path       string `yaml:"path" toml:"path" mapstructure:"path"`
	BufferSize int    `yaml:"buffer_size" toml:"buffer_size" mapstructure:"buffer_size"`
	// Token, when set, must be passed by clients as the token query parameter.
	Token string `yaml:"token,omitempty" toml:"token,omitempty" mapstructure:"token"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Interaction: Interaction{
			TapTime:            0.3,
			MaxRaycastDistance: 1000,
			LaserPoints:        21,
			FrameTime:          1.0 / 60,
		},
		Physics: Physics{
			Gravity:       Vec3{0, -9.81, 0},
			FixedTimestep: 0.02,
			MaxFixedSteps: 8,
			Friction:      8,
			CellSize:      1,
		},
		Log: Log{Level: "info", Format: "console"},
		Telemetry: Telemetry{
			Addr:       ":8088",
			Path:       "/events",
			BufferSize: 256,
		},
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Interaction.TapTime <= 0:
		return fmt.Errorf("%w: interaction.tap_time must be positive", ErrInvalidConfig)
	case c.Interaction.MaxRaycastDistance <= 0:
		return fmt.Errorf("%w: interaction.max_raycast_distance must be positive", ErrInvalidConfig)
	case c.Interaction.LaserPoints < 2:
		return fmt.Errorf("%w: interaction.laser_points must be at least 2", ErrInvalidConfig)
	case c.Interaction.FrameTime <= 0:
		return fmt.Errorf("%w: interaction.frame_time must be positive", ErrInvalidConfig)
	case c.Physics.FixedTimestep <= 0:
		return fmt.Errorf("%w: physics.fixed_timestep must be positive", ErrInvalidConfig)
	case c.Physics.MaxFixedSteps <= 0:
		return fmt.Errorf("%w: physics.max_fixed_steps must be positive", ErrInvalidConfig)
	case c.Physics.Friction < 0:
		return fmt.Errorf("%w: physics.friction must not be negative", ErrInvalidConfig)
	case c.Physics.CellSize <= 0:
		return fmt.Errorf("%w: physics.cell_size must be positive", ErrInvalidConfig)
	case c.Telemetry.BufferSize <= 0:
		return fmt.Errorf("%w: telemetry.buffer_size must be positive", ErrInvalidConfig)
	}
	if c.Telemetry.Path != "" && !strings.HasPrefix(c.Telemetry.Path, "/") {
		return fmt.Errorf("%w: telemetry.path must start with /", ErrInvalidConfig)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, err)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}
