package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/grab/internal/config"
)

// setDefaults registers every key so env overrides such as GRABSIM_PHYSICS_FRICTION apply.
func setDefaults(v *viper.Viper) {
	d := config.Default()
	v.SetDefault("interaction.tap_time", d.Interaction.TapTime)
	v.SetDefault("interaction.max_raycast_distance", d.Interaction.MaxRaycastDistance)
	v.SetDefault("interaction.laser_points", d.Interaction.LaserPoints)
	v.SetDefault("interaction.frame_time", d.Interaction.FrameTime)

	v.SetDefault("physics.gravity", d.Physics.Gravity[:])
	v.SetDefault("physics.fixed_timestep", d.Physics.FixedTimestep)
	v.SetDefault("physics.max_fixed_steps", d.Physics.MaxFixedSteps)
	v.SetDefault("physics.friction", d.Physics.Friction)
	v.SetDefault("physics.cell_size", d.Physics.CellSize)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("telemetry.addr", d.Telemetry.Addr)
	v.SetDefault("telemetry.path", d.Telemetry.Path)
	v.SetDefault("telemetry.buffer_size", d.Telemetry.BufferSize)
	v.SetDefault("telemetry.token", d.Telemetry.Token)
}

// loadConfig layers defaults, the config file, GRABSIM_* variables and flags.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	setDefaults(o.v)
	o.initEnv()

	if path := o.v.GetString("config"); path != "" {
		if _, err := config.FormatOf(path); err != nil {
			return nil, err
		}
		o.v.SetConfigFile(path)
		if err := o.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := config.Default()
	if err := o.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newConfigCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
