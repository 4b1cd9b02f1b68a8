// Package cmd is the grabsim command line: it replays interaction scenarios headless and
// serves their events over websocket.
package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zeusync/grab/internal/injector"
)

// ErrScenariosFailed is returned when at least one scenario expectation did not hold.
var ErrScenariosFailed = errors.New("scenario expectations failed")

type rootOptions struct {
	v *viper.Viper
}

// NewRootCmd builds the command tree with its own viper instance.
func NewRootCmd() *cobra.Command {
	o := &rootOptions{v: viper.New()}

	root := &cobra.Command{
		Use:   "grabsim",
		Short: "Headless hover, grab and release simulator",
		Long: `grabsim replays scripted scenes of lasers, pointers and hand tools
against grabbable objects, checks the expected interaction events and can
stream every event to websocket clients.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "config file (yaml or toml)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: console or json")
	_ = o.v.BindPFlag("config", flags.Lookup("config"))
	_ = o.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = o.v.BindPFlag("log.format", flags.Lookup("log-format"))

	root.AddCommand(
		newRunCmd(o),
		newServeCmd(o),
		newValidateCmd(),
		newConfigCmd(o),
	)
	return root
}

// Execute runs the command line until ctx is cancelled.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// app loads the layered configuration and assembles the shared services.
func (o *rootOptions) app() (*injector.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return injector.InitializeApp(cfg)
}

func (o *rootOptions) initEnv() {
	o.v.SetEnvPrefix("GRABSIM")
	o.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	o.v.AutomaticEnv()
}
