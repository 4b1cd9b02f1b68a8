package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/zeusync/grab/internal/core/observability/log"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(o *rootOptions) *cobra.Command {
	var repeat time.Duration
	cmd := &cobra.Command{
		Use:   "serve [scenario]...",
		Short: "Stream interaction events over websocket, optionally replaying scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := o.app()
			if err != nil {
				return err
			}
			defer func() { _ = app.Log.Sync() }()

			ctx := cmd.Context()
			if err := app.Telemetry.Start(ctx); err != nil {
				return err
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := app.Telemetry.Stop(stopCtx); err != nil {
					app.Log.Warn("telemetry shutdown", log.Error(err))
				}
			}()

			for len(args) > 0 {
				reports, err := runScenarios(ctx, app, args, 0)
				if err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				if err == nil {
					renderReports(cmd.OutOrStdout(), reports)
				}
				if repeat <= 0 {
					break
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(repeat):
				}
			}

			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().DurationVar(&repeat, "repeat", 0, "replay the scenarios at this interval")
	cmd.Flags().String("addr", "", "listen address")
	cmd.Flags().String("token", "", "token clients must present")
	_ = o.v.BindPFlag("telemetry.addr", cmd.Flags().Lookup("addr"))
	_ = o.v.BindPFlag("telemetry.token", cmd.Flags().Lookup("token"))
	return cmd
}
