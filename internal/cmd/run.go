package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/grab/internal/config"
	"github.com/zeusync/grab/internal/core/observability/log"
	"github.com/zeusync/grab/internal/injector"
	"github.com/zeusync/grab/internal/scenario"
)

func newRunCmd(o *rootOptions) *cobra.Command {
	var (
		parallel int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "run <scenario>...",
		Short: "Replay scenarios and check their expectations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := o.app()
			if err != nil {
				return err
			}
			defer func() { _ = app.Log.Sync() }()

			reports, err := runScenarios(cmd.Context(), app, args, parallel)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(reports); err != nil {
					return err
				}
			} else {
				renderReports(cmd.OutOrStdout(), reports)
			}
			for _, r := range reports {
				if !r.Passed() {
					return ErrScenariosFailed
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&parallel, "parallel", "p", runtime.GOMAXPROCS(0), "scenarios replayed at once")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the reports as json")
	cmd.Flags().Float64("frame-time", 0, "variable frame length in seconds")
	_ = o.v.BindPFlag("interaction.frame_time", cmd.Flags().Lookup("frame-time"))
	return cmd
}

// loadScenarios reads every file up front and gives each scene its own bus topic.
func loadScenarios(paths []string) ([]*config.Scenario, []string, error) {
	specs := make([]*config.Scenario, len(paths))
	topics := make([]string, len(paths))
	seen := make(map[string]bool, len(paths))
	for i, p := range paths {
		spec, err := config.LoadScenarioFile(p)
		if err != nil {
			return nil, nil, err
		}
		topic := spec.Name
		if seen[topic] {
			topic = fmt.Sprintf("%s#%d", spec.Name, i+1)
		}
		seen[topic] = true
		specs[i], topics[i] = spec, topic
	}
	return specs, topics, nil
}

// runScenarios replays the files concurrently on the shared bus; reports keep file order.
func runScenarios(ctx context.Context, app *injector.App, paths []string, parallel int) ([]*scenario.Report, error) {
	specs, topics, err := loadScenarios(paths)
	if err != nil {
		return nil, err
	}

	reports := make([]*scenario.Report, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, spec := range specs {
		g.Go(func() error {
			scene, err := scenario.Build(spec, app.Config, app.Log, scenario.WithBus(app.Bus, topics[i]))
			if err != nil {
				return fmt.Errorf("%s: %w", paths[i], err)
			}
			r, err := scene.Run(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", paths[i], err)
			}
			app.Log.Info("scenario finished",
				log.String("scenario", spec.Name),
				log.Bool("passed", r.Passed()),
				log.Int("failures", len(r.Failures())),
			)
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
