// Package injector assembles the long-lived services of the CLI with wire.
package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/grab/internal/config"
	"github.com/zeusync/grab/internal/core/events/bus"
	"github.com/zeusync/grab/internal/core/observability/log"
	"github.com/zeusync/grab/internal/server"
)

// App holds what every subcommand shares.
type App struct {
	Config    *config.Config
	Log       log.Log
	Bus       bus.EventBus
	Telemetry *server.Server
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	bus.New,
	ProvideTelemetry,
	wire.Struct(new(App), "*"),
)

// ProvideLogger builds the process logger from the log section.
func ProvideLogger(cfg *config.Config) (log.Log, error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Log.Format == "json" {
		return log.New(level), nil
	}
	return log.NewConsole(level), nil
}

// ProvideTelemetry creates the event feed server; it is not started.
func ProvideTelemetry(cfg *config.Config, b bus.EventBus, logger log.Log) *server.Server {
	return server.NewServer(cfg.Telemetry, b, logger)
}
