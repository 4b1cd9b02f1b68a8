// Package server serves interaction telemetry: every event published on the session bus
// is streamed as JSON to websocket clients.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/zeusync/grab/internal/config"
	"github.com/zeusync/grab/internal/core/events/bus"
	"github.com/zeusync/grab/internal/core/observability/log"
)

// Server is the telemetry HTTP server.
type Server struct {
	cfg    config.Telemetry
	bus    bus.EventBus
	hub    *Hub
	http   *http.Server
	addr   net.Addr
	logger log.Log

	running int32 // atomic bool
	closed  int32 // atomic bool
	done    chan struct{}
}

func NewServer(cfg config.Telemetry, b bus.EventBus, logger log.Log) *Server {
	if cfg.Path == "" {
		cfg.Path = config.Default().Telemetry.Path
	}
	logger = logger.Named("telemetry")
	s := &Server{
		cfg:    cfg,
		bus:    b,
		hub:    NewHub(logger, NewTokenAuth(cfg.Token), cfg.BufferSize),
		logger: logger,
	}
	s.logger.Info("server created", log.String("addr", cfg.Addr), log.String("path", cfg.Path))
	return s
}

// Start listens and serves in the background until Stop.
func (s *Server) Start(ctx context.Context) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrServerClosed
	}
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrServerAlreadyRunning
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		atomic.StoreInt32(&s.running, 0)
		return fmt.Errorf("%w: %s: %w", ErrListenerFailed, s.cfg.Addr, err)
	}
	s.addr = ln.Addr()
	s.http = &http.Server{Handler: s}
	s.done = make(chan struct{})
	s.bus.AddObserver(s.hub)

	go func() {
		defer close(s.done)
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve failed", log.Error(err))
		}
	}()
	s.logger.Info("server listening", log.String("addr", s.addr.String()))
	return nil
}

// Stop detaches from the bus, disconnects the clients and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return ErrServerNotRunning
	}
	s.bus.RemoveObserver(s.hub)
	s.hub.closeAll()
	err := s.http.Shutdown(ctx)
	<-s.done
	s.logger.Info("server stopped")
	return err
}

// Close stops the server if needed; it cannot be started again.
func (s *Server) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	if atomic.LoadInt32(&s.running) == 1 {
		return s.Stop(context.Background())
	}
	return nil
}

// Addr is the bound address once started.
func (s *Server) Addr() net.Addr { return s.addr }

// Stats contains server statistics.
type Stats struct {
	Clients int64  `json:"clients"`
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
	Running bool   `json:"running"`
}

func (s *Server) GetStats() Stats {
	return Stats{
		Clients: s.hub.clients.Load(),
		Sent:    s.hub.sent.Load(),
		Dropped: s.hub.dropped.Load(),
		Running: atomic.LoadInt32(&s.running) == 1,
	}
}
