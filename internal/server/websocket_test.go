package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/grab/internal/config"
	"github.com/zeusync/grab/internal/core/events/bus"
	"github.com/zeusync/grab/internal/core/observability/log"
)

func newTestServer(t *testing.T, token string) (*Server, bus.EventBus, string) {
	t.Helper()
	b := bus.New()
	cfg := config.Default().Telemetry
	cfg.Token = token
	cfg.BufferSize = 8
	s := NewServer(cfg, b, log.NewNop())
	b.AddObserver(s.hub)
	t.Cleanup(func() { b.RemoveObserver(s.hub) })

	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return s, b, "ws" + strings.TrimPrefix(ts.URL, "http") + cfg.Path
}

func dial(t *testing.T, s *Server, url string, clients int64) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return s.GetStats().Clients == clients }, time.Second, 5*time.Millisecond)
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestWebSocketRequiresToken(t *testing.T) {
	s, _, url := newTestServer(t, "supersecrettoken")

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, _, err = websocket.DefaultDialer.Dial(url+"?token=invalid", nil)
	require.Error(t, err)

	dial(t, s, url+"?token=supersecrettoken", 1)
}

func TestWebSocketStreamsTopicEvents(t *testing.T) {
	s, b, url := newTestServer(t, "")
	kitchen := dial(t, s, url+"?topic=kitchen", 1)
	all := dial(t, s, url, 2)

	require.NoError(t, b.PublishToTopic("garage", bus.NewEvent("manipulator.grab", "laser", "crate", nil)))
	require.NoError(t, b.PublishToTopic("kitchen", bus.NewEvent("manipulator.tap", "pointer", "lamp", nil)))

	env := readEnvelope(t, kitchen)
	assert.Equal(t, "kitchen", env.Topic)
	assert.Equal(t, "manipulator.tap", env.Type)
	assert.Equal(t, "pointer", env.Source)
	assert.Equal(t, "lamp", env.Data)

	assert.Equal(t, "garage", readEnvelope(t, all).Topic)
	assert.Equal(t, "kitchen", readEnvelope(t, all).Topic)
	assert.Equal(t, uint64(3), s.GetStats().Sent)
}

func TestTopicsAndHealthEndpoints(t *testing.T) {
	s, b, _ := newTestServer(t, "")
	_, err := b.SubscribeTopic("kitchen", bus.Wildcard, func(bus.Event) error { return nil })
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/topics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var topics []bus.TopicInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &topics))
	names := make([]string, 0, len(topics))
	for _, ti := range topics {
		names = append(names, ti.Name)
	}
	assert.Contains(t, names, "kitchen")

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerLifecycle(t *testing.T) {
	cfg := config.Default().Telemetry
	cfg.Addr = "127.0.0.1:0"
	s := NewServer(cfg, bus.New(), log.NewNop())

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	assert.ErrorIs(t, s.Start(ctx), ErrServerAlreadyRunning)
	assert.True(t, s.GetStats().Running)

	resp, err := http.Get("http://" + s.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop(ctx))
	assert.ErrorIs(t, s.Stop(ctx), ErrServerNotRunning)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Start(ctx), ErrServerClosed)
}
