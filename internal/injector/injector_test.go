package injector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/grab/internal/config"
)

func TestInitializeApp(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Format = "json"
	app, err := InitializeApp(&cfg)
	require.NoError(t, err)
	assert.Same(t, &cfg, app.Config)
	assert.NotNil(t, app.Bus)
	assert.NotNil(t, app.Telemetry)
	assert.False(t, app.Telemetry.GetStats().Running)
}

func TestInitializeAppRejectsBadLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"
	_, err := InitializeApp(&cfg)
	assert.Error(t, err)
}
