package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SHOW_SEAT_COUNT", "")
	t.Setenv("SHOW_POST_SHOW_COOLDOWN", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, 9, cfg.Show.SeatCount)
	assert.Equal(t, time.Second, cfg.Show.TickInterval)
	assert.Equal(t, 5*time.Second, cfg.Show.PostShowCooldown)
	assert.Equal(t, 3600, cfg.Show.MaxCountdown)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingInterval)
	assert.NotEmpty(t, cfg.ICE.STUNServers)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("SHOW_SEAT_COUNT", "5")
	t.Setenv("SHOW_POST_SHOW_COOLDOWN", "30s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Show.SeatCount)
	assert.Equal(t, 30*time.Second, cfg.Show.PostShowCooldown)
	assert.Equal(t, "debug", cfg.Log.Level)
}
