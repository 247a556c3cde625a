package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("SLA_WATCHER_DELAY_MS", "")
	t.Setenv("SLA_WATCHER_ENABLED", "")
	t.Setenv("TICKET_CLOSED_IS_TERMINAL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.SLA.WatcherDelay())
	assert.True(t, cfg.SLA.WatcherEnabled)
	assert.True(t, cfg.Ticket.ClosedIsTerminal)
	assert.Equal(t, 500, cfg.SLA.ScanBatchSize)
	assert.Empty(t, cfg.Postgres.DSN)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SLA_WATCHER_DELAY_MS", "1500")
	t.Setenv("SLA_WATCHER_ENABLED", "false")
	t.Setenv("TICKET_CLOSED_IS_TERMINAL", "false")
	t.Setenv("REDIS_EVENTS_CHANNEL", "")
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.SLA.WatcherDelay())
	assert.False(t, cfg.SLA.WatcherEnabled)
	assert.False(t, cfg.Ticket.ClosedIsTerminal)
	assert.Empty(t, cfg.Events.RedisChannel)
	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
}

func TestLoadRejectsNonPositiveDelay(t *testing.T) {
	t.Setenv("SLA_WATCHER_DELAY_MS", "0")

	_, err := Load()
	assert.Error(t, err)
}
