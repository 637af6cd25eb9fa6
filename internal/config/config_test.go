package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "mongodb", cfg.Store.Driver)
	assert.False(t, cfg.Store.RollbackRequested())
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Redis.OfferTTL)
	assert.Equal(t, "/ws", cfg.WebSocket.Path)
	assert.Equal(t, 256, cfg.WebSocket.SendBufferSize)
	assert.Equal(t, "none", cfg.Push.Provider)
	assert.Contains(t, cfg.Security.ResponderRoles, "responder")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("STORE_ROLLBACK_TO", "1")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_OFFER_TTL", "90s")
	t.Setenv("RESPONDER_ROLES", " guard , ,dispatcher")
	t.Setenv("SMS_ON_CALL_NUMBERS", "+15550001111,+15550002222")
	t.Setenv("WEBSOCKET_PONG_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.True(t, cfg.Store.RollbackRequested())
	assert.Equal(t, 1, cfg.Store.RollbackTo)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 90*time.Second, cfg.Redis.OfferTTL)
	assert.Equal(t, []string{"guard", "dispatcher"}, cfg.Security.ResponderRoles)
	assert.Equal(t, []string{"+15550001111", "+15550002222"}, cfg.SMS.OnCallNumbers)
	assert.Equal(t, 60*time.Second, cfg.WebSocket.PongTimeout)
}
