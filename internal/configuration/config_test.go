package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `{
		"mongo": {"uri": "mongodb://db:27017", "database": "chat"},
		"server": {"app_port": 9000, "socket_port": 9001, "socket_route": "socket", "shutdown_timeout_seconds": 5},
		"auth": {"jwt_secret": "s3cret", "token_ttl_minutes": 30},
		"kafka": {"enabled": true, "brokers": ["k1:9092", "k2:9092"]}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "mongodb://db:27017", cfg.ChatDatabase.Uri)
	assert.Equal(t, 9001, cfg.Server.SocketPort)
	assert.Equal(t, "socket", cfg.Server.SocketRoute)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "aura.message.sent", cfg.Kafka.TopicMessageSent)
	assert.Equal(t, 256, cfg.Hub.SendBuffer)
	assert.Equal(t, StoreMongo, cfg.Store.Driver)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `{"auth": {"jwt_secret": "from-file"}}`)
	t.Setenv("AURA_AUTH_JWT_SECRET", "from-env")
	t.Setenv("AURA_STORE_DRIVER", "memory")
	t.Setenv("AURA_SERVER_APP_PORT", "7000")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 7000, cfg.Server.AppPort)
}

func TestLoadConfigValidation(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `{}`))
	assert.ErrorContains(t, err, "jwt_secret")

	_, err = LoadConfig(writeConfig(t, `{"auth": {"jwt_secret": "x"}, "store": {"driver": "sqlite"}}`))
	assert.ErrorContains(t, err, "store.driver")

	_, err = LoadConfig(writeConfig(t, `{"auth": {"jwt_secret": "x"}, "server": {"app_port": 1, "socket_port": 1}}`))
	assert.ErrorContains(t, err, "must differ")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
