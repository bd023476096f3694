package config

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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	path := writeConfig(t, `
http:
  addr: ":8080"
storage:
  driver: sqlite
auth:
  alg: HS256
  secret: s3cret
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "./data/chat.db", cfg.SQLite.Path)
	assert.Equal(t, "chat-service", cfg.Logging.Service)
	assert.Equal(t, "std", cfg.Logging.Backend)
	assert.Equal(t, 50, cfg.Chat.ReplayLimit)
	assert.Equal(t, 4000, cfg.Chat.MaxMessageLength)
	assert.Equal(t, 64, cfg.Chat.SendBuffer)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout())
	assert.Equal(t, 15*time.Second, cfg.PingInterval())
	assert.Equal(t, 5*time.Minute, cfg.UserCacheTTL())
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout())
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://env")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")

	path := writeConfig(t, `
http:
  addr: ":8080"
auth:
  alg: HS256
chat:
  pingInterval: 2s
  allowedOrigins: ["https://app.example.com"]
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "postgres://env", cfg.Postgres.DSN)
	assert.Equal(t, "from-env", cfg.Auth.Secret)
	assert.Equal(t, "redis://cache:6379/0", cfg.Redis.URL)
	assert.Equal(t, 2*time.Second, cfg.PingInterval())
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Chat.AllowedOrigins)
}

func TestLoadFile_Invalid(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("JWT_SECRET", "")

	cases := map[string]string{
		"missing http addr": "storage: {driver: sqlite}\nauth: {alg: HS256, secret: x}\n",
		"missing dsn":       "http: {addr: ':1'}\nauth: {alg: HS256, secret: x}\n",
		"unknown driver":    "http: {addr: ':1'}\nstorage: {driver: mongo}\nauth: {alg: HS256, secret: x}\n",
		"hs256 no secret":   "http: {addr: ':1'}\nstorage: {driver: sqlite}\nauth: {alg: HS256}\n",
		"rs256 no key":      "http: {addr: ':1'}\nstorage: {driver: sqlite}\n",
		"unknown alg":       "http: {addr: ':1'}\nstorage: {driver: sqlite}\nauth: {alg: none}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestParseDurationOr(t *testing.T) {
	assert.Equal(t, time.Second, parseDurationOr(time.Second, ""))
	assert.Equal(t, time.Second, parseDurationOr(time.Second, "soon"))
	assert.Equal(t, time.Second, parseDurationOr(time.Second, "-5s"))
	assert.Equal(t, 3*time.Minute, parseDurationOr(time.Second, "3m"))
}
