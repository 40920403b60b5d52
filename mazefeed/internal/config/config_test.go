package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWithFile(t *testing.T) {
	path := writeConfig(t, `
credentials:
  static_token: dev-token
storage:
  s3:
    bucket: maze-images
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/maze-solver/events", cfg.Feed.Topic)
	assert.Equal(t, "", cfg.Feed.DedupKey)
	assert.Equal(t, models.Field(""), cfg.DedupField())
	assert.Equal(t, 30*time.Second, cfg.Feed.ResolveTimeout)
	assert.False(t, cfg.Feed.Replay.Enabled)
	assert.Equal(t, "MAZE_EVENTS", cfg.Feed.Replay.Stream)
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "", cfg.Storage.Prefix)
	assert.Equal(t, "eu-central-1", cfg.Storage.S3.Region)
	assert.Equal(t, 15*time.Minute, cfg.Storage.S3.PresignExpiry)
	assert.Equal(t, "memory", cfg.Credentials.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Credentials.Cache.DefaultTTL)
	assert.Equal(t, -1, cfg.NATS.MaxReconnects)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
feed:
  dedup_key: raw
  resolve_timeout: 10s
  replay:
    enabled: true
credentials:
  mode: oauth2
  oauth2:
    token_url: https://idp.example/oauth2/token
    client_id: dashboard
    scopes: [storage.read]
  cache:
    backend: redis
storage:
  backend: gateway
  prefix: public/
  gateway:
    url: http://storage-gateway:8080
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, models.FieldRaw, cfg.DedupField())
	assert.Equal(t, 10*time.Second, cfg.Feed.ResolveTimeout)
	assert.True(t, cfg.Feed.Replay.Enabled)
	assert.Equal(t, "oauth2", cfg.Credentials.Mode)
	assert.Equal(t, []string{"storage.read"}, cfg.Credentials.OAuth2.Scopes)
	assert.Equal(t, "redis", cfg.Credentials.Cache.Backend)
	assert.Equal(t, "gateway", cfg.Storage.Backend)
	assert.Equal(t, "public/", cfg.Storage.Prefix)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
credentials:
  static_token: dev-token
storage:
  s3:
    bucket: maze-images
`)
	t.Setenv("MAZEFEED_SERVER_PORT", "9090")
	t.Setenv("MAZEFEED_FEED_DEDUP_KEY", "solved")
	t.Setenv("MAZEFEED_CREDENTIALS_STATIC_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, models.FieldSolved, cfg.DedupField())
	assert.Equal(t, "from-env", cfg.Credentials.StaticToken)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:      ServerConfig{Port: 3000},
			Feed:        FeedConfig{ResolveTimeout: 30 * time.Second},
			Credentials: CredentialsConfig{Mode: "static", StaticToken: "t", Cache: CacheConfig{Backend: "memory"}},
			Storage:     StorageConfig{Backend: "s3", S3: S3Config{Bucket: "b"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "bad dedup key", mutate: func(c *Config) { c.Feed.DedupKey = "thumbnail" }, wantErr: "feed.dedup_key"},
		{name: "negative timeout", mutate: func(c *Config) { c.Feed.ResolveTimeout = -time.Second }, wantErr: "resolve_timeout"},
		{name: "unbounded timeout", mutate: func(c *Config) { c.Feed.ResolveTimeout = 0 }, wantErr: "feed.resolve_timeout must be positive"},
		{name: "replay without stream", mutate: func(c *Config) { c.Feed.Replay.Enabled = true }, wantErr: "feed.replay.stream"},
		{name: "static without token", mutate: func(c *Config) { c.Credentials.StaticToken = "" }, wantErr: "credentials.static_token"},
		{name: "unknown credentials mode", mutate: func(c *Config) { c.Credentials.Mode = "cognito" }, wantErr: "credentials.mode"},
		{name: "oauth2 incomplete", mutate: func(c *Config) { c.Credentials.Mode = "oauth2" }, wantErr: "credentials.oauth2"},
		{name: "session incomplete", mutate: func(c *Config) { c.Credentials.Mode = "session" }, wantErr: "credentials.session"},
		{name: "unknown cache backend", mutate: func(c *Config) { c.Credentials.Cache.Backend = "memcached" }, wantErr: "credentials.cache.backend"},
		{name: "s3 without bucket", mutate: func(c *Config) { c.Storage.S3.Bucket = "" }, wantErr: "storage.s3.bucket"},
		{name: "gateway without url", mutate: func(c *Config) { c.Storage.Backend = "gateway" }, wantErr: "storage.gateway.url"},
		{name: "unknown storage backend", mutate: func(c *Config) { c.Storage.Backend = "gcs" }, wantErr: "storage.backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
