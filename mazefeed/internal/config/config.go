// Package config provides configuration loading for the maze feed service.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/models"
)

// Config holds all configuration for the maze feed service
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Feed        FeedConfig        `mapstructure:"feed"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Auth        AuthConfig        `mapstructure:"auth"`
	CORS        CORSConfig        `mapstructure:"cors"`
	StaticDir   string            `mapstructure:"static_dir"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NATSConfig holds NATS message broker configuration
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Name          string        `mapstructure:"name"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	Token         string        `mapstructure:"token"`
}

// FeedConfig controls how maze events become feed records
type FeedConfig struct {
	Topic            string        `mapstructure:"topic"`
	DedupKey         string        `mapstructure:"dedup_key"`
	ResolveTimeout   time.Duration `mapstructure:"resolve_timeout"`
	Replay           ReplayConfig  `mapstructure:"replay"`
	MaxStreamClients int           `mapstructure:"max_stream_clients"`
	StreamBuffer     int           `mapstructure:"stream_buffer"`
}

// ReplayConfig enables rebuilding the feed from a JetStream stream on startup
type ReplayConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Stream  string `mapstructure:"stream"`
}

// CredentialsConfig selects where storage bearer tokens come from
type CredentialsConfig struct {
	Mode        string        `mapstructure:"mode"`
	StaticToken string        `mapstructure:"static_token"`
	OAuth2      OAuth2Config  `mapstructure:"oauth2"`
	Session     SessionConfig `mapstructure:"session"`
	Cache       CacheConfig   `mapstructure:"cache"`
}

// OAuth2Config holds the client-credentials grant settings
type OAuth2Config struct {
	TokenURL     string   `mapstructure:"token_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
}

// SessionConfig holds username/password login settings
type SessionConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig holds credential cache settings
type CacheConfig struct {
	Backend    string        `mapstructure:"backend"`
	RedisURL   string        `mapstructure:"redis_url"`
	Key        string        `mapstructure:"key"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	Skew       time.Duration `mapstructure:"skew"`
}

// StorageConfig selects the object store backend
type StorageConfig struct {
	Backend string        `mapstructure:"backend"`
	Prefix  string        `mapstructure:"prefix"`
	S3      S3Config      `mapstructure:"s3"`
	Gateway GatewayConfig `mapstructure:"gateway"`
}

// S3Config holds S3 bucket settings
type S3Config struct {
	Region          string        `mapstructure:"region"`
	Bucket          string        `mapstructure:"bucket"`
	Endpoint        string        `mapstructure:"endpoint"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
}

// GatewayConfig holds HTTP storage gateway settings
type GatewayConfig struct {
	URL string `mapstructure:"url"`
}

// AuthConfig protects the feed API. An empty secret leaves it open.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "0s") // streams stay open
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.name", "mazefeed")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.timeout", "5s")
	v.SetDefault("nats.username", "")
	v.SetDefault("nats.password", "")
	v.SetDefault("nats.token", "")

	v.SetDefault("feed.topic", "/maze-solver/events")
	v.SetDefault("feed.dedup_key", "")
	v.SetDefault("feed.resolve_timeout", "30s")
	v.SetDefault("feed.replay.enabled", false)
	v.SetDefault("feed.replay.stream", "MAZE_EVENTS")
	v.SetDefault("feed.max_stream_clients", 100)
	v.SetDefault("feed.stream_buffer", 16)

	v.SetDefault("credentials.mode", "static")
	v.SetDefault("credentials.static_token", "")
	v.SetDefault("credentials.oauth2.token_url", "")
	v.SetDefault("credentials.oauth2.client_id", "")
	v.SetDefault("credentials.oauth2.client_secret", "")
	v.SetDefault("credentials.oauth2.scopes", []string{})
	v.SetDefault("credentials.session.url", "")
	v.SetDefault("credentials.session.username", "")
	v.SetDefault("credentials.session.password", "")
	v.SetDefault("credentials.cache.backend", "memory")
	v.SetDefault("credentials.cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("credentials.cache.key", "mazefeed:credential")
	v.SetDefault("credentials.cache.default_ttl", "5m")
	v.SetDefault("credentials.cache.skew", "30s")

	v.SetDefault("storage.backend", "s3")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.s3.region", "eu-central-1")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.presign_expiry", "15m")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.gateway.url", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("static_dir", "./frontend/dist")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/mazefeed")
	}

	// Environment variables override (MAZEFEED_SERVER_PORT, etc.)
	v.SetEnvPrefix("MAZEFEED")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config - ignore file not found for defaults
	if err := v.ReadInConfig(); err != nil {
		// Only fail if a specific config path was given
		if configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the enumerated settings and the fields each mode needs.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	if c.Feed.DedupKey != "" {
		if _, err := models.ParseField(c.Feed.DedupKey); err != nil {
			errs = append(errs, fmt.Errorf("feed.dedup_key: %w", err))
		}
	}
	// Records commit in arrival order; a resolution must not run unbounded.
	if c.Feed.ResolveTimeout <= 0 {
		errs = append(errs, errors.New("feed.resolve_timeout must be positive"))
	}
	if c.Feed.Replay.Enabled && c.Feed.Replay.Stream == "" {
		errs = append(errs, errors.New("feed.replay.stream is required when replay is enabled"))
	}

	switch c.Credentials.Mode {
	case "static":
		if c.Credentials.StaticToken == "" {
			errs = append(errs, errors.New("credentials.static_token is required in static mode"))
		}
	case "oauth2":
		if c.Credentials.OAuth2.TokenURL == "" || c.Credentials.OAuth2.ClientID == "" {
			errs = append(errs, errors.New("credentials.oauth2 requires token_url and client_id"))
		}
	case "session":
		if c.Credentials.Session.URL == "" || c.Credentials.Session.Username == "" {
			errs = append(errs, errors.New("credentials.session requires url and username"))
		}
	default:
		errs = append(errs, fmt.Errorf("credentials.mode %q must be static, oauth2 or session", c.Credentials.Mode))
	}

	switch c.Credentials.Cache.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("credentials.cache.backend %q must be memory or redis", c.Credentials.Cache.Backend))
	}

	switch c.Storage.Backend {
	case "s3":
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3.bucket is required"))
		}
	case "gateway":
		if c.Storage.Gateway.URL == "" {
			errs = append(errs, errors.New("storage.gateway.url is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q must be s3 or gateway", c.Storage.Backend))
	}

	return errors.Join(errs...)
}

// DedupField returns the configured dedup field, or "" when disabled.
func (c *Config) DedupField() models.Field {
	f, err := models.ParseField(c.Feed.DedupKey)
	if err != nil {
		return ""
	}
	return f
}
