package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/awsford/deeplens-maze-solver/common/logging"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/metrics"
)

// Store keeps a cached token until its TTL runs out.
type Store interface {
	Get(ctx context.Context) (token string, ok bool, err error)
	Set(ctx context.Context, token string, ttl time.Duration) error
}

// CacheOptions tunes how long tokens are reused.
type CacheOptions struct {
	// DefaultTTL applies to tokens that are not JWTs or carry no exp claim.
	DefaultTTL time.Duration

	// Skew is subtracted from the exp claim so a token is never handed out
	// right before it expires.
	Skew time.Duration

	// FetchTimeout bounds one upstream fetch. Defaults to 30s.
	FetchTimeout time.Duration

	Logger *slog.Logger
}

// Cache wraps a Source and serves tokens from a Store while they are valid.
// Concurrent misses share a single upstream fetch; a caller stops waiting
// for it when its own context ends.
type Cache struct {
	source Source
	store  Store
	opts   CacheOptions
	logger *slog.Logger
	now    func() time.Time

	group singleflight.Group
}

// NewCache creates a Cache. A nil store selects an in-memory store.
func NewCache(source Source, store Store, opts CacheOptions) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		source: source,
		store:  store,
		opts:   opts,
		logger: logger.With(slog.String(logging.FieldComponent, "credential-cache")),
		now:    time.Now,
	}
}

// Token implements Source.
func (c *Cache) Token(ctx context.Context) (string, error) {
	if tok, ok := c.lookup(ctx); ok {
		metrics.CredentialRequests.WithLabelValues("hit").Inc()
		return tok, nil
	}

	ch := c.group.DoChan("token", func() (any, error) {
		return c.fetch(ctx)
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("fetch credential: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// fetch runs once per flight. It is shared by every waiting caller, so it
// is detached from the cancellation of the caller that started it and
// bounded by FetchTimeout instead.
func (c *Cache) fetch(parent context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.opts.FetchTimeout)
	defer cancel()

	if tok, ok := c.lookup(ctx); ok {
		metrics.CredentialRequests.WithLabelValues("hit").Inc()
		return tok, nil
	}

	tok, err := c.source.Token(ctx)
	if err != nil {
		metrics.CredentialRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("fetch credential: %w", err)
	}
	metrics.CredentialRequests.WithLabelValues("miss").Inc()

	if ttl := c.ttlFor(tok); ttl > 0 {
		if err := c.store.Set(ctx, tok, ttl); err != nil {
			c.logger.Warn("failed to cache credential", logging.Error(err))
		}
	}
	return tok, nil
}

func (c *Cache) lookup(ctx context.Context) (string, bool) {
	tok, ok, err := c.store.Get(ctx)
	if err != nil {
		c.logger.Warn("credential cache lookup failed", logging.Error(err))
		return "", false
	}
	return tok, ok && tok != ""
}

// ttlFor derives the cache lifetime from the token's exp claim. The token
// is not verified here; the storage service does that.
func (c *Cache) ttlFor(token string) time.Duration {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return c.opts.DefaultTTL
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return c.opts.DefaultTTL
	}
	ttl := exp.Sub(c.now()) - c.opts.Skew
	if ttl < 0 {
		return 0
	}
	return ttl
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	token   string
	expires time.Time
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Get implements Store.
func (s *MemoryStore) Get(context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || !s.now().Before(s.expires) {
		return "", false, nil
	}
	return s.token, true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expires = s.now().Add(ttl)
	return nil
}

// RedisStore shares a token between feed replicas through Redis.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to the Redis server at redisURL and verifies the
// connection.
func NewRedisStore(redisURL, key string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewRedisStoreFromClient(client, key), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context) (string, bool, error) {
	tok, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return tok, true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key, token, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// Close releases the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
