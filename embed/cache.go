package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheOptions configures the Redis embedding cache.
type CacheOptions struct {
	// URL is the Redis connection string (e.g. "redis://localhost:6379").
	URL string

	// TTL is how long cached vectors live. Zero means no expiry: technique
	// descriptions are stable within a framework version.
	TTL time.Duration

	// Prefix namespaces cache keys. Defaults to "attackmap:embed".
	Prefix string

	// Logger receives cache degradation warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// Cache wraps an Embedder with a Redis-backed vector cache. Cache failures
// are never fatal: a miss or a Redis error degrades to a direct provider
// call, logged at warning level.
type Cache struct {
	inner  Embedder
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewCache connects to Redis and wraps the given embedder.
func NewCache(inner Embedder, opts CacheOptions) (*Cache, error) {
	if inner == nil {
		return nil, errors.New("embed: cache requires an inner embedder")
	}
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.Prefix == "" {
		opts.Prefix = "attackmap:embed"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("embed: parse Redis URL: %w", err)
	}
	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("embed: connect to Redis: %w", err)
	}

	return &Cache{
		inner:  inner,
		client: client,
		ttl:    opts.TTL,
		prefix: opts.Prefix,
		logger: opts.Logger,
	}, nil
}

// Model implements Embedder.
func (c *Cache) Model() string {
	return c.inner.Model()
}

// Embed implements Embedder, consulting the cache before the provider.
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var vec []float32
		if err := json.Unmarshal(data, &vec); err == nil && len(vec) > 0 {
			return vec, nil
		}
		c.logger.Warn("discarding corrupt cached embedding", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("embedding cache read failed", "error", err)
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(vec); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("embedding cache write failed", "error", err)
		}
	}

	return vec, nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// key derives a stable cache key from the model and text.
func (c *Cache) key(text string) string {
	sum := sha256.Sum256([]byte(c.inner.Model() + "\x00" + text))
	return c.prefix + ":" + hex.EncodeToString(sum[:])
}
