// Package dedupe provides the optional message-id idempotency cache.
//
// The upstream provider redelivers webhooks, and without dedupe a redelivery
// produces a second stored artifact. That is the historical behavior and the
// default; a Redis-backed cache can be enabled in config to suppress
// redeliveries within a TTL window.
package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Deduper reports whether a message id has been seen before. Seen must also
// mark the id, atomically, so concurrent deliveries of the same id agree.
type Deduper interface {
	Seen(ctx context.Context, source, messageID string) (bool, error)
}

// Noop never suppresses anything. It is the default, preserving the
// historical duplicate-on-redelivery behavior.
type Noop struct{}

func (Noop) Seen(ctx context.Context, source, messageID string) (bool, error) {
	return false, nil
}

// Config holds redis connection settings for the cache.
type Config struct {
	Enabled bool          `yaml:"enabled"`
	Addr    string        `yaml:"addr"`
	DB      int           `yaml:"db,omitempty"`
	TTL     time.Duration `yaml:"ttl"`
}

// UnmarshalYAML accepts duration strings like "24h" for the ttl field.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
		DB      int    `yaml:"db,omitempty"`
		TTL     string `yaml:"ttl"`
	}
	var raw rawConfig
	if err := node.Decode(&raw); err != nil {
		return err
	}
	c.Enabled = raw.Enabled
	c.Addr = raw.Addr
	c.DB = raw.DB
	if raw.TTL != "" {
		d, err := time.ParseDuration(raw.TTL)
		if err != nil {
			return fmt.Errorf("invalid dedupe ttl %q: %w", raw.TTL, err)
		}
		c.TTL = d
	}
	return nil
}

// DefaultTTL bounds how long a message id is remembered.
const DefaultTTL = 24 * time.Hour

// RedisDeduper remembers message ids with SET NX + TTL.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis builds a redis-backed deduper from config.
func NewRedis(cfg Config) *RedisDeduper {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisDeduper{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, DB: cfg.DB}),
		ttl:    ttl,
	}
}

// Seen marks the id and reports whether it was already present. A redis
// error is returned to the caller, who decides whether to process anyway.
func (d *RedisDeduper) Seen(ctx context.Context, source, messageID string) (bool, error) {
	key := Key(source, messageID)
	set, err := d.client.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe check %s: %w", key, err)
	}
	// SetNX succeeded means the key was new, i.e. not seen before.
	return !set, nil
}

// Close releases the underlying redis connection.
func (d *RedisDeduper) Close() error {
	return d.client.Close()
}

// Key builds the cache key for a message id.
func Key(source, messageID string) string {
	return "savenote:msg:" + source + ":" + messageID
}
