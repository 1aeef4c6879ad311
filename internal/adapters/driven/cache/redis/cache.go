// Package redis provides a ClassificationCache backed by Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/procrag/internal/core/domain"
	"github.com/custodia-labs/procrag/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.ClassificationCache = (*Cache)(nil)

// keyPrefix namespaces cache entries in a shared database.
const keyPrefix = "procrag:intent:"

const pingTimeout = 2 * time.Second

// Cache stores classifications as JSON strings with a TTL.
type Cache struct {
	client *goredis.Client
}

// New connects to the redis URL (redis://[:password@]host:port/db) and
// verifies the connection.
func New(ctx context.Context, url string) (*Cache, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: redis url: %v", domain.ErrInvalidInput, err)
	}
	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping: %v", domain.ErrUpstreamUnavailable, err)
	}
	return &Cache{client: client}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client) *Cache {
	return &Cache{client: client}
}

// Get returns a cached classification.
func (c *Cache) Get(ctx context.Context, key string) (domain.Classification, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.Classification{}, false, nil
	}
	if err != nil {
		return domain.Classification{}, false, fmt.Errorf("redis get: %w", err)
	}

	var cl domain.Classification
	if err := json.Unmarshal(raw, &cl); err != nil {
		// A corrupt entry counts as a miss and is overwritten on the next Set.
		return domain.Classification{}, false, nil
	}
	intent, ok := domain.ParseIntent(string(cl.Intent))
	if !ok {
		return domain.Classification{}, false, nil
	}
	return domain.NewClassification(intent, cl.Confidence), true, nil
}

// Set stores a classification for ttl. A non-positive ttl keeps the entry
// until it is evicted.
func (c *Cache) Set(ctx context.Context, key string, cl domain.Classification, ttl time.Duration) error {
	raw, err := json.Marshal(cl)
	if err != nil {
		return fmt.Errorf("marshal classification: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}
