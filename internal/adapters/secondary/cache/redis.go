package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jupiterclapton/socialgraph/internal/core/domain"
	"github.com/jupiterclapton/socialgraph/internal/core/ports"
)

// RedisFeedCache est un cache de résultats versionné par viewer.
//
// Deux familles de clés :
//   feedver:{viewer}                      -> compteur de version
//   feed:{viewer}:{ver}:{limit}:{offset}  -> page sérialisée en JSON
//
// Invalider = incrémenter la version : les entrées de l'ancienne version
// deviennent introuvables et meurent par TTL, pas besoin de SCAN.
// Le TTL est la fenêtre de staleness documentée du feed.
type RedisFeedCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisFeedCache(client *redis.Client, ttl time.Duration) ports.FeedCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisFeedCache{client: client, ttl: ttl}
}

func versionKey(viewerID string) string {
	return fmt.Sprintf("feedver:%s", viewerID)
}

func entryKey(viewerID string, version int64, limit, offset int) string {
	return fmt.Sprintf("feed:%s:%d:%d:%d", viewerID, version, limit, offset)
}

func (c *RedisFeedCache) Get(ctx context.Context, viewerID string, limit, offset int) ([]domain.Post, bool, error) {
	version, err := c.currentVersion(ctx, viewerID)
	if err != nil {
		return nil, false, err
	}

	raw, err := c.client.Get(ctx, entryKey(viewerID, version, limit, offset)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var posts []domain.Post
	if err := json.Unmarshal(raw, &posts); err != nil {
		// Entrée corrompue : miss, elle sera réécrite
		return nil, false, nil
	}
	return posts, true, nil
}

func (c *RedisFeedCache) Set(ctx context.Context, viewerID string, limit, offset int, posts []domain.Post) error {
	version, err := c.currentVersion(ctx, viewerID)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(posts)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, entryKey(viewerID, version, limit, offset), raw, c.ttl).Err()
}

// Invalidate incrémente les versions en un seul pipeline (fan-out batché).
func (c *RedisFeedCache) Invalidate(ctx context.Context, viewerIDs ...string) error {
	if len(viewerIDs) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for _, id := range viewerIDs {
		key := versionKey(id)
		pipe.Incr(ctx, key)
		// Le compteur expire bien après les entrées qu'il gouverne
		pipe.Expire(ctx, key, c.ttl*10)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisFeedCache) currentVersion(ctx context.Context, viewerID string) (int64, error) {
	version, err := c.client.Get(ctx, versionKey(viewerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return version, err
}
