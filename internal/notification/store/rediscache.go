package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"maintrack/internal/notification/models"
	id "maintrack/pkg/domain"
)

// cacheTTL bounds staleness when an invalidation is lost (e.g. Redis was
// briefly unreachable during a write).
const cacheTTL = 30 * time.Second

// RedisCache is a read-through cache over an inner Store. Personal lists are
// cached per user, module-wide lists per module; a write invalidates exactly
// the key it affects. Cache failures degrade to the inner store and are only
// logged: the cache must never break notification delivery.
type RedisCache struct {
	inner  inner
	client redis.Cmdable
	logger *slog.Logger
}

// inner is the Store contract the cache decorates. Declared locally to avoid
// an import cycle with the service package.
type inner interface {
	Create(ctx context.Context, n models.Notification) error
	ListForUser(ctx context.Context, userID id.UserID) ([]models.Notification, error)
	ListForModules(ctx context.Context, foldedModules []string) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error
}

func NewRedisCache(store inner, client redis.Cmdable, logger *slog.Logger) *RedisCache {
	return &RedisCache{inner: store, client: client, logger: logger}
}

func userKey(userID id.UserID) string { return "maintrack:notif:user:" + userID.String() }
func moduleKey(folded string) string  { return "maintrack:notif:module:" + folded }

func (c *RedisCache) Create(ctx context.Context, n models.Notification) error {
	if err := c.inner.Create(ctx, n); err != nil {
		return err
	}
	var key string
	if n.TargetUser != nil {
		key = userKey(*n.TargetUser)
	} else if n.Module != nil {
		key = moduleKey(*n.Module)
	}
	if key != "" {
		c.invalidate(ctx, key)
	}
	return nil
}

func (c *RedisCache) ListForUser(ctx context.Context, userID id.UserID) ([]models.Notification, error) {
	key := userKey(userID)
	if cached, ok := c.get(ctx, key); ok {
		return cached, nil
	}
	fresh, err := c.inner.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, fresh)
	return fresh, nil
}

func (c *RedisCache) ListForModules(ctx context.Context, foldedModules []string) ([]models.Notification, error) {
	var out []models.Notification
	for _, module := range foldedModules {
		key := moduleKey(module)
		if cached, ok := c.get(ctx, key); ok {
			out = append(out, cached...)
			continue
		}
		fresh, err := c.inner.ListForModules(ctx, []string{module})
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, fresh)
		out = append(out, fresh...)
	}
	return out, nil
}

func (c *RedisCache) MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error {
	if err := c.inner.MarkRead(ctx, userID, notificationID); err != nil {
		return err
	}
	c.invalidate(ctx, userKey(userID))
	return nil
}

func (c *RedisCache) get(ctx context.Context, key string) ([]models.Notification, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "notification cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var cached []models.Notification
	if err := json.Unmarshal(raw, &cached); err != nil {
		c.logger.WarnContext(ctx, "notification cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return cached, true
}

func (c *RedisCache) set(ctx context.Context, key string, value []models.Notification) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "notification cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, cacheTTL).Err(); err != nil {
		c.logger.WarnContext(ctx, "notification cache write failed", "key", key, "error", err)
	}
}

func (c *RedisCache) invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.WarnContext(ctx, "notification cache invalidation failed", "key", key, "error", err)
	}
}
