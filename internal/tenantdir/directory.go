// Package tenantdir resolves tenant kinds for the routing guard, with a redis
// cache in front of the store. A tenant's kind never changes, so cached
// entries only expire, never invalidate.
package tenantdir

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	tenantdomain "equiplink/internal/tenant/domain"
)

const keyPrefix = "tenant_kind:"

// Store is the authoritative kind lookup.
type Store interface {
	// GetKind returns "" with a nil error when the tenant does not exist.
	GetKind(ctx context.Context, id string) (tenantdomain.Kind, error)
}

// Directory answers kind lookups. The cache is best-effort: a cache failure
// falls through to the store, but a store failure is returned to the caller,
// who must fail closed rather than guess a section.
type Directory struct {
	store   Store
	cache   *redis.Client // nil disables caching
	ttl     time.Duration
	timeout time.Duration
	logger  *zap.Logger
}

// New returns a Directory. cache may be nil; logger may be nil.
func New(store Store, cache *redis.Client, ttl, timeout time.Duration, logger *zap.Logger) *Directory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{store: store, cache: cache, ttl: ttl, timeout: timeout, logger: logger}
}

// Kind returns the tenant's kind, "" when the tenant does not exist, or an
// error when the store cannot answer in time.
func (d *Directory) Kind(ctx context.Context, tenantID string) (tenantdomain.Kind, error) {
	if tenantID == "" {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if d.cache != nil {
		v, err := d.cache.Get(ctx, keyPrefix+tenantID).Result()
		switch {
		case err == nil:
			return tenantdomain.Kind(v), nil
		case !errors.Is(err, redis.Nil):
			d.logger.Warn("tenant kind cache read failed", zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}

	kind, err := d.store.GetKind(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if kind != "" && d.cache != nil {
		if err := d.cache.Set(ctx, keyPrefix+tenantID, string(kind), d.ttl).Err(); err != nil {
			d.logger.Warn("tenant kind cache write failed", zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}
	return kind, nil
}
