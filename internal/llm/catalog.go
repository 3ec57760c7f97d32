package llm

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/socratic-tutor/backend/internal/logger"
)

const DefaultCatalogTTL = 10 * time.Minute

// Catalog caches the provider's model list for the life of the process.
// Models re-fetches it once it is older than the TTL, but keeps serving the
// old list while the provider cannot be reached. Concurrent misses share one
// request.
type Catalog struct {
	gw     Gateway
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	models  []Model
	fetched time.Time
}

func NewCatalog(gw Gateway, ttl time.Duration, logger *slog.Logger) *Catalog {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &Catalog{gw: gw, ttl: ttl, logger: logger, now: time.Now}
}

// Models returns the cached list, fetching it when empty or stale. A failed
// fetch is only reported when there is nothing cached to fall back to.
func (c *Catalog) Models(ctx context.Context) ([]Model, error) {
	c.mu.RLock()
	models, fetched := c.models, c.fetched
	c.mu.RUnlock()

	if models != nil && c.now().Sub(fetched) < c.ttl {
		return cloneModels(models), nil
	}

	fresh, err := c.Refresh(ctx)
	if err != nil {
		if models != nil {
			c.logger.Warn("serving stale model list", "age", c.now().Sub(fetched).Round(time.Second))
			return cloneModels(models), nil
		}
		return nil, err
	}
	return fresh, nil
}

// Refresh fetches the model list from the provider and replaces the cache.
// Unlike Models it always reports a failed fetch; the cache is left as it was.
func (c *Catalog) Refresh(ctx context.Context) ([]Model, error) {
	v, err, shared := c.group.Do("models", func() (any, error) {
		models, err := c.gw.ListModels(ctx)
		if err != nil {
			return nil, err
		}
		if models == nil {
			models = []Model{}
		}

		c.mu.Lock()
		c.models = models
		c.fetched = c.now()
		c.mu.Unlock()

		c.logger.Info("model list refreshed", "count", len(models))
		return models, nil
	})
	if err != nil {
		c.logger.Warn("model list refresh failed", "shared", shared, logger.Err(err))
		return nil, err
	}
	return cloneModels(v.([]Model)), nil
}

func cloneModels(models []Model) []Model {
	out := make([]Model, len(models))
	copy(out, models)
	return out
}
