package preview

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/ppiankov/instaweb/internal/cache"
	"github.com/ppiankov/instaweb/internal/metrics"
	"github.com/ppiankov/instaweb/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader loads a template body from its source
type Loader interface {
	Load(ctx context.Context, source string) ([]byte, error)
}

// TemplateCache holds the template body after the first successful load.
// Concurrent loads share one underlying fetch; the body is stored only once
// the fetch has completed.
type TemplateCache struct {
	source string
	key    string
	loader Loader
	store  cache.Cache
	logger *zap.Logger

	group      singleflight.Group
	generation atomic.Uint64
}

// NewTemplateCache creates a cache for the template at source
func NewTemplateCache(source string, loader Loader, store cache.Cache, logger *zap.Logger) *TemplateCache {
	if store == nil {
		store = cache.NewMemoryCache(0, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateCache{
		source: source,
		key:    cache.Key(source),
		loader: loader,
		store:  store,
		logger: logger,
	}
}

// Source returns the template location
func (c *TemplateCache) Source() string {
	return c.source
}

// Load returns the cached template, fetching it on first use. A caller whose
// context ends stops waiting; the shared fetch carries on for the others.
func (c *TemplateCache) Load(ctx context.Context) (string, error) {
	if body, ok := c.store.Get(c.key); ok {
		return string(body), nil
	}

	gen := c.generation.Load()
	fetchCtx := context.WithoutCancel(ctx)

	ch := c.group.DoChan(c.key, func() (any, error) {
		if body, ok := c.store.Get(c.key); ok {
			return body, nil
		}

		body, err := c.loader.Load(fetchCtx, c.source)
		if err != nil {
			metrics.TemplateFetchesTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
			return nil, err
		}
		metrics.TemplateFetchesTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()

		// An Invalidate during the fetch wins: the result is returned but not stored
		if c.generation.Load() == gen {
			if err := c.store.Set(c.key, body, 0); err != nil {
				c.logger.Warn("template cache write failed", zap.String("source", c.source), zap.Error(err))
			}
		}

		c.logger.Debug("template loaded", zap.String("source", c.source), zap.Int("bytes", len(body)))
		return body, nil
	})

	select {
	case <-ctx.Done():
		return "", &LoadError{Source: c.source, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, model.ErrTemplateLoad) {
				return "", res.Err
			}
			return "", &LoadError{Source: c.source, Err: res.Err}
		}
		return string(res.Val.([]byte)), nil
	}
}

// Invalidate drops the cached template so the next Load fetches again
func (c *TemplateCache) Invalidate() error {
	c.generation.Add(1)
	c.group.Forget(c.key)
	return c.store.Delete(c.key)
}
