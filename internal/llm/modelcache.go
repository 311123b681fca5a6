package llm

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/yuv-man/habeat-server/internal/errors"
)

// DefaultModels is the hard-coded cascade used when discovery fails or has
// never succeeded. Ordered by preference.
var DefaultModels = []string{
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-1.5-flash",
	"gemini-1.5-pro",
}

// DefaultModelTTL bounds how often the provider's model list is refreshed.
const DefaultModelTTL = 10 * time.Minute

// preferredPrefixes orders discovered models: fast general-purpose models
// first, experimental and embedding models last.
var preferredPrefixes = []string{
	"gemini-2.0-flash",
	"gemini-2.0",
	"gemini-1.5-flash",
	"gemini-1.5",
	"gemini",
}

// ModelCache holds a prioritized model list refreshed at most once per TTL
// window. It owns its clock so tests can control expiry. Concurrent callers
// may race a refresh; the cost of losing that race is one redundant
// discovery call, so the cache favours simplicity over strict serialization.
type ModelCache struct {
	lister ModelLister
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	models    []string
	fetchedAt time.Time
}

// ModelCacheOption customizes a ModelCache.
type ModelCacheOption func(*ModelCache)

// WithClock injects the time source used for TTL checks.
func WithClock(now func() time.Time) ModelCacheOption {
	return func(c *ModelCache) { c.now = now }
}

// WithTTL overrides the refresh window.
func WithTTL(ttl time.Duration) ModelCacheOption {
	return func(c *ModelCache) { c.ttl = ttl }
}

// NewModelCache creates a cache over the given lister.
func NewModelCache(lister ModelLister, logger *slog.Logger, opts ...ModelCacheOption) *ModelCache {
	cache := &ModelCache{
		lister: lister,
		logger: logger,
		ttl:    DefaultModelTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

// Models returns the prioritized candidate list. It never fails: when
// discovery errors and no previous list exists, the hard-coded defaults are
// returned.
func (c *ModelCache) Models(ctx context.Context) []string {
	c.mu.Lock()
	fresh := len(c.models) > 0 && c.now().Sub(c.fetchedAt) < c.ttl
	cached := slices.Clone(c.models)
	c.mu.Unlock()

	if fresh {
		return cached
	}

	discovered, err := c.lister.ListModels(ctx)
	if err != nil || len(discovered) == 0 {
		if err != nil {
			c.logger.WarnContext(ctx, "model discovery failed, using fallback list",
				errors.SlogError(err))
		}
		if len(cached) > 0 {
			return cached
		}
		return slices.Clone(DefaultModels)
	}

	ranked := rankModels(discovered)
	c.mu.Lock()
	c.models = ranked
	c.fetchedAt = c.now()
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "refreshed model list", slog.Int("count", len(ranked)))
	return slices.Clone(ranked)
}

// rankModels orders discovered model identifiers by preference and drops
// anything that is not a text-generation model.
func rankModels(discovered []string) []string {
	ranked := make([]string, 0, len(discovered))
	for _, id := range discovered {
		id = strings.TrimPrefix(id, "models/")
		if strings.Contains(id, "embedding") || strings.Contains(id, "vision") {
			continue
		}
		ranked = append(ranked, id)
	}
	slices.SortStableFunc(ranked, func(a, b string) int {
		return preferenceRank(a) - preferenceRank(b)
	})
	return ranked
}

func preferenceRank(id string) int {
	for i, prefix := range preferredPrefixes {
		if strings.HasPrefix(id, prefix) {
			return i
		}
	}
	return len(preferredPrefixes)
}
