package relax

import (
	"strings"
	"sync"
)

// ProgramCache stores compiled expression programs keyed by engine and
// expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MemoryProgramCache is a concurrency-safe ProgramCache with no eviction.
type MemoryProgramCache struct {
	entries sync.Map
}

// NewMemoryProgramCache returns an empty cache.
func NewMemoryProgramCache() *MemoryProgramCache {
	return &MemoryProgramCache{}
}

func (c *MemoryProgramCache) Get(key string) (any, bool) {
	return c.entries.Load(key)
}

func (c *MemoryProgramCache) Set(key string, value any) {
	c.entries.Store(key, value)
}

// WithProgramCache shares compiled programs between evaluations.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *config) {
		cfg.programCache = cache
	}
}

func cacheKey(engine, expression string, variables ...string) string {
	if len(variables) == 0 {
		return engine + "\x00" + expression
	}
	return engine + "\x00" + expression + "\x00" + strings.Join(variables, ",")
}
