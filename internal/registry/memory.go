package registry

import (
	"context"
	"sync"

	sharederrors "github.com/avoronkov/pdnaudit/internal/shared/errors"
)

// MemoryCache keeps records in process memory. It backs tests and
// single-shot CLI runs where no database is configured.
type MemoryCache struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{records: make(map[string]Record)}
}

func (c *MemoryCache) LookupByINN(_ context.Context, inn string) (*Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[inn]
	if !ok {
		return nil, sharederrors.ErrRegistryNotFound
	}
	out := rec
	return &out, nil
}

func (c *MemoryCache) Upsert(_ context.Context, rec *Record) error {
	if rec == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[rec.INN] = *rec
	return nil
}
