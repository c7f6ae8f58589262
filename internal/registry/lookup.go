package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avoronkov/pdnaudit/internal/inn"
	sharederrors "github.com/avoronkov/pdnaudit/internal/shared/errors"
)

// DefaultRecordTTL is how long a cached registry observation stays fresh.
// The register updates slowly; a week keeps audits honest without a live
// lookup on every run.
const DefaultRecordTTL = 7 * 24 * time.Hour

// Lookup reads through the cache and falls back to the live register.
// A nil Live client disables live lookups: stale cache data is then served
// as is, and a miss surfaces as ErrRegistryNotFound.
type Lookup struct {
	Cache Cache
	Live  LiveClient
	TTL   time.Duration
}

func NewLookup(cache Cache, live LiveClient) *Lookup {
	return &Lookup{Cache: cache, Live: live, TTL: DefaultRecordTTL}
}

// LookupByINN resolves an operator record. The INN checksum is validated
// before any lookup work, cached or live.
func (l *Lookup) LookupByINN(ctx context.Context, innValue string) (*Record, error) {
	if ok, reason := inn.Validate(innValue); !ok {
		return nil, fmt.Errorf("%w: %s", sharederrors.ErrInvalidINN, reason)
	}

	var cached *Record
	if l.Cache != nil {
		rec, err := l.Cache.LookupByINN(ctx, innValue)
		switch {
		case err == nil && l.fresh(rec):
			return rec, nil
		case err == nil:
			cached = rec
		case !errors.Is(err, sharederrors.ErrRegistryNotFound):
			return nil, err
		}
	}

	if l.Live == nil {
		if cached != nil {
			return cached, nil
		}
		return nil, sharederrors.ErrRegistryNotFound
	}

	fresh, err := l.Live.Lookup(ctx, innValue)
	if err != nil {
		// A stale record beats a dead register.
		if cached != nil {
			return cached, nil
		}
		return nil, err
	}
	if l.Cache != nil {
		_ = l.Cache.Upsert(ctx, fresh)
	}
	return fresh, nil
}

func (l *Lookup) fresh(rec *Record) bool {
	if l.TTL <= 0 {
		return true
	}
	return time.Since(rec.LastCheckedAt) < l.TTL
}
