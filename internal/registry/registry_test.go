package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	sharederrors "github.com/avoronkov/pdnaudit/internal/shared/errors"
)

type fakeLive struct {
	rec   *Record
	err   error
	calls int
}

func (f *fakeLive) Lookup(_ context.Context, inn string) (*Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := *f.rec
	out.INN = inn
	out.LastCheckedAt = time.Now().UTC()
	return &out, nil
}

const validINN = "7707083893"

func TestMemoryCacheRoundTrip(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	if _, err := cache.LookupByINN(ctx, validINN); !errors.Is(err, sharederrors.ErrRegistryNotFound) {
		t.Fatalf("expected ErrRegistryNotFound, got %v", err)
	}

	rec := &Record{INN: validINN, Registered: true, Name: "ПАО Сбербанк", LastCheckedAt: time.Now()}
	if err := cache.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := cache.LookupByINN(ctx, validINN)
	if err != nil {
		t.Fatalf("LookupByINN: %v", err)
	}
	if !got.Registered || got.Name != "ПАО Сбербанк" {
		t.Errorf("unexpected record: %+v", got)
	}

	// Mutating the returned record must not touch the cache.
	got.Name = "changed"
	again, _ := cache.LookupByINN(ctx, validINN)
	if again.Name != "ПАО Сбербанк" {
		t.Error("cache returned a shared reference")
	}
}

func TestLookupRejectsInvalidINN(t *testing.T) {
	l := NewLookup(NewMemoryCache(), &fakeLive{rec: &Record{Registered: true}})

	_, err := l.LookupByINN(context.Background(), "7707083894")
	if !errors.Is(err, sharederrors.ErrInvalidINN) {
		t.Fatalf("expected ErrInvalidINN, got %v", err)
	}
}

func TestLookupFreshCacheSkipsLive(t *testing.T) {
	cache := NewMemoryCache()
	live := &fakeLive{rec: &Record{Registered: true}}
	l := NewLookup(cache, live)

	cache.Upsert(context.Background(), &Record{
		INN: validINN, Registered: true, LastCheckedAt: time.Now(),
	})

	rec, err := l.LookupByINN(context.Background(), validINN)
	if err != nil {
		t.Fatalf("LookupByINN: %v", err)
	}
	if !rec.Registered {
		t.Error("expected registered record")
	}
	if live.calls != 0 {
		t.Errorf("live register consulted despite fresh cache, calls = %d", live.calls)
	}
}

func TestLookupStaleCacheGoesLive(t *testing.T) {
	cache := NewMemoryCache()
	live := &fakeLive{rec: &Record{Registered: true, Name: "ООО Ромашка"}}
	l := NewLookup(cache, live)

	cache.Upsert(context.Background(), &Record{
		INN: validINN, Registered: false, LastCheckedAt: time.Now().Add(-30 * 24 * time.Hour),
	})

	rec, err := l.LookupByINN(context.Background(), validINN)
	if err != nil {
		t.Fatalf("LookupByINN: %v", err)
	}
	if live.calls != 1 {
		t.Fatalf("live calls = %d, want 1", live.calls)
	}
	if !rec.Registered {
		t.Error("live result should win over stale cache")
	}

	// The live result must have been written back.
	cached, err := cache.LookupByINN(context.Background(), validINN)
	if err != nil || !cached.Registered {
		t.Errorf("live result not cached: %+v, %v", cached, err)
	}
}

func TestLookupServesStaleWhenLiveFails(t *testing.T) {
	cache := NewMemoryCache()
	live := &fakeLive{err: errors.New("bot wall")}
	l := NewLookup(cache, live)

	cache.Upsert(context.Background(), &Record{
		INN: validINN, Registered: true, LastCheckedAt: time.Now().Add(-30 * 24 * time.Hour),
	})

	rec, err := l.LookupByINN(context.Background(), validINN)
	if err != nil {
		t.Fatalf("stale record should be served, got error: %v", err)
	}
	if !rec.Registered {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestLookupMissWithoutLive(t *testing.T) {
	l := NewLookup(NewMemoryCache(), nil)

	_, err := l.LookupByINN(context.Background(), validINN)
	if !errors.Is(err, sharederrors.ErrRegistryNotFound) {
		t.Fatalf("expected ErrRegistryNotFound, got %v", err)
	}
}

func TestParseRegistryPageFound(t *testing.T) {
	html := `<html><body><table>
<tr><th>Рег. номер</th><th>Оператор</th><th>Дата</th></tr>
<tr><td>77-17-003892</td><td>ПАО Сбербанк России</td><td>15.03.2017</td></tr>
</table></body></html>`

	rec := parseRegistryPage(validINN, html)
	if !rec.Registered {
		t.Fatalf("expected registered, got %+v", rec)
	}
	if rec.RegistrationNumber != "77-17-003892" {
		t.Errorf("registration number = %q", rec.RegistrationNumber)
	}
	if rec.RegistrationDate != "15.03.2017" {
		t.Errorf("registration date = %q", rec.RegistrationDate)
	}
	if rec.Name != "ПАО Сбербанк России" {
		t.Errorf("name = %q", rec.Name)
	}
}

func TestParseRegistryPageNotFound(t *testing.T) {
	for _, html := range []string{
		`<html><body>Найдено: 0 записей</body></html>`,
		`<html><body>По вашему запросу ничего не найдено</body></html>`,
	} {
		rec := parseRegistryPage(validINN, html)
		if rec.Registered {
			t.Errorf("expected not registered for %q", html)
		}
	}
}
