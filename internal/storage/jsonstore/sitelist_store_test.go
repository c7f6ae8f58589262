package jsonstore

import (
	"context"
	"errors"
	"reflect"
	"testing"

	sharederrors "github.com/avoronkov/pdnaudit/internal/shared/errors"
)

func TestSiteListStoreCreateAndGet(t *testing.T) {
	store, err := NewSiteListStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSiteListStore: %v", err)
	}
	ctx := context.Background()

	created, err := store.Create(ctx, "shops", []string{"https://a.ru", "https://b.ru", "https://a.ru"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if want := []string{"https://a.ru", "https://b.ru"}; !reflect.DeepEqual(created.URLs, want) {
		t.Errorf("urls = %v, want %v (duplicates dropped)", created.URLs, want)
	}
	if created.CreatedAt.IsZero() || !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Errorf("timestamps = %v / %v", created.CreatedAt, created.UpdatedAt)
	}

	got, err := store.Get(ctx, "shops")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got.URLs, created.URLs) {
		t.Errorf("Get urls = %v", got.URLs)
	}

	if _, err := store.Create(ctx, "shops", nil); !errors.Is(err, sharederrors.ErrSiteListExists) {
		t.Errorf("duplicate Create = %v, want ErrSiteListExists", err)
	}
}

func TestSiteListStoreAppend(t *testing.T) {
	store, err := NewSiteListStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSiteListStore: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Append(ctx, "missing", []string{"https://a.ru"}); !errors.Is(err, sharederrors.ErrSiteListNotFound) {
		t.Fatalf("Append to missing list = %v, want ErrSiteListNotFound", err)
	}

	if _, err := store.Create(ctx, "shops", []string{"https://a.ru"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	updated, err := store.Append(ctx, "shops", []string{"https://a.ru", "https://c.ru"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if want := []string{"https://a.ru", "https://c.ru"}; !reflect.DeepEqual(updated.URLs, want) {
		t.Errorf("urls = %v, want %v", updated.URLs, want)
	}
}

func TestSiteListStoreAllSorted(t *testing.T) {
	store, err := NewSiteListStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSiteListStore: %v", err)
	}
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if _, err := store.Create(ctx, name, []string{"https://" + name + ".ru"}); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	lists, err := store.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	var names []string
	for _, l := range lists {
		names = append(names, l.Name)
	}
	if want := []string{"alpha", "mid", "zeta"}; !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestSiteListStoreRemove(t *testing.T) {
	store, err := NewSiteListStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSiteListStore: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Create(ctx, "shops", []string{"https://a.ru"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Remove(ctx, "shops"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := store.Get(ctx, "shops"); !errors.Is(err, sharederrors.ErrSiteListNotFound) {
		t.Errorf("Get after remove = %v, want ErrSiteListNotFound", err)
	}
	if err := store.Remove(ctx, "shops"); !errors.Is(err, sharederrors.ErrSiteListNotFound) {
		t.Errorf("second Remove = %v, want ErrSiteListNotFound", err)
	}
}

func TestSiteListStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewSiteListStore(dir)
	if err != nil {
		t.Fatalf("NewSiteListStore: %v", err)
	}
	if _, err := first.Create(ctx, "shops", []string{"https://a.ru"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	second, err := NewSiteListStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := second.Get(ctx, "shops")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if len(got.URLs) != 1 || got.URLs[0] != "https://a.ru" {
		t.Errorf("urls = %v", got.URLs)
	}
}

func TestSiteListStoreRejectsBadNames(t *testing.T) {
	store, err := NewSiteListStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSiteListStore: %v", err)
	}
	for _, name := range []string{"", "есть пробел", "a/b"} {
		if _, err := store.Create(context.Background(), name, []string{"https://a.ru"}); err == nil {
			t.Errorf("Create(%q) accepted a bad name", name)
		}
	}
}
