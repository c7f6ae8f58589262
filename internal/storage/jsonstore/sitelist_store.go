package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/avoronkov/pdnaudit/internal/security"
	"github.com/avoronkov/pdnaudit/internal/shared/constants"
	sharederrors "github.com/avoronkov/pdnaudit/internal/shared/errors"
)

const siteListsFileName = "sitelists.json"

// SiteList is a named set of audit targets for batch runs.
type SiteList struct {
	Name      string    `json:"name"`
	URLs      []string  `json:"urls"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SiteListStore keeps all lists in one JSON file under the data directory.
type SiteListStore struct {
	filePath string
	mu       sync.RWMutex
	now      func() time.Time
}

// NewSiteListStore creates the data directory and an empty lists file when
// either is missing.
func NewSiteListStore(dataDir string) (*SiteListStore, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("jsonstore: data directory is required")
	}
	if err := os.MkdirAll(dataDir, constants.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("jsonstore: create data directory: %w", err)
	}

	store := &SiteListStore{
		filePath: filepath.Join(dataDir, siteListsFileName),
		now:      time.Now,
	}
	if _, err := os.Stat(store.filePath); os.IsNotExist(err) {
		if err := store.write([]SiteList{}); err != nil {
			return nil, fmt.Errorf("jsonstore: initialize lists file: %w", err)
		}
	}
	return store, nil
}

// Create adds a new list. The name must be usable as an identifier and must
// not be taken.
func (s *SiteListStore) Create(ctx context.Context, name string, urls []string) (*SiteList, error) {
	if err := security.ValidateID(name); err != nil {
		return nil, fmt.Errorf("jsonstore: list name: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.read()
	if err != nil {
		return nil, err
	}
	if indexOf(lists, name) >= 0 {
		return nil, fmt.Errorf("%w: %s", sharederrors.ErrSiteListExists, name)
	}

	now := s.now().UTC()
	list := SiteList{
		Name:      name,
		URLs:      dedupe(urls),
		CreatedAt: now,
		UpdatedAt: now,
	}
	lists = append(lists, list)
	if err := s.write(lists); err != nil {
		return nil, err
	}
	return &list, nil
}

// Append adds targets to an existing list, skipping duplicates.
func (s *SiteListStore) Append(ctx context.Context, name string, urls []string) (*SiteList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.read()
	if err != nil {
		return nil, err
	}
	i := indexOf(lists, name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", sharederrors.ErrSiteListNotFound, name)
	}

	lists[i].URLs = dedupe(append(lists[i].URLs, urls...))
	lists[i].UpdatedAt = s.now().UTC()
	if err := s.write(lists); err != nil {
		return nil, err
	}
	list := lists[i]
	return &list, nil
}

// Get returns one list by name.
func (s *SiteListStore) Get(ctx context.Context, name string) (*SiteList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lists, err := s.read()
	if err != nil {
		return nil, err
	}
	if i := indexOf(lists, name); i >= 0 {
		list := lists[i]
		return &list, nil
	}
	return nil, fmt.Errorf("%w: %s", sharederrors.ErrSiteListNotFound, name)
}

// All returns every list sorted by name.
func (s *SiteListStore) All(ctx context.Context) ([]SiteList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lists, err := s.read()
	if err != nil {
		return nil, err
	}
	sort.Slice(lists, func(i, j int) bool { return lists[i].Name < lists[j].Name })
	return lists, nil
}

// Remove deletes a whole list.
func (s *SiteListStore) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.read()
	if err != nil {
		return err
	}
	i := indexOf(lists, name)
	if i < 0 {
		return fmt.Errorf("%w: %s", sharederrors.ErrSiteListNotFound, name)
	}
	lists = append(lists[:i], lists[i+1:]...)
	return s.write(lists)
}

func (s *SiteListStore) read() ([]SiteList, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []SiteList{}, nil
		}
		return nil, fmt.Errorf("%w: %v", sharederrors.ErrRepositoryOperation, err)
	}

	var lists []SiteList
	if err := json.Unmarshal(data, &lists); err != nil {
		return nil, fmt.Errorf("%w: %v", sharederrors.ErrDeserializationFailed, err)
	}
	return lists, nil
}

func (s *SiteListStore) write(lists []SiteList) error {
	data, err := json.MarshalIndent(lists, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", sharederrors.ErrSerializationFailed, err)
	}
	if err := os.WriteFile(s.filePath, append(data, '\n'), constants.DefaultFilePerm); err != nil {
		return fmt.Errorf("%w: %v", sharederrors.ErrRepositoryOperation, err)
	}
	return nil
}

func indexOf(lists []SiteList, name string) int {
	for i := range lists {
		if lists[i].Name == name {
			return i
		}
	}
	return -1
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
