// Package jsonstore persists audit reports and site lists as JSON files.
// Reports are immutable once written; a sha256 sidecar next to each report
// lets anyone verify the file was not edited after the audit ran.
package jsonstore

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/avoronkov/pdnaudit/internal/engine"
	"github.com/avoronkov/pdnaudit/internal/security"
	"github.com/avoronkov/pdnaudit/internal/shared/constants"
	sharederrors "github.com/avoronkov/pdnaudit/internal/shared/errors"
)

const (
	reportFileName = "report.json"
	reportHashName = reportFileName + ".sha256"
)

// AuditStore keeps one directory per report under its base directory:
//
//	<base>/<report-id>/report.json
//	<base>/<report-id>/report.json.sha256
type AuditStore struct {
	dir string
	mu  sync.RWMutex
}

// NewAuditStore creates the base directory if needed and returns a store
// rooted there.
func NewAuditStore(dir string) (*AuditStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("jsonstore: reports directory is required")
	}
	if err := os.MkdirAll(dir, constants.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("jsonstore: create reports directory: %w", err)
	}
	return &AuditStore{dir: dir}, nil
}

// Save writes the report and its integrity hash. An existing report with
// the same id is overwritten.
func (s *AuditStore) Save(ctx context.Context, rep *engine.Report) error {
	if rep == nil {
		return fmt.Errorf("jsonstore: nil report")
	}
	if err := security.ValidateID(rep.ID); err != nil {
		return fmt.Errorf("jsonstore: report id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reportDir, err := security.ResolveWithin(s.dir, rep.ID)
	if err != nil {
		return fmt.Errorf("jsonstore: %w", err)
	}
	if err := os.MkdirAll(reportDir, constants.DefaultDirPerm); err != nil {
		return fmt.Errorf("%w: %v", sharederrors.ErrRepositoryOperation, err)
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", sharederrors.ErrSerializationFailed, err)
	}
	data = append(data, '\n')

	reportPath := filepath.Join(reportDir, reportFileName)
	if err := os.WriteFile(reportPath, data, constants.DefaultFilePerm); err != nil {
		return fmt.Errorf("%w: %v", sharederrors.ErrRepositoryOperation, err)
	}

	// Sidecar in coreutils sha256sum format so it verifies with stock tools.
	sum := sha256.Sum256(data)
	sidecar := fmt.Sprintf("%x  %s\n", sum, reportFileName)
	hashPath := filepath.Join(reportDir, reportHashName)
	if err := os.WriteFile(hashPath, []byte(sidecar), constants.DefaultFilePerm); err != nil {
		return fmt.Errorf("%w: %v", sharederrors.ErrRepositoryOperation, err)
	}
	return nil
}

// FindByID loads a saved report.
func (s *AuditStore) FindByID(ctx context.Context, id string) (*engine.Report, error) {
	if err := security.ValidateID(id); err != nil {
		return nil, fmt.Errorf("jsonstore: report id: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(id)
}

// List returns every saved report, newest first.
func (s *AuditStore) List(ctx context.Context) ([]*engine.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharederrors.ErrRepositoryOperation, err)
	}

	reports := make([]*engine.Report, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rep, err := s.load(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("jsonstore: report %s: %w", entry.Name(), err)
		}
		reports = append(reports, rep)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].StartedAt.After(reports[j].StartedAt)
	})
	return reports, nil
}

// Delete removes a report and its hash file.
func (s *AuditStore) Delete(ctx context.Context, id string) error {
	if err := security.ValidateID(id); err != nil {
		return fmt.Errorf("jsonstore: report id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reportDir, err := security.ResolveWithin(s.dir, id)
	if err != nil {
		return fmt.Errorf("jsonstore: %w", err)
	}
	if _, err := os.Stat(reportDir); os.IsNotExist(err) {
		return sharederrors.ErrAuditNotFound
	}
	if err := os.RemoveAll(reportDir); err != nil {
		return fmt.Errorf("%w: %v", sharederrors.ErrRepositoryOperation, err)
	}
	return nil
}

// Verify recomputes the report hash and compares it with the sidecar.
// It reports false when the file was modified after Save.
func (s *AuditStore) Verify(ctx context.Context, id string) (bool, error) {
	if err := security.ValidateID(id); err != nil {
		return false, fmt.Errorf("jsonstore: report id: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	reportDir, err := security.ResolveWithin(s.dir, id)
	if err != nil {
		return false, fmt.Errorf("jsonstore: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(reportDir, reportFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return false, sharederrors.ErrAuditNotFound
		}
		return false, fmt.Errorf("%w: %v", sharederrors.ErrRepositoryOperation, err)
	}

	sidecar, err := os.ReadFile(filepath.Join(reportDir, reportHashName))
	if err != nil {
		return false, fmt.Errorf("jsonstore: report %s has no integrity hash: %w", id, err)
	}
	want, _, _ := strings.Cut(strings.TrimSpace(string(sidecar)), " ")

	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum) == want, nil
}

func (s *AuditStore) load(id string) (*engine.Report, error) {
	reportDir, err := security.ResolveWithin(s.dir, id)
	if err != nil {
		return nil, fmt.Errorf("jsonstore: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(reportDir, reportFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sharederrors.ErrAuditNotFound
		}
		return nil, fmt.Errorf("%w: %v", sharederrors.ErrRepositoryOperation, err)
	}

	var rep engine.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("%w: %v", sharederrors.ErrDeserializationFailed, err)
	}
	return &rep, nil
}
