package cmd

import (
	"fmt"

	sharederrors "github.com/avoronkov/pdnaudit/internal/shared/errors"
)

// AuditNotFoundError indicates a saved report lookup failure.
type AuditNotFoundError struct {
	ID string
}

func (e *AuditNotFoundError) Error() string {
	return fmt.Sprintf("audit %s not found", e.ID)
}

func (e *AuditNotFoundError) Unwrap() error {
	return sharederrors.ErrAuditNotFound
}

// SiteListNotFoundError signals that a named site list does not exist.
type SiteListNotFoundError struct {
	Name string
}

func (e *SiteListNotFoundError) Error() string {
	return fmt.Sprintf("site list %s not found", e.Name)
}

func (e *SiteListNotFoundError) Unwrap() error {
	return sharederrors.ErrSiteListNotFound
}

// InvalidTargetError rejects a URL or domain before any audit work starts.
type InvalidTargetError struct {
	Target string
	Reason string
}

func (e *InvalidTargetError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid target %s: %s", e.Target, e.Reason)
	}
	return fmt.Sprintf("invalid target %s", e.Target)
}

func (e *InvalidTargetError) Unwrap() error {
	return sharederrors.ErrInvalidTarget
}
