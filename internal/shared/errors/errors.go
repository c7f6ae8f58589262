package errors

import "errors"

// Domain errors
var (
	// Audit errors
	ErrAuditNotFound = errors.New("audit report not found")
	ErrInvalidTarget = errors.New("target is not a valid URL or hostname")
	ErrEmptyTarget   = errors.New("target cannot be empty")
	ErrRendererUnset = errors.New("no page renderer configured")

	// Validation errors
	ErrInvalidINN = errors.New("INN failed checksum validation")

	// Registry errors
	ErrRegistryNotFound    = errors.New("operator not found in registry cache")
	ErrRegistryUnavailable = errors.New("registry lookup unavailable")

	// Site list errors
	ErrSiteListNotFound = errors.New("site list not found")
	ErrSiteListExists   = errors.New("site list already exists")
	ErrEmptySiteList    = errors.New("site list has no targets")

	// Repository errors
	ErrRepositoryOperation   = errors.New("repository operation failed")
	ErrSerializationFailed   = errors.New("serialization failed")
	ErrDeserializationFailed = errors.New("deserialization failed")
)
