// Package registry tracks which operators appear in the regulator's public
// register of personal-data operators. Audits read through a cache; live
// lookups against the register populate it.
package registry

import (
	"context"
	"time"
)

// Record is one cached observation about an INN in the operator register.
// Registered=false is real data: the register was consulted and the operator
// was absent. Absence of a Record altogether means nothing is known.
type Record struct {
	INN                string    `json:"inn"`
	Registered         bool      `json:"registered"`
	Name               string    `json:"name,omitempty"`
	RegistrationNumber string    `json:"registration_number,omitempty"`
	RegistrationDate   string    `json:"registration_date,omitempty"`
	OperatorType       string    `json:"operator_type,omitempty"`
	Region             string    `json:"region,omitempty"`
	Address            string    `json:"address,omitempty"`
	Basis              string    `json:"basis,omitempty"`
	Source             string    `json:"source,omitempty"`
	LastCheckedAt      time.Time `json:"last_checked_at"`
}

// Cache is the narrow storage interface the audit core reads and writes.
// LookupByINN returns shared errors.ErrRegistryNotFound when nothing is
// known about the INN.
type Cache interface {
	LookupByINN(ctx context.Context, inn string) (*Record, error)
	Upsert(ctx context.Context, rec *Record) error
}

// LiveClient consults the register itself. Implementations are slow and
// rate-limited; callers go through Lookup, never directly.
type LiveClient interface {
	Lookup(ctx context.Context, inn string) (*Record, error)
}
