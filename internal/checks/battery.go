package checks

import "github.com/avoronkov/pdnaudit/internal/registry"

// DefaultBattery returns the standard checker set in its canonical order.
// The order is part of the contract: penalty aggregation walks results in
// battery order, so reordering changes which check first claims a shared
// aggregation key.
func DefaultBattery(lookup *registry.Lookup) []Checker {
	checkers := []Checker{
		PrivacyPolicyChecker{},
		ConsentCheckboxChecker{},
		CookieBannerChecker{},
		ConsentDocumentChecker{},
		HTTPSEnforcementChecker{},
		TLSCertificateChecker{},
	}
	checkers = append(checkers, HeaderCheckers()...)
	checkers = append(checkers,
		OwnerIdentificationChecker{},
		ContactsChecker{},
		RegistryChecker{Lookup: lookup},
	)
	return checkers
}
