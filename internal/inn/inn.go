// Package inn validates Russian taxpayer identification numbers (INN).
//
// A 10-digit INN identifies a legal entity and carries one checksum digit;
// a 12-digit INN identifies an individual or entrepreneur and carries two.
// The checksum algorithm is public: weighted sums modulo 11, modulo 10.
package inn

import "fmt"

var (
	weights10 = []int{2, 4, 10, 3, 5, 9, 4, 6, 8}
	weights11 = []int{7, 2, 4, 10, 3, 5, 9, 4, 6, 8}
	weights12 = []int{3, 7, 2, 4, 10, 3, 5, 9, 4, 6, 8}
)

// Validate reports whether s is a structurally valid INN. The second return
// value carries a human-readable reason when validation fails.
func Validate(s string) (bool, string) {
	if s == "" {
		return false, "INN is empty"
	}
	digits := make([]int, 0, len(s))
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false, "INN must contain only digits"
		}
		digits = append(digits, int(ch-'0'))
	}

	switch len(digits) {
	case 10:
		if checkDigit(digits, weights10) != digits[9] {
			return false, "checksum mismatch in 10-digit INN"
		}
		return true, ""
	case 12:
		if checkDigit(digits, weights11) != digits[10] {
			return false, "first checksum mismatch in 12-digit INN"
		}
		if checkDigit(digits, weights12) != digits[11] {
			return false, "second checksum mismatch in 12-digit INN"
		}
		return true, ""
	default:
		return false, fmt.Sprintf("INN must be 10 or 12 digits, got %d", len(digits))
	}
}

// IsLegalEntity reports whether a valid INN belongs to a legal entity
// (10 digits) rather than an individual or entrepreneur (12 digits).
func IsLegalEntity(s string) bool {
	return len(s) == 10
}

func checkDigit(digits, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += digits[i] * w
	}
	return sum % 11 % 10
}
