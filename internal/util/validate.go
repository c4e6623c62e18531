package util

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"nathanbeddoewebdev/nodeprov/internal/domain"
)

// IsInteger reports whether s is a non-empty run of ASCII decimal digits.
// When max is given, the numeric value must also be <= max[0]. Sign
// characters are never accepted.
func IsInteger(s string, max ...int) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	if len(max) == 0 {
		return true
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		// Out of range for uint64, so larger than any int bound.
		return false
	}
	return max[0] >= 0 && n <= uint64(max[0])
}

// IsIPv4 reports whether s is a dotted quad with exactly four segments,
// each an integer in [0, 255]. Abbreviated forms such as "127.1" are
// rejected.
func IsIPv4(s string) bool {
	segs := strings.Split(s, ".")
	if len(segs) != 4 {
		return false
	}
	for _, seg := range segs {
		if !IsInteger(seg, 255) {
			return false
		}
	}
	return true
}

// IsCIDR reports whether s is an IPv4 address followed by "/" and a
// prefix length in [0, 32].
func IsCIDR(s string) bool {
	addr, prefix, ok := strings.Cut(s, "/")
	if !ok || strings.Contains(prefix, "/") {
		return false
	}
	return IsIPv4(addr) && IsInteger(prefix, 32)
}

// IsSupportedRole reports whether s is the external encoding of a role.
func IsSupportedRole(s string) bool {
	_, err := domain.ParseRole(s)
	return err == nil
}

// NormalizeKey trims and lowercases role names and setting keys typed by
// the operator.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateInteger returns a descriptive error when s is not an integer
// no greater than max. A negative max disables the bound.
func ValidateInteger(s string, max int) error {
	if s == "" {
		return fmt.Errorf("a number is required")
	}
	if max < 0 {
		if !IsInteger(s) {
			return fmt.Errorf("%q is not a whole number (digits only)", s)
		}
		return nil
	}
	if !IsInteger(s, max) {
		return fmt.Errorf("%q must be a whole number between 0 and %d", s, max)
	}
	return nil
}

// ValidatePositive is ValidateInteger without an upper bound that also
// rejects zero.
func ValidatePositive(s string) error {
	if err := ValidateInteger(s, -1); err != nil {
		return err
	}
	if strings.Trim(s, "0") == "" {
		return fmt.Errorf("%q must be greater than zero", s)
	}
	return nil
}

// ValidateIPv4 returns a descriptive error when s is not a dotted quad.
func ValidateIPv4(s string) error {
	if s == "" {
		return fmt.Errorf("an IPv4 address is required")
	}
	if !IsIPv4(s) {
		return fmt.Errorf("%q is not a valid IPv4 address (expected four numbers 0-255 separated by dots)", s)
	}
	return nil
}

// ValidateCIDR returns a descriptive error when s is not address/prefix.
func ValidateCIDR(s string) error {
	if s == "" {
		return fmt.Errorf("a CIDR range is required")
	}
	if !IsCIDR(s) {
		return fmt.Errorf("%q is not a valid CIDR range (expected a.b.c.d/n with n between 0 and 32)", s)
	}
	return nil
}

// ValidateName checks identifiers such as user and project names: they
// must be non-empty and contain no whitespace.
func ValidateName(s string) error {
	if s == "" {
		return fmt.Errorf("a name is required")
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return fmt.Errorf("name %q must not contain whitespace", s)
	}
	return nil
}
