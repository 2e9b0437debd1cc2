package utils

import (
	"regexp"
	"strings"
)

var (
	phoneCleanRe         = regexp.MustCompile(`[\s\-()]`)
	internationalPhoneRe = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)
)

// NormalizePhone strips whitespace and punctuation from a raw phone string so
// the same contact always maps to the same conversation key.
func NormalizePhone(raw string) string {
	return phoneCleanRe.ReplaceAllString(strings.TrimSpace(raw), "")
}

// IsValidInternationalPhone reports whether the number is in
// +<country><subscriber> format.
func IsValidInternationalPhone(phone string) bool {
	return internationalPhoneRe.MatchString(NormalizePhone(phone))
}

// MaskPhone keeps the leading country prefix and the last four digits,
// hiding the middle. Used as the default display name for unnamed contacts.
func MaskPhone(phone string) string {
	p := NormalizePhone(phone)
	if len(p) <= 7 {
		return p
	}
	return p[:3] + strings.Repeat("•", len(p)-7) + p[len(p)-4:]
}
