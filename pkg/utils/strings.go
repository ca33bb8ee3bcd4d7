package utils

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeString trims whitespace and normalizes string input
func NormalizeString(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeEmail normalizes email addresses (lowercase and trim)
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone keeps a leading + and the digits.
func NormalizePhone(phone string) string {
	cleaned := strings.TrimSpace(phone)
	if cleaned == "" {
		return ""
	}

	var result strings.Builder
	for i, r := range cleaned {
		if i == 0 && r == '+' {
			result.WriteRune(r)
		} else if isASCIIDigit(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// CountDigits counts decimal digits in s.
func CountDigits(s string) int {
	n := 0
	for _, r := range s {
		if isASCIIDigit(r) {
			n++
		}
	}
	return n
}

// isASCIIDigit matches 0-9 only; other Unicode digits are not phone digits.
func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// IsValidEmail accepts something@something.tld with no whitespace.
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// RuneLen counts characters rather than bytes.
func RuneLen(s string) int {
	return len([]rune(s))
}
