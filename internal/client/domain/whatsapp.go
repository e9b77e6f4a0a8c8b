package domain

import (
	"strings"
	"unicode"
)

// NormalizeWhatsapp strips formatting and accepts a 2-digit area code followed
// by an 8 or 9 digit number.
func NormalizeWhatsapp(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 10 || len(digits) > 11 {
		return "", ErrInvalidWhatsapp
	}
	return digits, nil
}
