// Package masking redacts personal data before it is written to audit logs.
package masking

import (
	"strings"
	"unicode"
)

const maskToken = "****"

var sensitiveKeys = map[string]struct{}{
	"email":           {},
	"whatsapp":        {},
	"phone":           {},
	"document_number": {},
	"password":        {},
	"token":           {},
}

// MaskSecret keeps only the last four characters of value.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	runes := []rune(trimmed)
	if len(runes) <= 4 {
		return maskToken
	}
	return maskToken + string(runes[len(runes)-4:])
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(value string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(value), "@")
	if !ok || local == "" || domain == "" {
		return MaskSecret(value)
	}
	return string([]rune(local)[0]) + maskToken + "@" + domain
}

// MaskDigits keeps the last four digits of a phone or document number.
func MaskDigits(value string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, value)
	return MaskSecret(digits)
}

// MaskPII returns a copy of input with values under sensitive keys redacted.
// Other values are copied unchanged; nested maps are walked.
func MaskPII(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		masked[trimmedKey] = maskValue(strings.ToLower(trimmedKey), value)
	}
	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(key string, value any) any {
	switch cast := value.(type) {
	case map[string]any:
		return MaskPII(cast)
	case string:
		if _, ok := sensitiveKeys[key]; !ok {
			return cast
		}
		switch key {
		case "email":
			return MaskEmail(cast)
		case "whatsapp", "phone", "document_number":
			return MaskDigits(cast)
		default:
			return maskToken
		}
	default:
		return value
	}
}
