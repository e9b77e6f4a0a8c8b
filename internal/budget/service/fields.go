package service

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteflow/internal/budget/domain"
	"github.com/smallbiznis/quoteflow/internal/config"
)

const maxTitleLength = 255

func normalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" || utf8.RuneCountInString(title) > maxTitleLength {
		return "", domain.ErrInvalidTitle
	}
	return title, nil
}

func normalizeStatus(raw string) (domain.Status, error) {
	status, ok := domain.ParseStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !ok {
		return "", domain.ErrInvalidStatus
	}
	return status, nil
}

// normalizeCurrency upper-cases the code and checks it against the allow-list.
// An empty code falls back to the configured default.
func normalizeCurrency(raw string, rules config.BudgetRules) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		code = rules.DefaultCurrency
	}
	if len(code) != 3 {
		return "", domain.ErrInvalidCurrency
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", domain.ErrInvalidCurrency
		}
	}
	if !rules.CurrencyAllowed(code) {
		return "", domain.ErrInvalidCurrency
	}
	return code, nil
}

// parseValidUntil accepts a calendar date or an RFC 3339 timestamp and keeps the date part.
func parseValidUntil(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.ErrInvalidValidUntil
	}
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &date, nil
}

func parseClientID(raw string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, domain.ErrInvalidClientID
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidClientID
	}
	return id, nil
}

func optionalText(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// nullable unwraps pointers for map updates so nil becomes SQL NULL.
func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
