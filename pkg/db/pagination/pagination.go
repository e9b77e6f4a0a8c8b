package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// ErrInvalidCursor is returned when a page token cannot be decoded.
var ErrInvalidCursor = errors.New("invalid_page_token")

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, ErrInvalidCursor
	}
	if cursor.ID == "" || cursor.CreatedAt == "" {
		return nil, ErrInvalidCursor
	}
	return &cursor, nil
}

// Limit clamps a requested page size into [1, max], using def when unset.
func Limit(requested, def, max int) int {
	if requested <= 0 {
		requested = def
	}
	if requested > max {
		requested = max
	}
	if requested < 1 {
		requested = 1
	}
	return requested
}

// BuildCursorPageInfo trims the extra look-ahead row and builds the page info.
// Repositories fetch limit+1 rows so HasMore can be decided without a count.
func BuildCursorPageInfo[T any](data []*T, limit int, extractCursor func(*T) string) ([]*T, *PageInfo) {
	if len(data) == 0 {
		return data, &PageInfo{}
	}

	hasMore := false
	if len(data) > limit {
		hasMore = true
		data = data[:limit]
	}

	info := &PageInfo{HasMore: hasMore}
	if hasMore {
		info.NextPageToken = extractCursor(data[len(data)-1])
	}
	return data, info
}
