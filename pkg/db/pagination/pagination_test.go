package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2026-01-02T03:04:05Z"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)
	assert.Equal(t, "2026-01-02T03:04:05Z", cursor.CreatedAt)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidCursor)

	token, err := EncodeCursor(Cursor{ID: "42"})
	require.NoError(t, err)
	_, err = DecodeCursor(token)
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestBuildCursorPageInfo(t *testing.T) {
	type row struct{ id string }
	rows := []*row{{"3"}, {"2"}, {"1"}}

	page, info := BuildCursorPageInfo(rows, 2, func(r *row) string { return r.id })
	assert.Len(t, page, 2)
	assert.True(t, info.HasMore)
	assert.Equal(t, "2", info.NextPageToken)

	page, info = BuildCursorPageInfo(rows, 5, func(r *row) string { return r.id })
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestLimit(t *testing.T) {
	assert.Equal(t, 50, Limit(0, 50, 250))
	assert.Equal(t, 250, Limit(1000, 50, 250))
	assert.Equal(t, 7, Limit(7, 50, 250))
}
