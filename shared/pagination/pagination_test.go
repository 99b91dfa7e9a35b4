package pagination

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID        string
	CreatedAt time.Time
}

func rowKey(r row) (time.Time, string) {
	return r.CreatedAt, r.ID
}

// rows returns n rows ordered newest first
func rows(n int) []row {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]row, n)
	for i := range out {
		out[i] = row{ID: fmt.Sprintf("id-%02d", n-i), CreatedAt: base.Add(time.Duration(n-i) * time.Minute)}
	}
	return out
}

func TestValidateLimit(t *testing.T) {
	tests := []struct {
		requested int
		want      int
	}{
		{requested: 0, want: DefaultLimit},
		{requested: -5, want: DefaultLimit},
		{requested: 1, want: 1},
		{requested: 50, want: 50},
		{requested: 100, want: 100},
		{requested: 101, want: MaxLimit},
		{requested: 1000, want: MaxLimit},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("requested_%d", tt.requested), func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateLimit(tt.requested, DefaultLimit, MaxLimit))
		})
	}
}

func TestHasMore(t *testing.T) {
	assert.False(t, HasMore([]int{}, 1))
	assert.False(t, HasMore([]int{1, 2, 3}, 3))
	assert.True(t, HasMore([]int{1, 2, 3, 4}, 3))
}

func TestTrimExcess(t *testing.T) {
	input := []int{1, 2, 3, 4}

	assert.Equal(t, []int{1, 2, 3}, TrimExcess(input, 3, false))
	assert.Equal(t, []int{3, 2, 1}, TrimExcess(input, 3, true))
	assert.Equal(t, []int{4, 3, 2, 1}, TrimExcess(input, 10, true))
	assert.Equal(t, []int{}, TrimExcess([]int{}, 3, false))

	// input is never mutated
	assert.Equal(t, []int{1, 2, 3, 4}, input)
}

func TestNewPage(t *testing.T) {
	t.Run("more rows than limit", func(t *testing.T) {
		fetched := rows(4)

		page, err := NewPage(fetched, 3, rowKey)
		require.NoError(t, err)

		assert.Len(t, page.Items, 3)
		assert.True(t, page.HasNext)
		require.NotNil(t, page.NextCursor)

		cursor, err := DecodeCursor(*page.NextCursor)
		require.NoError(t, err)
		assert.Equal(t, fetched[2].ID, cursor.ID)
		assert.True(t, fetched[2].CreatedAt.Equal(cursor.Timestamp))
	})

	t.Run("exactly limit rows", func(t *testing.T) {
		page, err := NewPage(rows(3), 3, rowKey)
		require.NoError(t, err)

		assert.Len(t, page.Items, 3)
		assert.False(t, page.HasNext)
		assert.Nil(t, page.NextCursor)
	})

	t.Run("empty", func(t *testing.T) {
		page, err := NewPage([]row{}, 20, rowKey)
		require.NoError(t, err)

		assert.NotNil(t, page.Items)
		assert.Empty(t, page.Items)
		assert.False(t, page.HasNext)
		assert.Nil(t, page.NextCursor)
	})

	t.Run("row without key", func(t *testing.T) {
		_, err := NewPage([]row{{ID: "a"}, {ID: "b"}}, 1, rowKey)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestNewBackwardPage(t *testing.T) {
	fetched := rows(4) // newest first: id-04, id-03, id-02, id-01

	t.Run("first page", func(t *testing.T) {
		page, err := NewBackwardPage(fetched, 3, false, rowKey)
		require.NoError(t, err)

		require.Len(t, page.Items, 3)
		assert.Equal(t, "id-02", page.Items[0].ID)
		assert.Equal(t, "id-04", page.Items[2].ID)

		assert.True(t, page.HasNext)
		require.NotNil(t, page.NextCursor)
		cursor, err := DecodeCursor(*page.NextCursor)
		require.NoError(t, err)
		assert.Equal(t, "id-02", cursor.ID)

		assert.False(t, page.HasPrev)
		assert.Nil(t, page.PrevCursor)
	})

	t.Run("with before cursor", func(t *testing.T) {
		page, err := NewBackwardPage(fetched[:2], 3, true, rowKey)
		require.NoError(t, err)

		assert.Len(t, page.Items, 2)
		assert.False(t, page.HasNext)
		assert.True(t, page.HasPrev)
		require.NotNil(t, page.PrevCursor)
		cursor, err := DecodeCursor(*page.PrevCursor)
		require.NoError(t, err)
		assert.Equal(t, "id-04", cursor.ID)
	})
}

func TestNewForwardPage(t *testing.T) {
	asc := TrimExcess(rows(4), 4, true) // oldest first

	page, err := NewForwardPage(asc, 3, rowKey)
	require.NoError(t, err)

	require.Len(t, page.Items, 3)
	assert.Equal(t, "id-01", page.Items[0].ID)
	assert.True(t, page.HasPrev)
	assert.True(t, page.HasNext)

	empty, err := NewForwardPage([]row{}, 3, rowKey)
	require.NoError(t, err)
	assert.False(t, empty.HasNext)
	assert.False(t, empty.HasPrev)
}
