package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/career-assistant/shared/pagination"
)

func TestKeysetQuery_Build(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.FixedZone("MSK", 3*60*60))

	tests := []struct {
		name     string
		query    *keysetQuery
		wantSQL  string
		wantArgs []any
	}{
		{
			name: "first page",
			query: newKeysetQuery("SELECT id FROM facts", "created_at", "id").
				Where("user_id = ?", "u1").
				Limit(20),
			wantSQL:  "SELECT id FROM facts WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?",
			wantArgs: []any{"u1", 21},
		},
		{
			name: "with cursor",
			query: newKeysetQuery("SELECT id FROM facts", "created_at", "id").
				Where("user_id = ?", "u1").
				Where("is_active = TRUE").
				After(&pagination.Cursor{Timestamp: ts, ID: "f1"}).
				Limit(10),
			wantSQL: "SELECT id FROM facts WHERE user_id = ? AND is_active = TRUE AND " +
				"(created_at < ? OR (created_at = ? AND id < ?)) ORDER BY created_at DESC, id DESC LIMIT ?",
			wantArgs: []any{"u1", ts.UTC(), ts.UTC(), "f1", 11},
		},
		{
			name: "newer rows ascending",
			query: newKeysetQuery("SELECT id FROM messages", "created_at", "id").
				Since(&pagination.Cursor{Timestamp: ts, ID: "m1"}).
				Limit(5),
			wantSQL:  "SELECT id FROM messages WHERE (created_at > ? OR (created_at = ? AND id > ?)) ORDER BY created_at ASC, id ASC LIMIT ?",
			wantArgs: []any{ts.UTC(), ts.UTC(), "m1", 6},
		},
		{
			name: "in list expanded",
			query: newKeysetQuery("SELECT v.id FROM vacancies v", "v.created_at", "v.id").
				WhereIn("v.experience_id", []string{"noExperience", "between1And3"}).
				WhereIn("v.schedule_id", nil).
				Limit(1),
			wantSQL:  "SELECT v.id FROM vacancies v WHERE v.experience_id IN (?, ?) ORDER BY v.created_at DESC, v.id DESC LIMIT ?",
			wantArgs: []any{"noExperience", "between1And3", 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.query.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestKeysetQuery_BuildIsRepeatable(t *testing.T) {
	q := newKeysetQuery("SELECT id FROM prompts", "created_at", "id").Where("user_id = ?", "u1").Limit(3)

	first, firstArgs, err := q.Build()
	require.NoError(t, err)
	second, secondArgs, err := q.Build()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstArgs, secondArgs)
}
