// Package pagination implements keyset pagination over rows ordered by
// (created_at DESC, id DESC): opaque cursors, limit validation and the
// fetch-one-extra page assembly used by every list endpoint.
package pagination

import (
	"errors"
	"time"
)

const (
	DefaultLimit = 20
	MinLimit     = 1
	MaxLimit     = 100
)

// ErrConflictingCursors is returned when both directions are requested at once
var ErrConflictingCursors = errors.New("'before' and 'after' parameters are mutually exclusive")

// KeyFunc extracts the sort key of a row
type KeyFunc[T any] func(T) (time.Time, string)

// Page is a forward-only page of results
type Page[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"next_cursor"`
	HasNext    bool    `json:"has_next"`
}

// BidirectionalPage can be walked towards older (next) and newer (prev) rows.
// Items are ordered oldest first.
type BidirectionalPage[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"next_cursor"`
	PrevCursor *string `json:"prev_cursor"`
	HasNext    bool    `json:"has_next"`
	HasPrev    bool    `json:"has_prev"`
}

// ValidateLimit never fails: non-positive values fall back to def, everything
// else is clamped into [MinLimit, max].
func ValidateLimit(requested, def, max int) int {
	if requested <= 0 {
		return def
	}
	if requested < MinLimit {
		return MinLimit
	}
	if requested > max {
		return max
	}
	return requested
}

// HasMore reports whether a batch fetched with limit+1 rows has a lookahead row
func HasMore[T any](rows []T, limit int) bool {
	return len(rows) > limit
}

// TrimExcess drops the lookahead row and optionally reverses the result.
// The input slice is left untouched.
func TrimExcess[T any](rows []T, limit int, reverse bool) []T {
	n := len(rows)
	if n > limit {
		n = limit
	}
	if n < 0 {
		n = 0
	}

	out := make([]T, n)
	copy(out, rows[:n])

	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}

	return out
}

// NewPage assembles a forward page from rows fetched with limit+1
func NewPage[T any](rows []T, limit int, key KeyFunc[T]) (Page[T], error) {
	hasNext := HasMore(rows, limit)
	items := TrimExcess(rows, limit, false)

	page := Page[T]{Items: items}
	if hasNext && len(items) > 0 {
		cursor, err := cursorFor(items[len(items)-1], key)
		if err != nil {
			return Page[T]{}, err
		}
		page.NextCursor = &cursor
		page.HasNext = true
	}

	return page, nil
}

// NewBackwardPage assembles a page of older rows. rows are newest first, as
// returned by the DESC query; hasNewer tells whether rows newer than the
// window exist (true when the request carried a cursor).
func NewBackwardPage[T any](rows []T, limit int, hasNewer bool, key KeyFunc[T]) (BidirectionalPage[T], error) {
	hasOlder := HasMore(rows, limit)
	items := TrimExcess(rows, limit, true)

	return newBidirectionalPage(items, hasOlder, hasNewer, key)
}

// NewForwardPage assembles a page of newer rows. rows are oldest first, as
// returned by the ASC query that follows an "after" cursor.
func NewForwardPage[T any](rows []T, limit int, key KeyFunc[T]) (BidirectionalPage[T], error) {
	hasNewer := HasMore(rows, limit)
	items := TrimExcess(rows, limit, false)

	return newBidirectionalPage(items, len(items) > 0, hasNewer, key)
}

func newBidirectionalPage[T any](items []T, hasOlder, hasNewer bool, key KeyFunc[T]) (BidirectionalPage[T], error) {
	page := BidirectionalPage[T]{Items: items}
	if len(items) == 0 {
		return page, nil
	}

	if hasOlder {
		cursor, err := cursorFor(items[0], key)
		if err != nil {
			return BidirectionalPage[T]{}, err
		}
		page.NextCursor = &cursor
		page.HasNext = true
	}

	if hasNewer {
		cursor, err := cursorFor(items[len(items)-1], key)
		if err != nil {
			return BidirectionalPage[T]{}, err
		}
		page.PrevCursor = &cursor
		page.HasPrev = true
	}

	return page, nil
}

func cursorFor[T any](row T, key KeyFunc[T]) (string, error) {
	ts, id := key(row)
	return EncodeCursor(ts, id)
}
