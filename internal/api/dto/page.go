package dto

import (
	"database/sql"

	"github.com/cuongbtq/career-assistant/shared/pagination"
)

// ListQuery is the keyset query shared by forward-only listings
type ListQuery struct {
	Limit  int    `form:"limit"`
	Cursor string `form:"cursor"`
}

// MessagesQuery selects a window of a conversation
type MessagesQuery struct {
	Limit  int    `form:"limit"`
	Before string `form:"before"`
	After  string `form:"after"`
}

// MapPage converts page items keeping the cursors
func MapPage[T, U any](p pagination.Page[T], convert func(T) U) pagination.Page[U] {
	items := make([]U, len(p.Items))
	for i, item := range p.Items {
		items[i] = convert(item)
	}
	return pagination.Page[U]{Items: items, NextCursor: p.NextCursor, HasNext: p.HasNext}
}

// MapBidirectionalPage converts page items keeping both cursors
func MapBidirectionalPage[T, U any](p pagination.BidirectionalPage[T], convert func(T) U) pagination.BidirectionalPage[U] {
	items := make([]U, len(p.Items))
	for i, item := range p.Items {
		items[i] = convert(item)
	}
	return pagination.BidirectionalPage[U]{
		Items:      items,
		NextCursor: p.NextCursor,
		PrevCursor: p.PrevCursor,
		HasNext:    p.HasNext,
		HasPrev:    p.HasPrev,
	}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}
