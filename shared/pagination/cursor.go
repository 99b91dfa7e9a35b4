package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrInvalidCursor is returned for any cursor that cannot be decoded
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrInvalidArgument is returned when a cursor cannot be built from the given values
	ErrInvalidArgument = errors.New("invalid argument")
)

// Cursor is the (created_at, id) key of the last row a client has seen
type Cursor struct {
	Timestamp time.Time
	ID        string
}

type cursorPayload struct {
	Timestamp *string `json:"timestamp"`
	IDStr     *string `json:"id_str"`
}

// EncodeCursor builds an opaque, URL-safe cursor token from a row's sort key
func EncodeCursor(ts time.Time, id string) (string, error) {
	if ts.IsZero() {
		return "", fmt.Errorf("%w: timestamp must be set", ErrInvalidArgument)
	}
	if id == "" {
		return "", fmt.Errorf("%w: id must not be empty", ErrInvalidArgument)
	}

	timestamp := ts.Format(time.RFC3339Nano)
	data, err := json.Marshal(cursorPayload{Timestamp: &timestamp, IDStr: &id})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeCursor parses a token produced by EncodeCursor.
// All failures wrap ErrInvalidCursor.
func DecodeCursor(s string) (Cursor, error) {
	if s == "" {
		return Cursor{}, invalidCursor("cursor must be a non-empty string")
	}

	raw, err := decodeBase64(s)
	if err != nil {
		return Cursor{}, invalidCursor("malformed base64: %v", err)
	}

	if !utf8.Valid(raw) {
		return Cursor{}, invalidCursor("payload is not valid UTF-8")
	}

	var payload cursorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Cursor{}, invalidCursor("malformed JSON: %v", err)
	}

	if payload.Timestamp == nil || *payload.Timestamp == "" {
		return Cursor{}, invalidCursor("missing field timestamp")
	}
	if payload.IDStr == nil || *payload.IDStr == "" {
		return Cursor{}, invalidCursor("missing field id_str")
	}

	ts, err := time.Parse(time.RFC3339Nano, *payload.Timestamp)
	if err != nil {
		return Cursor{}, invalidCursor("malformed timestamp %q", *payload.Timestamp)
	}

	return Cursor{Timestamp: ts, ID: *payload.IDStr}, nil
}

// decodeBase64 accepts the URL-safe alphabet with or without padding, and the
// standard alphabet used by older clients.
func decodeBase64(s string) ([]byte, error) {
	trimmed := strings.TrimRight(s, "=")
	if strings.ContainsAny(trimmed, "+/") {
		return base64.RawStdEncoding.DecodeString(trimmed)
	}
	return base64.RawURLEncoding.DecodeString(trimmed)
}

func invalidCursor(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidCursor, fmt.Sprintf(format, args...))
}
