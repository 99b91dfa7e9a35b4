package domain

import "github.com/google/uuid"

// IsValidID reports whether id is a canonical UUID, the only form a row id
// takes. Anything else cannot match a row and must not reach a UUID column.
func IsValidID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
