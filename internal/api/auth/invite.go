package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const inviteCodeBytes = 16

// GenerateInviteCodes returns n random URL-safe codes
func GenerateInviteCodes(n int) ([]string, error) {
	codes := make([]string, 0, n)
	buf := make([]byte, inviteCodeBytes)
	for i := 0; i < n; i++ {
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate invite code: %w", err)
		}
		codes = append(codes, base64.RawURLEncoding.EncodeToString(buf))
	}
	return codes, nil
}
