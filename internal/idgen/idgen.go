package idgen

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a UUIDv7 identifier string.
// If UUIDv7 generation fails, it falls back to a random UUIDv4.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Short returns an 8-character random key, used for anonymous session names
// like "api:1f2e3d4c".
func Short() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
