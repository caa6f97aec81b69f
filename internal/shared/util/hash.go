package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const ownerKeyLength = 32

// HashOwnerKey returns a path-safe prefix for objects stored on behalf of a
// client. IDs are trimmed and compared case-insensitively; an empty ID maps to
// the anonymous client.
func HashOwnerKey(clientID string) string {
	id := strings.ToLower(strings.TrimSpace(clientID))
	if id == "" {
		id = "anonymous"
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])[:ownerKeyLength]
}
