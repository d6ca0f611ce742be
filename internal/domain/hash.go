package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent computes the canonical fingerprint of entry content:
// SHA-256 over the raw bytes, lowercase hex. No normalization is
// applied, so whitespace-only edits produce distinct hashes.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
