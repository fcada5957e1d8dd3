// Package checksum computes the content hashes used to address stored
// documentation pages and to detect index file changes.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Size is the length of a hex-encoded digest.
const Size = sha256.Size * 2

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Valid reports whether s has the shape of a digest returned by Sum.
func Valid(s string) bool {
	if len(s) != Size {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
