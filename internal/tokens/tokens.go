// Package tokens generates invitation secrets and the one-way digests that
// are persisted in their place.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// DefaultByteLength yields a 64 character hex token.
const DefaultByteLength = 32

// GenerateSecureToken returns byteLength random bytes, hex encoded so the
// token is URL safe.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = DefaultByteLength
	}
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Hash returns the SHA-256 hex digest of token.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether token hashes to digest, comparing in constant time.
func Verify(token, digest string) bool {
	computed := Hash(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}
