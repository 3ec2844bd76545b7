package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// CryptoRandomBytes generates cryptographically secure random bytes
func CryptoRandomBytes(length int64) ([]byte, error) {
	buf := make([]byte, length)
	_, err := rand.Read(buf)
	return buf, err
}

// SHA256Hex returns the SHA-256 hash of b as a lowercase hex string.
// Intended for use with high-entropy, unguessable values (e.g., randomly
// generated device ids); for such inputs, a salt is not required for security.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// TruncatedHMAC returns the first n bytes of HMAC-SHA256(key, data) as a
// lowercase hex string. Used to derive the one-way device and user-device
// tags: deterministic given their inputs, non-reversible without the key.
func TruncatedHMAC(key []byte, n int, data ...[]byte) string {
	mac := hmac.New(sha256.New, key)
	for _, d := range data {
		mac.Write(d)
	}
	return hex.EncodeToString(mac.Sum(nil)[:n])
}
