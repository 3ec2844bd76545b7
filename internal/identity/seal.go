package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/Danticipation/chakrai/internal/keyring"
)

var (
	// ErrInvalidToken covers every unseal failure: wrong segment count, bad
	// uid format, unknown kid, or signature mismatch. Callers treat all of
	// them identically to an absent cookie and mint a fresh identity; the
	// distinction is never surfaced to the client.
	ErrInvalidToken = errors.New("invalid sealed token")

	// ErrKeyNotFound indicates the ring has no active key. That can only
	// happen through a construction bug, so it is not recovered per-request.
	ErrKeyNotFound = errors.New("signing key not found")
)

// Sealer signs and verifies the wire form of a UID:
// three dot-separated segments "uid.kid.tag" where tag is the unpadded
// base64url HMAC-SHA256 of "uid.kid" under the key named by kid.
type Sealer struct {
	ring *keyring.Ring
}

func NewSealer(ring *keyring.Ring) *Sealer {
	return &Sealer{ring: ring}
}

// ActiveKID exposes the kid new seals are signed with, so the resolver can
// detect cookies signed under a retired key and re-seal them.
func (s *Sealer) ActiveKID() string { return s.ring.ActiveKID() }

// Seal signs uid with the active key and returns the cookie token.
func (s *Sealer) Seal(uid string) (string, error) {
	kid := s.ring.ActiveKID()
	key := s.ring.ActiveKey()
	if kid == "" || len(key) == 0 {
		return "", ErrKeyNotFound
	}
	return uid + "." + kid + "." + sign(key, uid, kid), nil
}

// Unseal verifies token and returns the embedded uid and the kid it was
// signed under. Any failure returns ErrInvalidToken; malformed or tampered
// input never panics or leaks which check failed.
func (s *Sealer) Unseal(token string) (uid, kid string, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", "", ErrInvalidToken
	}
	uid, kid, tag := parts[0], parts[1], parts[2]

	if !ValidUID(uid) {
		return "", "", ErrInvalidToken
	}

	key, ok := s.ring.Key(kid)
	if !ok {
		// Unknown kid at verification time is indistinguishable from a
		// forged token as far as the caller is concerned.
		return "", "", ErrInvalidToken
	}

	expected := sign(key, uid, kid)
	if !hmac.Equal([]byte(expected), []byte(tag)) {
		return "", "", ErrInvalidToken
	}
	return uid, kid, nil
}

func sign(key []byte, uid, kid string) string {
	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s", uid, kid)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
