// Package keyring holds the ordered set of named cookie-signing keys.
//
// The ring is parsed once from configuration at startup and never mutated,
// so it is safe for concurrent reads without locking. The first entry signs
// new tokens; every entry verifies, which is what lets a key rotation keep
// previously issued cookies alive until they are naturally re-sealed.
package keyring

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoKeys is returned when the configuration yields zero usable keys.
	ErrNoKeys = errors.New("signing key set contains no usable keys")

	// ErrMalformedKey is returned for a pair missing its kid or key material.
	ErrMalformedKey = errors.New("malformed signing key entry")
)

type Ring struct {
	activeKID string
	keys      map[string][]byte
}

// Parse reads a comma-separated list of "kid:base64key" pairs. Order is
// significant: the first well-formed pair becomes the active signing key.
func Parse(s string) (*Ring, error) {
	r := &Ring{keys: make(map[string][]byte)}

	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		kid, encoded, found := strings.Cut(pair, ":")
		kid = strings.TrimSpace(kid)
		encoded = strings.TrimSpace(encoded)
		if !found || kid == "" || encoded == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedKey, pair)
		}

		raw, err := decodeBase64(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrMalformedKey, kid, err)
		}

		if _, exists := r.keys[kid]; exists {
			return nil, fmt.Errorf("%w: duplicate kid %q", ErrMalformedKey, kid)
		}

		r.keys[kid] = raw
		if r.activeKID == "" {
			r.activeKID = kid
		}
	}

	if len(r.keys) == 0 {
		return nil, ErrNoKeys
	}
	return r, nil
}

// ActiveKID returns the kid used for new signatures.
func (r *Ring) ActiveKID() string { return r.activeKID }

// ActiveKey returns the raw bytes of the active signing key.
func (r *Ring) ActiveKey() []byte { return r.keys[r.activeKID] }

// Key looks up a registered key by kid. Retired keys remain registered so
// that tokens sealed before a rotation still verify.
func (r *Ring) Key(kid string) ([]byte, bool) {
	k, ok := r.keys[kid]
	return k, ok
}

// Len reports the number of registered keys.
func (r *Ring) Len() int { return len(r.keys) }

func decodeBase64(s string) ([]byte, error) {
	var lastErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	} {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
