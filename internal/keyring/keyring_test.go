package keyring

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestParse_SingleKey(t *testing.T) {
	r, err := Parse("k1:" + b64("secret-one"))
	require.NoError(t, err)

	assert.Equal(t, "k1", r.ActiveKID())
	assert.Equal(t, []byte("secret-one"), r.ActiveKey())
	assert.Equal(t, 1, r.Len())
}

func TestParse_FirstKeySigns(t *testing.T) {
	r, err := Parse("k2:" + b64("new-key") + ",k1:" + b64("old-key"))
	require.NoError(t, err)

	assert.Equal(t, "k2", r.ActiveKID())
	assert.Equal(t, []byte("new-key"), r.ActiveKey())

	// Retired keys stay registered for verification
	old, ok := r.Key("k1")
	require.True(t, ok)
	assert.Equal(t, []byte("old-key"), old)
	assert.Equal(t, 2, r.Len())
}

func TestParse_UnknownKIDNotFound(t *testing.T) {
	r, err := Parse("k1:" + b64("secret"))
	require.NoError(t, err)

	_, ok := r.Key("k9")
	assert.False(t, ok)
}

func TestParse_EmptyInput(t *testing.T) {
	_, err := Parse("")
	assert.ErrorIs(t, err, ErrNoKeys)

	_, err = Parse(" , , ")
	assert.ErrorIs(t, err, ErrNoKeys)
}

func TestParse_MalformedPairs(t *testing.T) {
	cases := []string{
		"no-colon-here",
		":missingkid",
		"missingkey:",
		"k1:!!!not-base64!!!",
	}
	for _, input := range cases {
		_, err := Parse(input)
		assert.ErrorIs(t, err, ErrMalformedKey, "input %q", input)
	}
}

func TestParse_DuplicateKID(t *testing.T) {
	_, err := Parse("k1:" + b64("a") + ",k1:" + b64("b"))
	assert.ErrorIs(t, err, ErrMalformedKey)
}

func TestParse_WhitespaceTolerated(t *testing.T) {
	r, err := Parse("  k1 : " + b64("secret") + " , k2:" + b64("other") + " ")
	require.NoError(t, err)

	assert.Equal(t, "k1", r.ActiveKID())
	assert.Equal(t, 2, r.Len())
}

func TestParse_URLSafeBase64(t *testing.T) {
	raw := []byte{0xfb, 0xff, 0x00, 0x10, 0x7f}
	encoded := base64.RawURLEncoding.EncodeToString(raw)

	r, err := Parse("k1:" + encoded)
	require.NoError(t, err)
	assert.Equal(t, raw, r.ActiveKey())
}
