package identity

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/Danticipation/chakrai/internal/keyring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRing(t *testing.T, pairs string) *keyring.Ring {
	t.Helper()
	r, err := keyring.Parse(pairs)
	require.NoError(t, err)
	return r
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestSeal_RoundTrip(t *testing.T) {
	sealer := NewSealer(testRing(t, "k1:"+b64("signing-key-material")))

	uid, err := NewUID()
	require.NoError(t, err)

	token, err := sealer.Seal(uid)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	assert.Equal(t, uid, parts[0])
	assert.Equal(t, "k1", parts[1])

	gotUID, gotKID, err := sealer.Unseal(token)
	require.NoError(t, err)
	assert.Equal(t, uid, gotUID)
	assert.Equal(t, "k1", gotKID)
}

func TestUnseal_TamperedSignature(t *testing.T) {
	sealer := NewSealer(testRing(t, "k1:"+b64("signing-key-material")))

	uid, err := NewUID()
	require.NoError(t, err)
	token, err := sealer.Seal(uid)
	require.NoError(t, err)

	idx := strings.LastIndex(token, ".")
	prefix, tag := token[:idx+1], token[idx+1:]

	// Flipping any signature byte must invalidate the token
	for i := 0; i < len(tag); i++ {
		mutated := []byte(tag)
		if mutated[i] == 'A' {
			mutated[i] = 'B'
		} else {
			mutated[i] = 'A'
		}
		_, _, err := sealer.Unseal(prefix + string(mutated))
		assert.ErrorIs(t, err, ErrInvalidToken, "byte %d", i)
	}
}

func TestUnseal_TamperedUID(t *testing.T) {
	sealer := NewSealer(testRing(t, "k1:"+b64("signing-key-material")))

	token, err := sealer.Seal("usr_0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	// Swap in a different well-formed uid, keep the original tag
	other := "usr_ffffffffffffffffffffffffffffffff"
	parts := strings.Split(token, ".")
	forged := other + "." + parts[1] + "." + parts[2]

	_, _, err = sealer.Unseal(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUnseal_Malformed(t *testing.T) {
	sealer := NewSealer(testRing(t, "k1:"+b64("signing-key-material")))

	cases := []string{
		"",
		"just-one-segment",
		"two.segments",
		"four.seg.men.ts",
		"notauid.k1.dGFn",
		"usr_short.k1.dGFn",
	}
	for _, token := range cases {
		_, _, err := sealer.Unseal(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", token)
	}
}

func TestUnseal_UnknownKID(t *testing.T) {
	sealerA := NewSealer(testRing(t, "k1:"+b64("key-one")))
	sealerB := NewSealer(testRing(t, "k2:"+b64("key-two")))

	uid, err := NewUID()
	require.NoError(t, err)
	token, err := sealerA.Seal(uid)
	require.NoError(t, err)

	// k1 is not registered in sealerB's ring
	_, _, err = sealerB.Unseal(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUnseal_RotationContinuity(t *testing.T) {
	uid, err := NewUID()
	require.NoError(t, err)

	// Seal under the old ring
	oldSealer := NewSealer(testRing(t, "k1:"+b64("old-key")))
	oldToken, err := oldSealer.Seal(uid)
	require.NoError(t, err)

	// Rotate: k2 becomes active, k1 retires but remains registered
	rotated := NewSealer(testRing(t, "k2:"+b64("new-key")+",k1:"+b64("old-key")))
	assert.Equal(t, "k2", rotated.ActiveKID())

	gotUID, gotKID, err := rotated.Unseal(oldToken)
	require.NoError(t, err)
	assert.Equal(t, uid, gotUID)
	assert.Equal(t, "k1", gotKID, "unseal reports the retired kid so callers can re-seal")

	// Re-sealing yields a token under the active key with the same uid
	newToken, err := rotated.Seal(uid)
	require.NoError(t, err)
	assert.NotEqual(t, oldToken, newToken)

	gotUID, gotKID, err = rotated.Unseal(newToken)
	require.NoError(t, err)
	assert.Equal(t, uid, gotUID)
	assert.Equal(t, "k2", gotKID)
}

func TestSeal_DifferentKeysDifferentTags(t *testing.T) {
	uid := "usr_0123456789abcdef0123456789abcdef"

	tokenA, err := NewSealer(testRing(t, "k1:"+b64("key-a"))).Seal(uid)
	require.NoError(t, err)
	tokenB, err := NewSealer(testRing(t, "k1:"+b64("key-b"))).Seal(uid)
	require.NoError(t, err)

	assert.NotEqual(t, tokenA, tokenB)
}
