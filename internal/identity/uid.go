package identity

import (
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/Danticipation/chakrai/internal/util"
)

// UIDPrefix precedes the 32 hex characters of every pseudonymous user id.
const UIDPrefix = "usr_"

var uidPattern = regexp.MustCompile(`^usr_[0-9a-f]{32}$`)

// NewUID mints a pseudonymous user identifier: "usr_" followed by 32
// lowercase hex characters (128 bits of randomness). A UID is generated once
// per new identity and never recreated for a device that already has one.
func NewUID() (string, error) {
	b, err := util.CryptoRandomBytes(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate uid: %w", err)
	}
	return UIDPrefix + hex.EncodeToString(b), nil
}

// ValidUID reports whether s matches the fixed UID format exactly.
func ValidUID(s string) bool {
	return uidPattern.MatchString(s)
}
