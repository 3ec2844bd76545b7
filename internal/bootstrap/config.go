package bootstrap

import (
	"log"

	"github.com/Danticipation/chakrai/internal/config"
	"github.com/Danticipation/chakrai/internal/keyring"
)

// validateAllConfiguration validates all configuration settings and parses
// the signing key ring. Both are deliberately fatal: serving traffic without
// cookie integrity keys would hand out forgeable identities.
func validateAllConfiguration(cfg *config.Config) *keyring.Ring {
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ring, err := keyring.Parse(cfg.SigningKeys)
	if err != nil {
		log.Fatalf("Invalid SIGNING_KEYS: %v", err)
	}
	log.Printf("Signing key ring loaded (%d keys, active kid: %s)", ring.Len(), ring.ActiveKID())

	return ring
}
