package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/Danticipation/chakrai/internal/config"
	"github.com/Danticipation/chakrai/internal/identity"
	"github.com/Danticipation/chakrai/internal/metrics"

	"github.com/gin-gonic/gin"
)

const (
	unsealValid   = "valid"
	unsealInvalid = "invalid"
	unsealAbsent  = "absent"
)

// ResolveIdentity establishes the definitive uid for every request, strictly
// first-match-wins:
//
//  1. a uid already resolved earlier in this request is reused unchanged;
//  2. a valid sealed cookie is adopted (re-sealed in place when it was signed
//     under a retired key, same uid underneath);
//  3. otherwise a fresh uid is minted and a new sealed cookie written.
//
// Invalid or tampered cookies fall through to minting silently; the client
// never learns which verification step failed. Concurrent first visits from
// one browser may each mint a uid and race on Set-Cookie; last write wins,
// which is the accepted behavior of stateless cookie identity, so there is
// no server-side locking here.
func ResolveIdentity(sealer *identity.Sealer, cfg *config.Config, m metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UIDFromContext(c); ok {
			c.Next()
			return
		}

		token, err := c.Cookie(config.UIDCookieName)
		if err == nil && token != "" {
			uid, kid, unsealErr := sealer.Unseal(token)
			if unsealErr == nil {
				m.RecordUnseal(unsealValid)
				if kid != sealer.ActiveKID() {
					// Rotation changes signatures, not identities: same uid,
					// new tag under the current key.
					if resealed, sealErr := sealer.Seal(uid); sealErr == nil {
						writeUIDCookie(c, cfg, resealed)
						m.RecordCookieResealed()
					}
				}
				SetUID(c, uid)
				c.Next()
				return
			}
			if !errors.Is(unsealErr, identity.ErrInvalidToken) {
				log.Printf("Unexpected unseal failure: %v", unsealErr)
			}
			m.RecordUnseal(unsealInvalid)
		} else {
			m.RecordUnseal(unsealAbsent)
		}

		uid, err := identity.NewUID()
		if err != nil {
			log.Printf("Failed to mint uid: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "identity_unavailable",
			})
			return
		}
		sealed, err := sealer.Seal(uid)
		if err != nil {
			log.Printf("Failed to seal uid: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "identity_unavailable",
			})
			return
		}

		writeUIDCookie(c, cfg, sealed)
		m.RecordUIDMinted()
		SetUID(c, uid)
		c.Next()
	}
}

func writeUIDCookie(c *gin.Context, cfg *config.Config, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		config.UIDCookieName,
		token,
		int(cfg.UIDCookieTTL.Seconds()),
		"/",
		cfg.CookieDomain,
		cfg.CookieSecure,
		true, // HttpOnly
	)
}
