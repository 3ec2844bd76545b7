package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/Danticipation/chakrai/internal/config"
	"github.com/Danticipation/chakrai/internal/identity"
	"github.com/Danticipation/chakrai/internal/middleware"
	"github.com/Danticipation/chakrai/internal/services"
	"github.com/Danticipation/chakrai/internal/store"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	binding *services.BindingService
	sealer  *identity.Sealer
	db      *store.Store
	config  *config.Config
}

func NewSessionHandler(
	binding *services.BindingService,
	sealer *identity.Sealer,
	db *store.Store,
	cfg *config.Config,
) *SessionHandler {
	return &SessionHandler{binding: binding, sealer: sealer, db: db, config: cfg}
}

// Start opens a new session for the calling device. Requires a prior install
// (DID cookie); without one the caller gets a 401 and should register first.
func (h *SessionHandler) Start(c *gin.Context) {
	did, fresh := readDIDCookie(c)
	if fresh {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "no_install",
			"error_description": "Device not registered. Call /install/register first.",
		})
		return
	}

	uid, ok := middleware.UIDFromContext(c)
	if !ok {
		// ResolveIdentity always runs first on this route; reaching here
		// means the chain is miswired.
		log.Printf("Session start without resolved uid")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity_unavailable"})
		return
	}

	svc := h.binding.WithStore(middleware.ScopedStore(c, h.db))
	grant, err := svc.StartSession(c.Request.Context(), uid, did)
	if err != nil {
		if errors.Is(err, services.ErrNoInstall) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no_install"})
			return
		}
		log.Printf("Failed to start session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_failed"})
		return
	}

	// An existing binding can carry an older uid than the cookie (cookie was
	// cleared and re-minted). The binding wins; re-seal so future requests
	// resolve to the device's stable identity.
	if grant.UID != uid {
		if sealed, sealErr := h.sealer.Seal(grant.UID); sealErr == nil {
			writeSealedUIDCookie(c, h.config, sealed)
			middleware.SetUID(c, grant.UID)
		}
	}

	writeSIDCookie(c, h.config, grant.SID)
	c.JSON(http.StatusOK, grant)
}

// End revokes the current session and clears the SID cookie. Idempotent:
// ending an already-ended or unknown session still returns 204.
func (h *SessionHandler) End(c *gin.Context) {
	sid, err := c.Cookie(config.SIDCookieName)
	if err == nil && sid != "" {
		svc := h.binding.WithStore(middleware.ScopedStore(c, h.db))
		if err := svc.EndSession(c.Request.Context(), sid); err != nil {
			log.Printf("Failed to end session: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session_end_failed"})
			return
		}
	}

	clearSIDCookie(c, h.config)
	c.Status(http.StatusNoContent)
}

func writeSIDCookie(c *gin.Context, cfg *config.Config, sid string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		config.SIDCookieName,
		sid,
		int(cfg.SIDCookieTTL.Seconds()),
		"/",
		cfg.CookieDomain,
		cfg.CookieSecure,
		true, // HttpOnly
	)
}

func clearSIDCookie(c *gin.Context, cfg *config.Config) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(config.SIDCookieName, "", -1, "/", cfg.CookieDomain, cfg.CookieSecure, true)
}

func writeSealedUIDCookie(c *gin.Context, cfg *config.Config, token string) {
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
