package handlers

import (
	"encoding/base64"
	"log"
	"net/http"

	"github.com/Danticipation/chakrai/internal/config"
	"github.com/Danticipation/chakrai/internal/middleware"
	"github.com/Danticipation/chakrai/internal/services"
	"github.com/Danticipation/chakrai/internal/store"
	"github.com/Danticipation/chakrai/internal/util"

	"github.com/gin-gonic/gin"
)

// didBytes is the size of the raw device identifier.
const didBytes = 16

type InstallHandler struct {
	binding *services.BindingService
	db      *store.Store
	config  *config.Config
}

func NewInstallHandler(binding *services.BindingService, db *store.Store, cfg *config.Config) *InstallHandler {
	return &InstallHandler{binding: binding, db: db, config: cfg}
}

type registerInstallRequest struct {
	Platform string `json:"platform"`
}

// Register establishes the device identity for this browser: a long-lived
// DID cookie holding raw random bytes, and an install row keyed by the
// anonymized tag derived from them. Registering twice is a no-op.
func (h *InstallHandler) Register(c *gin.Context) {
	var req registerInstallRequest
	_ = c.ShouldBindJSON(&req) // body is optional; platform defaults server-side

	did, fresh := readDIDCookie(c)
	if fresh {
		var err error
		did, err = util.CryptoRandomBytes(didBytes)
		if err != nil {
			log.Printf("Failed to generate device id: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "device_unavailable"})
			return
		}
		writeDIDCookie(c, h.config, did)
	}

	svc := h.binding.WithStore(middleware.ScopedStore(c, h.db))
	adid, err := svc.RegisterInstall(c.Request.Context(), did, req.Platform)
	if err != nil {
		log.Printf("Failed to register install: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "install_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"adid": adid})
}

// readDIDCookie returns the raw device id bytes from the DID cookie.
// fresh is true when the cookie is absent or unparseable and a new device id
// must be minted.
func readDIDCookie(c *gin.Context) (did []byte, fresh bool) {
	value, err := c.Cookie(config.DIDCookieName)
	if err != nil || value == "" {
		return nil, true
	}
	did, err = base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(did) == 0 {
		return nil, true
	}
	return did, false
}

func writeDIDCookie(c *gin.Context, cfg *config.Config, did []byte) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		config.DIDCookieName,
		base64.RawURLEncoding.EncodeToString(did),
		int(cfg.DIDCookieTTL.Seconds()),
		"/",
		cfg.CookieDomain,
		cfg.CookieSecure,
		true, // HttpOnly
	)
}
