package handlers

import (
	"net/http"

	"github.com/Danticipation/chakrai/internal/config"
	"github.com/Danticipation/chakrai/internal/middleware"

	"github.com/gin-gonic/gin"
)

type WhoamiHandler struct{}

func NewWhoamiHandler() *WhoamiHandler {
	return &WhoamiHandler{}
}

// Whoami reports the caller's own resolved identity. Debug surface only:
// returns the caller's uid and whether it arrived via cookie, never key
// material or anyone else's identifiers. Gated in production behind a
// bearer token by the router.
func (h *WhoamiHandler) Whoami(c *gin.Context) {
	uid, _ := middleware.UIDFromContext(c)

	_, err := c.Cookie(config.UIDCookieName)
	cookiePresent := err == nil

	c.JSON(http.StatusOK, gin.H{
		"uid":           uid,
		"cookiePresent": cookiePresent,
	})
}
