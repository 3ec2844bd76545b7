package middleware

import (
	"log"
	"net/http"

	"github.com/Danticipation/chakrai/internal/identity"
	"github.com/Danticipation/chakrai/internal/store"

	"github.com/gin-gonic/gin"
)

// BindRLS propagates the resolved uid into the database session so that the
// forced row-level-security policies scope every query in this request to
// the caller. Must run after ResolveIdentity: a missing uid here means the
// middleware chain is wired wrong, and the request fails loudly instead of
// quietly running unscoped.
//
// The binding is a transaction: queries for the request run on the scoped
// handle from ScopedStore, committed when the handler finishes without a
// server error.
func BindRLS(base *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := UIDFromContext(c)
		if !ok || !identity.ValidUID(uid) {
			log.Printf("RLS precondition violated: no resolved uid before BindRLS on %s %s",
				c.Request.Method, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "rls_precondition_failed",
			})
			return
		}

		scoped, err := base.BeginScoped(c.Request.Context(), uid)
		if err != nil {
			log.Printf("Failed to bind app.uid for request: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "storage_unavailable",
			})
			return
		}

		finished := false
		defer func() {
			if !finished {
				_ = scoped.Rollback()
			}
		}()

		c.Set(scopedStoreContextKey, scoped)
		c.Next()

		if c.Writer.Status() >= http.StatusInternalServerError || len(c.Errors) > 0 {
			_ = scoped.Rollback()
		} else if err := scoped.Commit(); err != nil {
			log.Printf("Failed to commit request transaction: %v", err)
		}
		finished = true
	}
}
