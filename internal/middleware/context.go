package middleware

import (
	"github.com/Danticipation/chakrai/internal/store"

	"github.com/gin-gonic/gin"
)

const (
	uidContextKey         = "uid"
	scopedStoreContextKey = "rls_store"
)

// SetUID records the resolved uid in the request context. Downstream
// middleware and handlers read identity only through UIDFromContext; nothing
// attaches ad hoc fields to the request.
func SetUID(c *gin.Context, uid string) {
	c.Set(uidContextKey, uid)
}

// UIDFromContext extracts the resolved uid from the request context.
func UIDFromContext(c *gin.Context) (string, bool) {
	v, exists := c.Get(uidContextKey)
	if !exists {
		return "", false
	}
	uid, ok := v.(string)
	if !ok || uid == "" {
		return "", false
	}
	return uid, true
}

// ScopedStore returns the RLS-scoped store for this request when BindRLS has
// run, else the fallback handle.
func ScopedStore(c *gin.Context, fallback *store.Store) *store.Store {
	v, exists := c.Get(scopedStoreContextKey)
	if !exists {
		return fallback
	}
	s, ok := v.(*store.Store)
	if !ok {
		return fallback
	}
	return s
}
