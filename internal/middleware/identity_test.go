package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Danticipation/chakrai/internal/config"
	"github.com/Danticipation/chakrai/internal/identity"
	"github.com/Danticipation/chakrai/internal/keyring"
	"github.com/Danticipation/chakrai/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		UIDCookieTTL: 400 * 24 * time.Hour,
	}
}

func testSealer(t *testing.T, pairs string) *identity.Sealer {
	t.Helper()
	ring, err := keyring.Parse(pairs)
	require.NoError(t, err)
	return identity.NewSealer(ring)
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// identityTestRouter wires ResolveIdentity ahead of a probe handler that
// reports the resolved uid.
func identityTestRouter(sealer *identity.Sealer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ResolveIdentity(sealer, testConfig(), metrics.NewNoopMetrics()))
	r.GET("/probe", func(c *gin.Context) {
		uid, ok := UIDFromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no uid"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"uid": uid})
	})
	return r
}

// uidCookies extracts the Set-Cookie headers for the sealed uid cookie.
func uidCookies(w *httptest.ResponseRecorder) []*http.Cookie {
	var out []*http.Cookie
	res := w.Result()
	defer res.Body.Close()
	for _, ck := range res.Cookies() {
		if ck.Name == config.UIDCookieName {
			out = append(out, ck)
		}
	}
	return out
}

func TestResolveIdentity_FreshMint(t *testing.T) {
	sealer := testSealer(t, "k1:"+b64("signing-key"))
	r := identityTestRouter(sealer)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	cookies := uidCookies(w)
	require.Len(t, cookies, 1, "exactly one sealed cookie written")
	ck := cookies[0]
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)

	uid, kid, err := sealer.Unseal(ck.Value)
	require.NoError(t, err)
	assert.True(t, identity.ValidUID(uid))
	assert.Equal(t, "k1", kid)
	assert.Contains(t, w.Body.String(), uid)
}

func TestResolveIdentity_ReturningVisitor(t *testing.T) {
	sealer := testSealer(t, "k1:"+b64("signing-key"))
	r := identityTestRouter(sealer)

	uid, err := identity.NewUID()
	require.NoError(t, err)
	token, err := sealer.Seal(uid)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.AddCookie(&http.Cookie{Name: config.UIDCookieName, Value: token})
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), uid, "existing identity adopted verbatim")
	assert.Empty(t, uidCookies(w), "no rewrite when the cookie is current")
}

func TestResolveIdentity_GarbageCookieMintsFresh(t *testing.T) {
	sealer := testSealer(t, "k1:"+b64("signing-key"))
	r := identityTestRouter(sealer)

	for _, garbage := range []string{
		"not-a-token",
		"usr_0123456789abcdef0123456789abcdef.k1.forgedtag",
		"a.b.c.d",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.AddCookie(&http.Cookie{Name: config.UIDCookieName, Value: garbage})
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		cookies := uidCookies(w)
		require.Len(t, cookies, 1, "garbage %q replaced with a fresh mint", garbage)

		uid, _, err := sealer.Unseal(cookies[0].Value)
		require.NoError(t, err)
		assert.NotContains(t, garbage, uid, "fresh uid, not the forged one")
	}
}

func TestResolveIdentity_RotationReseal(t *testing.T) {
	oldSealer := testSealer(t, "k1:"+b64("old-key"))
	uid, err := identity.NewUID()
	require.NoError(t, err)
	oldToken, err := oldSealer.Seal(uid)
	require.NoError(t, err)

	// Server now runs with k2 active, k1 retained for verification
	rotated := testSealer(t, "k2:"+b64("new-key")+",k1:"+b64("old-key"))
	r := identityTestRouter(rotated)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.AddCookie(&http.Cookie{Name: config.UIDCookieName, Value: oldToken})
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), uid, "identity survives rotation")

	cookies := uidCookies(w)
	require.Len(t, cookies, 1, "cookie re-sealed under the active key")

	gotUID, gotKID, err := rotated.Unseal(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, uid, gotUID, "same uid, new signature")
	assert.Equal(t, "k2", gotKID)
}

func TestResolveIdentity_Idempotent(t *testing.T) {
	sealer := testSealer(t, "k1:"+b64("signing-key"))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	resolve := ResolveIdentity(sealer, testConfig(), metrics.NewNoopMetrics())
	// The resolver appears twice in the chain; the second pass must reuse
	// the uid from the first and write nothing.
	r.Use(resolve, resolve)
	r.GET("/probe", func(c *gin.Context) {
		uid, _ := UIDFromContext(c)
		c.String(http.StatusOK, uid)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cookies := uidCookies(w)
	require.Len(t, cookies, 1, "single Set-Cookie despite two resolver passes")

	uid, _, err := sealer.Unseal(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, uid, w.Body.String())
}

func TestUIDFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := UIDFromContext(c)
	assert.False(t, ok)

	SetUID(c, "usr_0123456789abcdef0123456789abcdef")
	uid, ok := UIDFromContext(c)
	assert.True(t, ok)
	assert.Equal(t, "usr_0123456789abcdef0123456789abcdef", uid)
}

func TestResolveIdentity_CookieValueSurvivesTransport(t *testing.T) {
	// The sealed token must be cookie-safe: no characters that require
	// quoting. base64url tags and dots satisfy that.
	sealer := testSealer(t, "k1:"+b64("signing-key"))
	uid, err := identity.NewUID()
	require.NoError(t, err)
	token, err := sealer.Seal(uid)
	require.NoError(t, err)

	assert.NotContains(t, token, " ")
	assert.NotContains(t, token, ";")
	assert.NotContains(t, token, ",")
	assert.Equal(t, 2, strings.Count(token, "."))
}
