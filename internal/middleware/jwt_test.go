package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type revokedSet map[string]bool

func (r revokedSet) IsRevoked(_ context.Context, sid string) (bool, error) { return r[sid], nil }

func init() { gin.SetMode(gin.TestMode) }

func newRouter(tm *TokenManager, revoked RevocationChecker) *gin.Engine {
	r := gin.New()
	r.Use(Authenticate(tm, revoked))
	r.GET("/open", func(c *gin.Context) { c.String(http.StatusOK, "uid=%s", UserID(c)) })
	r.GET("/private", RequireAuth(), func(c *gin.Context) { c.String(http.StatusOK, SessionID(c)) })
	r.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTokenManager_IssueAndParse(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	token, sid, err := tm.Issue("u1", "a@b.co", []string{RoleUser})
	require.NoError(t, err)

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, sid, claims.ID)
	assert.Equal(t, []string{RoleUser}, claims.Roles)
}

func TestTokenManager_RejectsOtherAlgorithms(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = tm.Parse(hs256)
	assert.Error(t, err)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := NewTokenManager(testSecret, -time.Minute)
	token, _, err := tm.Issue("u1", "a@b.co", nil)
	require.NoError(t, err)
	_, err = tm.Parse(token)
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	user, _, _ := tm.Issue("u1", "a@b.co", []string{RoleUser})
	admin, _, _ := tm.Issue("u2", "ops@b.co", []string{RoleUser, RoleAdmin})
	signedOut, sid, _ := tm.Issue("u3", "c@b.co", []string{RoleUser})
	r := newRouter(tm, revokedSet{sid: true})

	w := do(r, "/open", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "uid=", w.Body.String())

	assert.Equal(t, "uid=u1", do(r, "/open", user).Body.String())
	assert.Equal(t, http.StatusUnauthorized, do(r, "/open", "garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/private", "").Code)
	assert.Equal(t, http.StatusOK, do(r, "/private", user).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/private", signedOut).Code)

	assert.Equal(t, http.StatusForbidden, do(r, "/admin", user).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/admin", admin).Code)

	w = do(r, "/open?access_token="+user, "")
	assert.Equal(t, "uid=u1", w.Body.String())
}
