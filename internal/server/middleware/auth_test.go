package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/dairy/internal/config"
)

func newEngine(t *testing.T, a *Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Logger(zaptest.NewLogger(t)))
	r.GET("/me", a.Authenticate(), RequireRole(RoleSubAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"owner": OwnerID(c)})
	})
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	a := NewAuthenticator(config.AuthConfig{JWTSecret: "s3cret", Issuer: "dairy"}, nil)
	r := newEngine(t, a)

	token, err := a.Issue("owner-1", RoleSubAdmin, time.Hour)
	require.NoError(t, err)

	w := get(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"owner":"owner-1"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "not-a-jwt").Code)
}

func TestAuthenticate_RejectsForeignAndExpiredTokens(t *testing.T) {
	a := NewAuthenticator(config.AuthConfig{JWTSecret: "s3cret", Issuer: "dairy"}, nil)
	r := newEngine(t, a)

	other := NewAuthenticator(config.AuthConfig{JWTSecret: "other", Issuer: "dairy"}, nil)
	token, err := other.Issue("owner-1", RoleSubAdmin, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, token).Code)

	wrongIssuer := NewAuthenticator(config.AuthConfig{JWTSecret: "s3cret", Issuer: "elsewhere"}, nil)
	token, err = wrongIssuer.Issue("owner-1", RoleSubAdmin, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, token).Code)

	token, err = a.Issue("owner-1", RoleSubAdmin, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, token).Code)

	token, err = a.Issue("", RoleSubAdmin, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, token).Code)
}

func TestRequireRole(t *testing.T) {
	a := NewAuthenticator(config.AuthConfig{JWTSecret: "s3cret", Issuer: "dairy"}, nil)
	token, err := a.Issue("owner-1", "admin", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(newEngine(t, a), token).Code)
}
