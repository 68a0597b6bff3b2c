// Package middleware holds the gin middlewares shared by every route group.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/config"
)

// RoleSubAdmin is the role of a branch owner.
const RoleSubAdmin = "subAdmin"

const (
	ownerKey = "ownerID"
	roleKey  = "role"
)

// Claims is the token payload issued to branch operators.
type Claims struct {
	OwnerID string `json:"ownerId"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies HS256 owner tokens.
type Authenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
	logger *zap.Logger
}

// NewAuthenticator builds an Authenticator from the auth settings.
func NewAuthenticator(cfg config.AuthConfig, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{secret: []byte(cfg.JWTSecret), issuer: cfg.Issuer, now: time.Now, logger: logger}
}

// Issue signs a token for the owner valid for ttl.
func (a *Authenticator) Issue(ownerID, role string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		OwnerID: ownerID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Parse verifies a raw token and returns its claims.
func (a *Authenticator) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.OwnerID == "" {
		return nil, errors.New("token has no owner")
	}
	return claims, nil
}

// Authenticate rejects requests without a valid bearer token and stores the
// owner id and role on the context.
func (a *Authenticator) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := a.Parse(raw)
		if err != nil {
			a.logger.Debug("token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ownerKey, claims.OwnerID)
		c.Set(roleKey, claims.Role)
		c.Next()
	}
}

// RequireRole rejects authenticated requests whose role is not listed.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !slices.Contains(roles, c.GetString(roleKey)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.Next()
	}
}

// OwnerID returns the authenticated owner of the request.
func OwnerID(c *gin.Context) string {
	return c.GetString(ownerKey)
}
