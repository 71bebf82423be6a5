package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hellyrj/smart-parking-system/pkg/response"
)

const (
	// UserIDHeader carries the caller identity when an upstream gateway has already authenticated it
	UserIDHeader = "X-User-ID"
	// ContextKeyUserID is the gin context key holding the caller identity
	ContextKeyUserID = "user_id"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// AuthConfig configures caller identification
type AuthConfig struct {
	// JWTSecret verifies HS256 bearer tokens. Empty disables token auth.
	JWTSecret string
	// Issuer, when set, must match the token iss claim
	Issuer string
	// TrustHeader accepts X-User-ID as identity when no bearer token is sent
	TrustHeader bool
}

// Auth resolves the caller's user id and stores it under ContextKeyUserID.
// Requests without a resolvable identity get 401.
func Auth(cfg *AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header != "" && cfg.JWTSecret != "" {
			userID, err := ParseToken(header, cfg.JWTSecret, cfg.Issuer)
			if err != nil {
				response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
				return
			}
			c.Set(ContextKeyUserID, userID)
			c.Next()
			return
		}

		if cfg.TrustHeader {
			if userID := strings.TrimSpace(c.GetHeader(UserIDHeader)); userID != "" {
				c.Set(ContextKeyUserID, userID)
				c.Next()
				return
			}
		}

		response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "caller identity required")
	}
}

// ParseToken validates a "Bearer <jwt>" value and returns the user id claim.
// user_id is preferred and sub is the fallback.
func ParseToken(header, secret, issuer string) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	if id, ok := claims["user_id"].(string); ok && id != "" {
		return id, nil
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// GetUserID returns the authenticated caller id
func GetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(ContextKeyUserID)
	return id, id != ""
}
