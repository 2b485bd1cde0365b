package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/access"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

const (
	userIDKey = "user_id"
	claimsKey = "claims"
)

// TokenValidator is an interface for validating auth tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
}

// AuthMiddleware rejects requests without a valid token.
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return authenticate(validator, true)
}

// OptionalAuth lets anonymous requests through but still rejects a token
// that is present and invalid.
func OptionalAuth(validator TokenValidator) gin.HandlerFunc {
	return authenticate(validator, false)
}

func authenticate(validator TokenValidator, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if required {
				abort(c, service.ErrUnauthenticated)
				return
			}
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		token = strings.TrimSpace(token)
		if !ok || token == "" || (!strings.EqualFold(scheme, "Bearer") && !strings.EqualFold(scheme, "Token")) {
			abort(c, service.ErrInvalidToken)
			return
		}

		claims, err := validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			abort(c, err)
			return
		}

		// Store user info in context
		c.Set(userIDKey, claims.UserID)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Actor returns the authenticated user of the request, or the anonymous
// actor.
func Actor(c *gin.Context) access.Actor {
	claims, ok := Claims(c)
	if !ok {
		return access.Actor{}
	}
	return access.Actor{UserID: claims.UserID, IsStaff: claims.IsStaff}
}

// Claims returns the token claims stored by the auth middleware.
func Claims(c *gin.Context) (*types.TokenClaims, bool) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*types.TokenClaims)
	return claims, ok
}

// IsAuthError reports whether err should be answered with 401.
func IsAuthError(err error) bool {
	return errors.Is(err, service.ErrUnauthenticated) || errors.Is(err, service.ErrInvalidToken)
}
