package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/event-registration/internal/domain"
	"github.com/prohmpiriya/event-registration/internal/token"
	"github.com/prohmpiriya/event-registration/pkg/response"
)

// Context keys for identity information
const (
	ContextKeyAssertion = "assertion"
	ContextKeyAccountID = "account_id"
	ContextKeyRole      = "role"
)

// TokenValidator turns a bearer token into an assertion
type TokenValidator interface {
	Validate(tokenString string) (*token.Assertion, error)
}

// JWTConfig holds configuration for JWT middleware
type JWTConfig struct {
	// Tokens validates bearer tokens
	Tokens TokenValidator
	// SkipPaths is a list of paths that should skip JWT validation
	SkipPaths []string
	// Optional lets requests without an Authorization header through
	// anonymously. A header that is present must still be valid.
	Optional bool
}

// JWTMiddleware validates the bearer token and stores the resulting assertion
func JWTMiddleware(config *JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, path := range config.SkipPaths {
			if c.Request.URL.Path == path {
				c.Next()
				return
			}
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if config.Optional {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Authorization header is required"))
			return
		}

		const bearerPrefix = "Bearer "
		if len(authHeader) < len(bearerPrefix) || !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Invalid authorization header format"))
			return
		}
		tokenString := strings.TrimSpace(authHeader[len(bearerPrefix):])
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Token is empty"))
			return
		}

		assertion, err := config.Tokens.Validate(tokenString)
		if err != nil {
			if errors.Is(err, domain.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(response.ErrCodeTokenExpired, "Access token has expired"))
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Invalid access token"))
			return
		}

		c.Set(ContextKeyAssertion, assertion)
		c.Set(ContextKeyAccountID, assertion.SubjectID)
		c.Set(ContextKeyRole, string(assertion.Role))

		c.Next()
	}
}

// RequireCapability rejects requests whose assertion lacks capability c.
// It is a coarse route filter; services still authorize each operation.
func RequireCapability(c domain.Capability) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		assertion, ok := GetAssertion(ctx)
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("User not authenticated"))
			return
		}

		override, scoped := c.OwnershipOverride()
		if assertion.Role.Has(c) || (scoped && assertion.Role.Has(override)) {
			ctx.Next()
			return
		}

		ctx.AbortWithStatusJSON(http.StatusForbidden, response.Forbidden("Insufficient permissions"))
	}
}

// GetAssertion extracts the validated assertion from gin context
func GetAssertion(c *gin.Context) (*token.Assertion, bool) {
	v, exists := c.Get(ContextKeyAssertion)
	if !exists {
		return nil, false
	}
	a, ok := v.(*token.Assertion)
	return a, ok && a != nil
}

// GetAccountID extracts the account ID from gin context
func GetAccountID(c *gin.Context) (string, bool) {
	id, exists := c.Get(ContextKeyAccountID)
	if !exists {
		return "", false
	}
	s, ok := id.(string)
	return s, ok
}

// GetRole extracts the role from gin context
func GetRole(c *gin.Context) (string, bool) {
	role, exists := c.Get(ContextKeyRole)
	if !exists {
		return "", false
	}
	r, ok := role.(string)
	return r, ok
}
