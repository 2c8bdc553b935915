package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/trustnet/core/internal/pkg/identity"
	"github.com/trustnet/core/internal/pkg/response"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeyEmail  = "user_email"
)

// Auth returns a middleware that enforces bearer authentication via the
// identity provider's key set. Verification happens before any handler
// mutation runs.
func Auth(verifier *identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, err := verifier.Verify(c.Request.Context(), extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyUserID, ident.UserID)
		c.Set(ContextKeyEmail, ident.Email)
		c.Next()
	}
}

// OptionalAuth sets the identity if a valid token is present, but does
// not block the request.
func OptionalAuth(verifier *identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ident, err := verifier.Verify(c.Request.Context(), extractToken(c)); err == nil && ident.UserID != "" {
			c.Set(ContextKeyUserID, ident.UserID)
			c.Set(ContextKeyEmail, ident.Email)
		}
		c.Next()
	}
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUserID)
	id, _ := v.(string)
	return id
}

// CurrentEmail extracts the authenticated email claim from context.
func CurrentEmail(c *gin.Context) string {
	v, _ := c.Get(ContextKeyEmail)
	email, _ := v.(string)
	return email
}

// IsAuthenticated returns true if the request carries a valid token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUserID(c) != ""
}

func extractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return identity.NormalizeToken(auth)
	}
	return identity.NormalizeToken(c.Query("token"))
}
