package middleware

import (
	"net/http"
	"strings"

	"github.com/Conceptual-Machines/midigen-api/internal/apperr"
	"github.com/Conceptual-Machines/midigen-api/internal/identity"
	"github.com/gin-gonic/gin"
)

const (
	bearerPrefix = "Bearer"

	contextUserID    = "user_id"
	contextUserEmail = "user_email"
)

// TokenValidator is satisfied by *identity.Provider
type TokenValidator interface {
	ValidateToken(token string) (*identity.Claims, error)
}

// JWTAuth validates the bearer token and attaches the caller's id to the context
func JWTAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			abortUnauthorized(c, "Authorization required")
			return
		}

		claims, err := validator.ValidateToken(tokenString)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(contextUserID, claims.UserID)
		c.Set(contextUserEmail, claims.Email)

		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) == 2 && strings.EqualFold(parts[0], bearerPrefix) {
		return parts[1]
	}
	return ""
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"kind":    apperr.Unauthorized,
			"message": message,
		},
		"request_id": c.GetString("request_id"),
	})
}

// GetCurrentUserID retrieves the authenticated user id from context
func GetCurrentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(contextUserID)
	return userID, userID != ""
}

// GetCurrentUserEmail retrieves the authenticated user's email from context
func GetCurrentUserEmail(c *gin.Context) string {
	return c.GetString(contextUserEmail)
}
