package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextUserKey is the gin context key holding the authenticated user id
const ContextUserKey = "user_id"

// RequireAuth rejects requests without a valid bearer token
func RequireAuth(tokens *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := authenticate(c, tokens)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication credentials were not provided or are invalid",
			})
			return
		}
		c.Set(ContextUserKey, userID)
		c.Next()
	}
}

// OptionalAuth sets the user id when a valid token is present and never rejects
func OptionalAuth(tokens *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, ok := authenticate(c, tokens); ok {
			c.Set(ContextUserKey, userID)
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, or uuid.Nil for anonymous requests
func UserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ContextUserKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func authenticate(c *gin.Context, tokens *TokenManager) (uuid.UUID, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		// browsers cannot set headers on websocket upgrades
		if q := c.Query("access_token"); q != "" {
			header = "Bearer " + q
		}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return uuid.Nil, false
	}

	userID, err := tokens.Parse(header, PurposeAccess)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}
