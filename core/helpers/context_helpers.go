package helpers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/resqnow/dispatch-core/core/entities"
)

// GetUserID extracts the authenticated caller's id from Gin context.
// Returns uuid.Nil if not found.
func GetUserID(c *gin.Context) uuid.UUID {
	if claims, exists := c.Get("claims"); exists {
		if claim, ok := claims.(entities.JWTClaim); ok {
			return claim.UserID
		}
	}
	return uuid.Nil
}

// GetUserEmail extracts the authenticated caller's email from Gin context.
func GetUserEmail(c *gin.Context) string {
	if email, exists := c.Get("user_email"); exists {
		if emailStr, ok := email.(string); ok {
			return emailStr
		}
	}
	return ""
}

// GetUserRole extracts the authenticated caller's role from Gin context.
func GetUserRole(c *gin.Context) entities.Role {
	if claims, exists := c.Get("claims"); exists {
		if claim, ok := claims.(entities.JWTClaim); ok {
			return claim.Role
		}
	}
	return ""
}

// IsAdmin reports whether the caller holds the admin role.
func IsAdmin(c *gin.Context) bool {
	return GetUserRole(c) == entities.RoleAdmin
}

// GetCurrentTimeString returns the current time as an ISO 8601 string.
func GetCurrentTimeString() string {
	return time.Now().Format(time.RFC3339)
}

// IntToString converts int to string.
func IntToString(n int) string {
	return fmt.Sprintf("%d", n)
}
