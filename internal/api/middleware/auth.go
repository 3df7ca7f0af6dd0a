package middleware

import (
	"net/http"
	"strings"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// ContextKeyUserID holds the key for user ID in Gin context.
	ContextKeyUserID = "userID"
	// ContextKeyUserEmail holds the key for the token email in Gin context.
	ContextKeyUserEmail = "userEmail"
	// ContextKeyIsAdmin holds the key for admin status in Gin context.
	ContextKeyIsAdmin = "isAdmin"

	// TokenCookie is the cookie the storefront keeps the session token in.
	TokenCookie = "token"
)

// tokenFromRequest reads the session token from the cookie, then from a Bearer header.
func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func abortAuth(c *gin.Context, status int, message, code string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message, "error": code})
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeyUserEmail, claims.Email)
	c.Set(ContextKeyIsAdmin, claims.IsAdmin())
}

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			abortAuth(c, http.StatusUnauthorized, "Authentication required", "unauthorized")
			return
		}

		claims, err := auth.ValidateJWT(tokenString, jwtSecret)
		if err != nil {
			zap.L().Debug("Rejected session token", zap.String("path", c.FullPath()), zap.Error(err))
			abortAuth(c, http.StatusUnauthorized, "Invalid or expired token", "unauthorized")
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware sets the user in context when a valid token is present
// and lets anonymous requests through.
func OptionalAuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := tokenFromRequest(c); tokenString != "" {
			if claims, err := auth.ValidateJWT(tokenString, jwtSecret); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// AdminMiddleware creates a Gin middleware to check for admin privileges.
// Assumes AuthMiddleware runs first.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextKeyIsAdmin) {
			abortAuth(c, http.StatusForbidden, "Administrator privileges required", "forbidden")
			return
		}
		c.Next()
	}
}
