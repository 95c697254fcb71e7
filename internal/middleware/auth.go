package middleware

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/01moynul/foodhub-golang/internal/auth"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the Bearer token and puts userID and userRole on
// the context. When db is set it also refuses accounts that were deactivated
// after the token was issued, and takes the role from the users row.
func AuthMiddleware(secret []byte, db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Get Authorization Header ---
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format (must be Bearer)"})
			return
		}

		// 2. --- Validate Token ---
		claims, err := auth.ValidateToken(secret, parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		// 3. --- Check the account is still active ---
		role := claims.Role
		if db != nil {
			var deactivated bool
			err := db.QueryRowContext(c.Request.Context(),
				"SELECT role, is_deactivated FROM users WHERE id = ?", claims.UserID).Scan(&role, &deactivated)
			if errors.Is(err, sql.ErrNoRows) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
				return
			}
			if err != nil {
				log.Printf("auth: role lookup for user %d failed: %v", claims.UserID, err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error checking role"})
				return
			}
			if deactivated {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "This account has been deactivated"})
				return
			}
		}

		// 4. --- Success ---
		c.Set("userID", claims.UserID)
		c.Set("userRole", role)
		c.Next()
	}
}

// RoleMiddleware must run after AuthMiddleware. It lets the request through
// only when userRole is one of roles.
func RoleMiddleware(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, exists := c.Get("userRole")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User role not found in context (AuthMiddleware must run first)"})
			return
		}
		if _, ok := allowed[role.(string)]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied: " + strings.Join(roles, " or ") + " role required"})
			return
		}
		c.Next()
	}
}
