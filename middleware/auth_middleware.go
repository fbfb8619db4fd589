package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"livewave/api/utils"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthRequired.
const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
	ServiceKey   = "service"
)

// AuthRequired accepts a JWT from the jwt_token cookie or a Bearer header.
// When serviceKey is non-empty, a matching X-API-KEY header is accepted
// instead; such requests carry no user identity.
func AuthRequired(tokens *utils.TokenManager, serviceKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if serviceKey != "" {
			if key := c.GetHeader("X-API-KEY"); key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(serviceKey)) == 1 {
				c.Set(ServiceKey, true)
				c.Next()
				return
			}
		}

		tokenString, ok := bearerOrCookie(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
			return
		}

		claims, err := tokens.ValidateJWT(tokenString)
		if err != nil {
			log.Printf("AuthRequired: Invalid JWT token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired token"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Next()
	}
}

// bearerOrCookie returns the jwt_token cookie when the request has one and
// only otherwise an "Authorization: Bearer <token>" header.
func bearerOrCookie(c *gin.Context) (string, bool) {
	if tok, err := c.Cookie("jwt_token"); err == nil && tok != "" {
		return tok, true
	}
	const prefix = "Bearer "
	h := c.GetHeader("Authorization")
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}
