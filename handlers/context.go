package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"livewave/api/middleware"
)

// currentUserID returns the authenticated user's ID, writing a 401 when the
// request carries none (e.g. service-key requests).
func currentUserID(c *gin.Context) (int, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if ok {
		if id, ok := v.(int); ok {
			return id, true
		}
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: user session required"})
	return 0, false
}
