package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HeaderAPIKey carries the caller's key on /api requests.
const HeaderAPIKey = "X-API-Key"

// APIKey gates a route group on the X-API-Key header. key is read once per
// request so tests and reloads can change it; an empty key disables the gate.
func APIKey(key func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		expect := key()
		if expect == "" {
			c.Next()
			return
		}
		if !constantTimeEqual(c.GetHeader(HeaderAPIKey), expect) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Next()
	}
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
