package middleware

import (
	"crypto/hmac"
	"net/http"

	"github.com/farandiarsa/hematku/internal/gateway"
	"github.com/farandiarsa/hematku/internal/helpers"
	"github.com/gin-gonic/gin"
)

func GatewayMiddleware(gw gateway.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("gateway", gw)
		c.Next()
	}
}

func GetGateway(c *gin.Context) gateway.Gateway {
	gw, exists := c.Get("gateway")
	if !exists {
		return nil
	}
	return gw.(gateway.Gateway)
}

// XenditCallbackMiddleware authenticates inbound webhook deliveries with the
// shared callback token. The comparison is constant-time.
func XenditCallbackMiddleware(callbackToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("x-callback-token")
		if callbackToken == "" || !hmac.Equal([]byte(token), []byte(callbackToken)) {
			GetLogger(c).Warnw("rejected webhook with bad callback token",
				"remote_addr", c.ClientIP(),
				"path", c.Request.URL.Path,
			)
			helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid callback token.")
			c.Abort()
			return
		}
		c.Next()
	}
}
