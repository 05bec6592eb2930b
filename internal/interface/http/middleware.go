package httpservice

import (
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	// callerHeader carries the identity of whoever invokes a round
	// operation. Authenticating it is up to the gateway in front.
	callerHeader = "X-Lottery-Caller"
	callerKey    = "caller"
)

func withCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := c.GetHeader(callerHeader)
		if !common.IsHexAddress(caller) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing or invalid " + callerHeader + " header",
			})
			return
		}
		c.Set(callerKey, common.HexToAddress(caller))
		c.Next()
	}
}

func callerFrom(c *gin.Context) common.Address {
	return c.MustGet(callerKey).(common.Address)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
		})
		if len(c.Errors) > 0 {
			entry.Debug(c.Errors.String())
			return
		}
		entry.Debug("request served")
	}
}
