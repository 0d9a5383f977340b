package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/vmandke/vending-machine/internal/logging"
)

// Fatal replaces gin.Recovery: a panic inside a handler may have left the
// shared machine state half-mutated, so instead of recovering and serving the
// next request the process shuts down. Callers observe a dropped connection,
// not a structured error.
func Fatal(exit func()) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logging.From(c).Error("panic in handler, shutting machine down", "panic", r)
				exit()
			}
		}()
		c.Next()
	}
}
