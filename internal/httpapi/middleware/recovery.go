package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/profile-assistant/internal/common"
)

// Recovery turns a panic into the 50000 envelope instead of an empty 500.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Recovery] panic path=%s request_id=%s err=%v\n%s",
					c.Request.URL.Path, c.GetString(RequestIDKey), r, debug.Stack())
				c.Abort()
				if c.Writer.Written() {
					return
				}
				common.Fail(c, http.StatusInternalServerError, 50000, "internal error")
			}
		}()
		c.Next()
	}
}
