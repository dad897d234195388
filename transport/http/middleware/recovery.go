package middleware

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/authsession/log"
)

// Recovery turns a handler panic into a 500 and logs it.
func Recovery(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			l := logger
			if l == nil {
				l = log.G()
			}
			if isBrokenPipe(err) {
				l.Warn().Str("error", fmt.Sprintf("%v", err)).Str("path", c.Request.URL.Path).Msg("broken pipe")
				_ = c.Error(fmt.Errorf("%v", err))
				c.Abort()
				return
			}
			l.Error().
				Str("error", fmt.Sprintf("%v", err)).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")
			c.AbortWithStatus(http.StatusInternalServerError)
		}()
		c.Next()
	}
}

func isBrokenPipe(err any) bool {
	if ne, ok := err.(*net.OpError); ok {
		if se, ok := ne.Err.(*os.SyscallError); ok {
			s := strings.ToLower(se.Error())
			return strings.Contains(s, "broken pipe") || strings.Contains(s, "connection reset by peer")
		}
	}
	return false
}
