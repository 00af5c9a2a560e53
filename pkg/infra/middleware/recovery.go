package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/catalog-chat/pkg/errors"
)

// Recovery returns a middleware that recovers from panics. The full stack
// is always logged; it is returned to the client only when
// enableStackTrace is set.
func Recovery(enableStackTrace bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()

				logger.Errorw("panic recovered",
					"panic", r,
					"stack_trace", string(stack),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"request_id", GetRequestID(c.Request.Context()),
				)

				msg := fmt.Sprintf("panic: %v", r)
				if enableStackTrace {
					msg = fmt.Sprintf("panic: %v\n%s", r, stack)
				}
				c.AbortWithStatusJSON(errors.ErrPanic.HTTPStatus(), gin.H{
					"code":    errors.ErrPanic.Code,
					"message": msg,
				})
			}
		}()
		c.Next()
	}
}
