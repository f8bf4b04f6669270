package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/itemhub/internal/pkg"
)

// Recovery returns a gin middleware that recovers from panics, logs the value
// with a stack trace, and renders the generic 500 envelope:
//
//	{"success": false, "response_code": 500, "message": "Internal server error"}
//
// It replaces gin.Recovery() so panics share the error dispatcher's contract.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}

				logger.ErrorContext(c.Request.Context(), "panic recovered",
					slog.Any("panic", err),
					slog.String("method", c.Request.Method),
					slog.String("path", c.Request.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)

				c.Abort()
				if !c.Writer.Written() {
					c.JSON(http.StatusInternalServerError,
						pkg.ErrorEnvelope(internalErrorMessage, http.StatusInternalServerError))
				}
			}
		}()
		c.Next()
	}
}
