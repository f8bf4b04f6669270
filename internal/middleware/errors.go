package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/itemhub/internal/domain"
	"github.com/simp-lee/itemhub/internal/pkg"
)

const internalErrorMessage = "Internal server error"

// ErrorHandler renders the last error recorded with c.Error as an envelope.
//
// *domain.AppError values map to their HTTP status. Any 5xx, and any error
// that is not an AppError, is logged with the full error chain and rendered
// as a fixed 500 message so internal details never reach the client.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		RenderError(c, logger, c.Errors.Last().Err)
	}
}

// RenderError writes the envelope for err.
func RenderError(c *gin.Context, logger *slog.Logger, err error) {
	status := domain.HTTPStatusCode(err)

	var appErr *domain.AppError
	if status >= http.StatusInternalServerError || !errors.As(err, &appErr) {
		logger.LogAttrs(c.Request.Context(), slog.LevelError, "request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, pkg.ErrorEnvelope(internalErrorMessage, http.StatusInternalServerError))
		return
	}

	var opts []pkg.Option
	if appErr.Details != nil {
		opts = append(opts, pkg.WithData(appErr.Details))
	}
	c.JSON(status, pkg.ErrorEnvelope(appErr.Message, status, opts...))
}

// NotFound renders the 404 envelope for unknown routes.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, pkg.ErrorEnvelope(domain.ErrNotFound.Message, http.StatusNotFound))
	}
}

// MethodNotAllowed renders the 405 envelope for known paths with the wrong method.
func MethodNotAllowed() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, pkg.ErrorEnvelope("Method not allowed", http.StatusMethodNotAllowed))
	}
}
