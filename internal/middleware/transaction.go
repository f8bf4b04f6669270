package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/itemhub/internal/pkg"
)

// errRollback marks a request that recorded an error and must not commit.
var errRollback = errors.New("request recorded an error")

// Transaction opens one database transaction per request and exposes it to
// repositories through the request context (see pkg.Conn).
//
// The response is buffered until the outcome is known:
//   - no error recorded: commit, then flush
//   - error recorded with c.Error: roll back, then flush the error envelope
//   - commit or begin failure: discard the buffer and render a 500 envelope
//   - panic: roll back and re-panic to Recovery
//
// The transaction context ignores client cancellation so storage work is not
// interrupted half way; the result is simply discarded.
func Transaction(db *gorm.DB, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		original := c.Writer
		buffered := newBufferedWriter(original)
		c.Writer = buffered
		defer func() { c.Writer = original }()

		reqCtx := c.Request.Context()
		ran := false
		err := pkg.WithTx(context.WithoutCancel(reqCtx), db, func(ctx context.Context) error {
			ran = true
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			if len(c.Errors) > 0 {
				return errRollback
			}
			return nil
		})
		c.Request = c.Request.WithContext(reqCtx)
		c.Writer = original

		if err == nil || errors.Is(err, errRollback) {
			buffered.flush()
			return
		}

		stage := "commit"
		if !ran {
			stage = "begin"
			c.Abort()
		}
		logger.LogAttrs(reqCtx, slog.LevelError, "transaction failed",
			slog.String("stage", stage),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, pkg.ErrorEnvelope(internalErrorMessage, http.StatusInternalServerError))
	}
}

// bufferedWriter holds status and body in memory until flush.
// Headers go straight to the underlying writer's header map.
type bufferedWriter struct {
	gin.ResponseWriter
	buf    bytes.Buffer
	status int
	size   int
}

func newBufferedWriter(w gin.ResponseWriter) *bufferedWriter {
	return &bufferedWriter{ResponseWriter: w, status: http.StatusOK, size: -1}
}

func (w *bufferedWriter) WriteHeader(code int) {
	if code > 0 && !w.Written() {
		w.status = code
	}
}

func (w *bufferedWriter) WriteHeaderNow() {
	if !w.Written() {
		w.size = 0
	}
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	w.WriteHeaderNow()
	n, err := w.buf.Write(b)
	w.size += n
	return n, err
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	w.WriteHeaderNow()
	n, err := w.buf.WriteString(s)
	w.size += n
	return n, err
}

func (w *bufferedWriter) Status() int   { return w.status }
func (w *bufferedWriter) Size() int     { return w.size }
func (w *bufferedWriter) Written() bool { return w.size != -1 }

// Flush is a no-op until the transaction outcome is known.
func (w *bufferedWriter) Flush() {}

func (w *bufferedWriter) flush() {
	w.ResponseWriter.WriteHeader(w.status)
	if w.buf.Len() == 0 {
		w.ResponseWriter.WriteHeaderNow()
		return
	}
	_, _ = w.ResponseWriter.Write(w.buf.Bytes())
}
