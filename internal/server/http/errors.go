package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/logging"
	"github.com/gin-gonic/gin"
)

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrMalformedToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired),
		errors.Is(err, common.ErrRefreshTokenRevoked):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the client-facing text for err. Details of server-side
// failures never leave the process.
func messageFor(err error, status int) string {
	var ue *common.UserError
	if errors.As(err, &ue) {
		return ue.Message
	}
	if status >= http.StatusInternalServerError {
		return common.ErrorInternal.Error()
	}
	return err.Error()
}

// ErrorBoundary turns the last error attached to the context into the error
// envelope. It is the only place error responses are written.
func ErrorBoundary(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		}
		abortWithError(c, status, messageFor(err, status))
	}
}

// Recovery converts a panic into a 500 envelope.
func Recovery(log logging.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		log.Error(c.Request.Context(), "panic recovered", "path", c.Request.URL.Path, "panic", fmt.Sprint(rec))
		abortWithError(c, http.StatusInternalServerError, common.ErrorInternal.Error())
	})
}
