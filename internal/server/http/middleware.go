package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/logging"
	"github.com/dmitrijs2005/vidhub/internal/server/models"
	"github.com/dmitrijs2005/vidhub/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type handlerFunc func(c *gin.Context) error

// securedHandlerFunc receives the account resolved from the access token.
type securedHandlerFunc func(c *gin.Context, a *models.Account) error

func handle(h handlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h(c); err != nil {
			_ = c.Error(err)
		}
	}
}

// Verifier authenticates requests and hands the account to secured handlers.
type Verifier struct {
	sessions *services.SessionService
}

func NewVerifier(sessions *services.SessionService) *Verifier {
	return &Verifier{sessions: sessions}
}

// Secured wraps h so that it only runs for requests with a valid access token.
func (v *Verifier) Secured(h securedHandlerFunc) gin.HandlerFunc {
	return handle(func(c *gin.Context) error {
		a, err := v.sessions.Authenticate(c.Request.Context(), accessToken(c))
		if err != nil {
			return err
		}
		return h(c, a)
	})
}

// accessToken reads the access token cookie, falling back to a bearer header.
func accessToken(c *gin.Context) string {
	if tok, err := c.Cookie(common.AccessTokenCookieName); err == nil && tok != "" {
		return tok
	}
	header := c.GetHeader(common.AuthorizationHeaderName)
	if len(header) > len(common.BearerPrefix) && strings.EqualFold(header[:len(common.BearerPrefix)], common.BearerPrefix) {
		return strings.TrimSpace(header[len(common.BearerPrefix):])
	}
	return ""
}

// RequestLogger logs one line per request with latency and request ID.
func RequestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, requestID)

		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"request_id", requestID,
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		}

		ctx := c.Request.Context()
		switch {
		case status >= http.StatusInternalServerError:
			log.Error(ctx, "http_request", args...)
		case status >= http.StatusBadRequest:
			log.Warn(ctx, "http_request", args...)
		default:
			log.Info(ctx, "http_request", args...)
		}
	}
}

// LimitBody caps the request body at n bytes.
func LimitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
