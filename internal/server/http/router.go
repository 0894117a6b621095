// Package http exposes the account API over HTTP using gin.
package http

import (
	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/logging"
	"github.com/gin-gonic/gin"
)

// NewRouter wires gin routes and middleware.
func NewRouter(h *Handler, v *Verifier, maxUploadBytes int64, log logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(log))
	r.Use(Recovery(log))
	r.Use(ErrorBoundary(log))

	r.GET("/healthz", Health)

	users := r.Group("/api/v1/users")
	{
		users.POST("/register", LimitBody(maxUploadBytes), handle(h.Register))
		users.POST("/login", handle(h.Login))
		users.POST("/refresh-token", handle(h.RefreshToken))

		users.POST("/logout", v.Secured(h.Logout))
		users.POST("/change-password", v.Secured(h.ChangePassword))
		users.GET("/current-user", v.Secured(h.CurrentUser))
		users.PATCH("/update-account", v.Secured(h.UpdateAccount))
		users.PATCH("/avatar", LimitBody(maxUploadBytes), v.Secured(h.UpdateAvatar))
		users.PATCH("/cover-image", LimitBody(maxUploadBytes), v.Secured(h.UpdateCoverImage))
	}

	r.NoRoute(func(c *gin.Context) {
		_ = c.Error(common.NewUserError(common.ErrorNotFound, "route not found"))
	})

	return r
}
