package http

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/server/services"
	"github.com/gin-gonic/gin"
)

// CookieSettings controls the token cookies written on login and refresh.
type CookieSettings struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (s CookieSettings) set(c *gin.Context, name, value string, ttl time.Duration) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s CookieSettings) setTokens(c *gin.Context, pair *services.TokenPair) {
	s.set(c, common.AccessTokenCookieName, pair.AccessToken, s.AccessTTL)
	s.set(c, common.RefreshTokenCookieName, pair.RefreshToken, s.RefreshTTL)
}

func (s CookieSettings) clearTokens(c *gin.Context) {
	for _, name := range []string{common.AccessTokenCookieName, common.RefreshTokenCookieName} {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   s.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
