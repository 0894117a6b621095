package http

import (
	"net/http"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/server/models"
	"github.com/dmitrijs2005/vidhub/internal/server/services"
	"github.com/gin-gonic/gin"
)

const (
	avatarField     = "avatar"
	coverImageField = "coverImage"
)

// Handler serves the account routes.
type Handler struct {
	accounts *services.AccountService
	sessions *services.SessionService
	spool    *Spool
	cookies  CookieSettings
}

func NewHandler(accounts *services.AccountService, sessions *services.SessionService, spool *Spool, cookies CookieSettings) *Handler {
	return &Handler{accounts: accounts, sessions: sessions, spool: spool, cookies: cookies}
}

type registerRequest struct {
	FullName string `form:"fullname" json:"fullname"`
	Email    string `form:"email" json:"email"`
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

type loginRequest struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

type refreshRequest struct {
	RefreshToken string `form:"refreshToken" json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `form:"oldPassword" json:"oldPassword"`
	NewPassword string `form:"newPassword" json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `form:"fullname" json:"fullname"`
	Email    string `form:"email" json:"email"`
}

type sessionResponse struct {
	User         *models.PublicAccount `json:"user,omitempty"`
	AccessToken  string                `json:"accessToken"`
	RefreshToken string                `json:"refreshToken"`
}

func bind(c *gin.Context, dst any) error {
	if c.Request.ContentLength == 0 && c.ContentType() == "" {
		return nil
	}
	if err := c.ShouldBind(dst); err != nil {
		return bodyError(err, "invalid request body")
	}
	return nil
}

func (h *Handler) Register(c *gin.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	files, err := h.spool.Collect(c, avatarField, coverImageField)
	if err != nil {
		return err
	}

	a, err := h.accounts.Register(c.Request.Context(), services.RegisterInput{
		FullName:       req.FullName,
		Email:          req.Email,
		Username:       req.Username,
		Password:       req.Password,
		AvatarPath:     files[avatarField],
		CoverImagePath: files[coverImageField],
	})
	if err != nil {
		return err
	}
	respond(c, http.StatusCreated, a.Public(), "user registered successfully")
	return nil
}

func (h *Handler) Login(c *gin.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.accounts.Login(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return err
	}

	h.cookies.setTokens(c, res.Tokens)
	respond(c, http.StatusOK, sessionResponse{
		User:         res.Account.Public(),
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, "user logged in successfully")
	return nil
}

func (h *Handler) Logout(c *gin.Context, a *models.Account) error {
	if err := h.accounts.Logout(c.Request.Context(), a); err != nil {
		return err
	}
	h.cookies.clearTokens(c)
	respond(c, http.StatusOK, struct{}{}, "user logged out")
	return nil
}

func (h *Handler) RefreshToken(c *gin.Context) error {
	token, _ := c.Cookie(common.RefreshTokenCookieName)
	if token == "" {
		var req refreshRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		token = req.RefreshToken
	}

	pair, err := h.sessions.Rotate(c.Request.Context(), token)
	if err != nil {
		return err
	}

	h.cookies.setTokens(c, pair)
	respond(c, http.StatusOK, sessionResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "access token refreshed")
	return nil
}

func (h *Handler) ChangePassword(c *gin.Context, a *models.Account) error {
	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.accounts.ChangePassword(c.Request.Context(), a, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	respond(c, http.StatusOK, struct{}{}, "password changed successfully")
	return nil
}

func (h *Handler) CurrentUser(c *gin.Context, a *models.Account) error {
	respond(c, http.StatusOK, h.accounts.Current(c.Request.Context(), a).Public(), "current user fetched successfully")
	return nil
}

func (h *Handler) UpdateAccount(c *gin.Context, a *models.Account) error {
	var req updateAccountRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	updated, err := h.accounts.UpdateDetails(c.Request.Context(), a, req.FullName, req.Email)
	if err != nil {
		return err
	}
	respond(c, http.StatusOK, updated.Public(), "account details updated successfully")
	return nil
}

func (h *Handler) UpdateAvatar(c *gin.Context, a *models.Account) error {
	files, err := h.spool.Collect(c, avatarField)
	if err != nil {
		return err
	}
	updated, err := h.accounts.UpdateAvatar(c.Request.Context(), a, files[avatarField])
	if err != nil {
		return err
	}
	respond(c, http.StatusOK, updated.Public(), "avatar updated successfully")
	return nil
}

func (h *Handler) UpdateCoverImage(c *gin.Context, a *models.Account) error {
	files, err := h.spool.Collect(c, coverImageField)
	if err != nil {
		return err
	}
	updated, err := h.accounts.UpdateCoverImage(c.Request.Context(), a, files[coverImageField])
	if err != nil {
		return err
	}
	respond(c, http.StatusOK, updated.Public(), "cover image updated successfully")
	return nil
}

func Health(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"status": "ok"}, "healthy")
}
