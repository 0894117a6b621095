package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/filex"
	"github.com/dmitrijs2005/vidhub/internal/logging"
	"github.com/dmitrijs2005/vidhub/internal/server/auth"
	"github.com/dmitrijs2005/vidhub/internal/server/media"
	"github.com/dmitrijs2005/vidhub/internal/server/models"
	"github.com/dmitrijs2005/vidhub/internal/server/repositories/accounts"
)

// RegisterInput carries the registration form. AvatarPath and CoverImagePath
// point at spooled local files; the service owns and removes them.
type RegisterInput struct {
	FullName       string
	Email          string
	Username       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Account *models.Account
	Tokens  *TokenPair
}

// AccountService implements registration, login and profile changes.
type AccountService struct {
	accounts accounts.Repository
	sessions *SessionService
	uploader media.Uploader
	log      logging.Logger
}

func NewAccountService(repo accounts.Repository, sessions *SessionService, uploader media.Uploader, log logging.Logger) *AccountService {
	if log == nil {
		log = logging.Nop{}
	}
	return &AccountService{accounts: repo, sessions: sessions, uploader: uploader, log: log}
}

func validation(msg string) error { return common.NewUserError(common.ErrValidation, msg) }

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register creates an account. The avatar is mandatory; a cover image that
// fails to upload is dropped.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	defer s.discard(ctx, in.AvatarPath, in.CoverImagePath)

	fullName := strings.TrimSpace(in.FullName)
	email := normalize(in.Email)
	username := normalize(in.Username)
	if fullName == "" || email == "" || username == "" || strings.TrimSpace(in.Password) == "" {
		return nil, validation("all fields are required")
	}

	switch _, err := s.accounts.FindByUsernameOrEmail(ctx, username, email); {
	case err == nil:
		return nil, common.NewUserError(common.ErrConflict, "user with email or username already exists")
	case !errors.Is(err, common.ErrorNotFound):
		s.log.Error(ctx, "lookup account", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	if in.AvatarPath == "" {
		return nil, validation("avatar is required")
	}
	avatar, err := s.uploader.Upload(ctx, in.AvatarPath)
	if err != nil {
		s.log.Warn(ctx, "avatar upload failed", "error", err)
		return nil, validation("avatar file is required")
	}

	var coverImage string
	if in.CoverImagePath != "" {
		cover, err := s.uploader.Upload(ctx, in.CoverImagePath)
		if err != nil {
			s.log.Warn(ctx, "cover image upload failed", "error", err)
		} else {
			coverImage = cover.URL
		}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	created, err := s.accounts.Create(ctx, &models.Account{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Avatar:       avatar.URL,
		CoverImage:   coverImage,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.NewUserError(common.ErrConflict, "user with email or username already exists")
		}
		s.log.Error(ctx, "create account", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	s.log.Info(ctx, "account registered", "account", created.ID, "username", created.Username)
	return created.Sanitized(), nil
}

// Login checks a password against the account named by username or email
// and issues a new session.
func (s *AccountService) Login(ctx context.Context, username, email, password string) (*LoginResult, error) {
	username, email = normalize(username), normalize(email)
	if username == "" && email == "" {
		return nil, validation("username or email is required")
	}
	if password == "" {
		return nil, validation("password is required")
	}

	a, err := s.accounts.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewUserError(common.ErrorNotFound, "user does not exist")
		}
		s.log.Error(ctx, "lookup account", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	ok, err := auth.CheckPassword(a.PasswordHash, password)
	if err != nil {
		s.log.Error(ctx, "compare password", "account", a.ID, "error", err)
		return nil, common.ErrorInternal
	}
	if !ok {
		return nil, common.NewUserError(common.ErrorUnauthorized, "invalid user credentials")
	}

	tokens, err := s.sessions.Issue(ctx, a)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Account: a.Sanitized(), Tokens: tokens}, nil
}

// Logout revokes the account's refresh token.
func (s *AccountService) Logout(ctx context.Context, a *models.Account) error {
	return s.sessions.Revoke(ctx, a.ID)
}

// SetPassword hashes plain and stores it. This is the only place a password
// hash is written after registration.
func (s *AccountService) SetPassword(ctx context.Context, accountID, plain string) error {
	hash, err := auth.HashPassword(plain)
	if err != nil {
		return common.ErrorInternal
	}
	if err := s.accounts.SetPasswordHash(ctx, accountID, hash); err != nil {
		return s.storeError(ctx, "store password hash", accountID, err)
	}
	return nil
}

func (s *AccountService) ChangePassword(ctx context.Context, a *models.Account, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return validation("old and new password are required")
	}

	stored, err := s.accounts.FindByID(ctx, a.ID)
	if err != nil {
		return s.storeError(ctx, "load account", a.ID, err)
	}

	ok, err := auth.CheckPassword(stored.PasswordHash, oldPassword)
	if err != nil {
		s.log.Error(ctx, "compare password", "account", a.ID, "error", err)
		return common.ErrorInternal
	}
	if !ok {
		return validation("invalid old password")
	}
	return s.SetPassword(ctx, a.ID, newPassword)
}

func (s *AccountService) UpdateDetails(ctx context.Context, a *models.Account, fullName, email string) (*models.Account, error) {
	fullName, email = strings.TrimSpace(fullName), normalize(email)
	if fullName == "" || email == "" {
		return nil, validation("all fields are required")
	}

	updated, err := s.accounts.UpdateDetails(ctx, a.ID, fullName, email)
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.NewUserError(common.ErrConflict, "email is already in use")
		}
		return nil, s.storeError(ctx, "update account details", a.ID, err)
	}
	return updated.Sanitized(), nil
}

func (s *AccountService) UpdateAvatar(ctx context.Context, a *models.Account, localPath string) (*models.Account, error) {
	if localPath == "" {
		return nil, validation("avatar file is missing")
	}
	asset, err := s.uploader.Upload(ctx, localPath)
	if err != nil {
		s.log.Error(ctx, "avatar upload failed", "account", a.ID, "error", err)
		return nil, common.NewUserError(common.ErrorInternal, "error while uploading avatar")
	}

	updated, err := s.accounts.UpdateAvatar(ctx, a.ID, asset.URL)
	if err != nil {
		return nil, s.storeError(ctx, "update avatar", a.ID, err)
	}
	return updated.Sanitized(), nil
}

func (s *AccountService) UpdateCoverImage(ctx context.Context, a *models.Account, localPath string) (*models.Account, error) {
	if localPath == "" {
		return nil, validation("cover image file is missing")
	}
	asset, err := s.uploader.Upload(ctx, localPath)
	if err != nil {
		s.log.Error(ctx, "cover image upload failed", "account", a.ID, "error", err)
		return nil, common.NewUserError(common.ErrorInternal, "error while uploading cover image")
	}

	updated, err := s.accounts.UpdateCoverImage(ctx, a.ID, asset.URL)
	if err != nil {
		return nil, s.storeError(ctx, "update cover image", a.ID, err)
	}
	return updated.Sanitized(), nil
}

// Current returns the authenticated account as resolved by the verifier.
func (s *AccountService) Current(_ context.Context, a *models.Account) *models.Account {
	return a.Sanitized()
}

// storeError maps a repository failure for an authenticated account. An
// account that vanished mid-session is treated as unauthenticated.
func (s *AccountService) storeError(ctx context.Context, op, accountID string, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return errInvalidAccessToken
	}
	s.log.Error(ctx, op, "account", accountID, "error", err)
	return common.ErrorInternal
}

// discard removes spooled uploads the uploader did not consume.
func (s *AccountService) discard(ctx context.Context, paths ...string) {
	for _, p := range paths {
		if err := filex.RemoveQuietly(p); err != nil {
			s.log.Warn(ctx, "temp file cleanup failed", "path", p, "error", err)
		}
	}
}
