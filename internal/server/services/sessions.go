// Package services contains server-side business logic: the session
// lifecycle (issue, authenticate, rotate, revoke) and account management.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/logging"
	"github.com/dmitrijs2005/vidhub/internal/server/auth"
	"github.com/dmitrijs2005/vidhub/internal/server/config"
	"github.com/dmitrijs2005/vidhub/internal/server/models"
	"github.com/dmitrijs2005/vidhub/internal/server/repositories/accounts"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

var (
	errUnauthorizedRequest = common.NewUserError(common.ErrorUnauthorized, "unauthorized request")
	errInvalidAccessToken  = common.NewUserError(common.ErrorUnauthorized, "invalid access token")
	errInvalidRefreshToken = common.NewUserError(common.ErrorUnauthorized, "invalid refresh token")
	errRefreshTokenExpired = common.NewUserError(common.ErrRefreshTokenExpired, "refresh token expired")
	errRefreshTokenUsed    = common.NewUserError(common.ErrRefreshTokenRevoked, "refresh token is expired or used")
)

// SessionService issues token pairs and keeps the account's stored refresh
// token, the only revocation state, in sync with them.
type SessionService struct {
	accounts      accounts.Repository
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	log           logging.Logger
}

func NewSessionService(repo accounts.Repository, cfg *config.Config, log logging.Logger) *SessionService {
	if log == nil {
		log = logging.Nop{}
	}
	return &SessionService{
		accounts:      repo,
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTokenValidityDuration,
		refreshTTL:    cfg.RefreshTokenValidityDuration,
		log:           log,
	}
}

// Issue mints a pair for a and stores its refresh token, replacing any
// previous one. Only the refresh token field is written.
func (s *SessionService) Issue(ctx context.Context, a *models.Account) (*TokenPair, error) {
	pair, err := s.mint(a)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.SetRefreshToken(ctx, a.ID, pair.RefreshToken); err != nil {
		s.log.Error(ctx, "store refresh token", "account", a.ID, "error", err)
		return nil, common.ErrorInternal
	}
	return pair, nil
}

// Authenticate resolves an access token to its account, stripped of
// credentials. Every client-side failure is common.ErrorUnauthorized.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (*models.Account, error) {
	if accessToken == "" {
		return nil, errUnauthorizedRequest
	}

	claims, err := auth.ParseAccessToken(accessToken, s.accessSecret)
	if err != nil {
		s.log.Debug(ctx, "access token rejected", "reason", err)
		return nil, errInvalidAccessToken
	}

	a, err := s.accounts.FindByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, errInvalidAccessToken
		}
		s.log.Error(ctx, "load account", "account", claims.AccountID, "error", err)
		return nil, common.ErrorInternal
	}
	return a.Sanitized(), nil
}

// Rotate exchanges a refresh token for a new pair. The checks run in a fixed
// order: presence, signature and expiry, account existence, equality with the
// stored token. The final swap is a compare-and-swap in the store, so a token
// can be rotated at most once even under concurrent calls.
func (s *SessionService) Rotate(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, errUnauthorizedRequest
	}

	claims, err := auth.ParseRefreshToken(refreshToken, s.refreshSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, errRefreshTokenExpired
		}
		s.log.Debug(ctx, "refresh token rejected", "reason", err)
		return nil, errInvalidRefreshToken
	}

	a, err := s.accounts.FindByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, errInvalidRefreshToken
		}
		s.log.Error(ctx, "load account", "account", claims.AccountID, "error", err)
		return nil, common.ErrorInternal
	}

	if subtle.ConstantTimeCompare([]byte(a.RefreshToken), []byte(refreshToken)) != 1 {
		return nil, errRefreshTokenUsed
	}

	pair, err := s.mint(a)
	if err != nil {
		return nil, err
	}

	err = s.accounts.RotateRefreshToken(ctx, a.ID, refreshToken, pair.RefreshToken)
	switch {
	case err == nil:
		return pair, nil
	case errors.Is(err, common.ErrRefreshTokenRevoked):
		return nil, errRefreshTokenUsed
	case errors.Is(err, common.ErrorNotFound):
		return nil, errInvalidRefreshToken
	default:
		s.log.Error(ctx, "rotate refresh token", "account", a.ID, "error", err)
		return nil, common.ErrorInternal
	}
}

// Revoke clears the stored refresh token, invalidating every outstanding one.
func (s *SessionService) Revoke(ctx context.Context, accountID string) error {
	err := s.accounts.ClearRefreshToken(ctx, accountID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrorNotFound):
		return errUnauthorizedRequest
	default:
		s.log.Error(ctx, "clear refresh token", "account", accountID, "error", err)
		return common.ErrorInternal
	}
}

func (s *SessionService) mint(a *models.Account) (*TokenPair, error) {
	access, err := auth.GenerateAccessToken(auth.AccessClaims{
		AccountID: a.ID,
		Email:     a.Email,
		FullName:  a.FullName,
		Username:  a.Username,
	}, s.accessSecret, s.accessTTL)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := auth.GenerateRefreshToken(a.ID, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
