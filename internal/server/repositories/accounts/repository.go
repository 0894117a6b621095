// Package accounts is the credential store: persistence of accounts, their
// password hashes and their single current refresh token.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/vidhub/internal/server/models"
)

// Repository is implemented by every store driver.
//
// Lookups of missing accounts return common.ErrorNotFound. Writes that would
// duplicate a username or email return common.ErrConflict.
type Repository interface {
	// Create inserts a and returns it with ID and timestamps filled in.
	Create(ctx context.Context, a *models.Account) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	// FindByUsernameOrEmail returns the account whose username equals
	// username or whose email equals email. Empty arguments never match.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.Account, error)

	SetRefreshToken(ctx context.Context, id, token string) error
	ClearRefreshToken(ctx context.Context, id string) error
	// RotateRefreshToken replaces the stored refresh token with next only if
	// it still equals expected, otherwise common.ErrRefreshTokenRevoked.
	RotateRefreshToken(ctx context.Context, id, expected, next string) error

	SetPasswordHash(ctx context.Context, id, hash string) error
	UpdateDetails(ctx context.Context, id, fullName, email string) (*models.Account, error)
	UpdateAvatar(ctx context.Context, id, url string) (*models.Account, error)
	UpdateCoverImage(ctx context.Context, id, url string) (*models.Account, error)
}
