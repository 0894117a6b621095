package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/dbx"
	"github.com/dmitrijs2005/vidhub/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation   = "23505"
	pgInvalidTextFormat = "22P02"
)

const accountColumns = `id, username, email, fullname, avatar, cover_image, password_hash, refresh_token, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	a := &models.Account{}
	var refresh sql.NullString
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.FullName, &a.Avatar, &a.CoverImage,
		&a.PasswordHash, &refresh, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	a.RefreshToken = refresh.String
	return a, nil
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return common.ErrConflict
		case pgInvalidTextFormat:
			// a malformed uuid cannot name an existing row
			return common.ErrorNotFound
		}
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (username, email, fullname, avatar, cover_image, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`

	out := *a
	err := r.db.QueryRowContext(ctx, query,
		a.Username, a.Email, a.FullName, a.Avatar, a.CoverImage, a.PasswordHash).
		Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &out, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.Account, error) {
	if username == "" && email == "" {
		return nil, common.ErrorNotFound
	}
	query := `SELECT ` + accountColumns + ` FROM accounts
		 WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
		 LIMIT 1`
	return scanAccount(r.db.QueryRowContext(ctx, query, username, email))
}

func (r *PostgresRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	return r.execOne(ctx, r.db,
		`UPDATE accounts SET refresh_token = $2, updated_at = now() WHERE id = $1`, id, token)
}

func (r *PostgresRepository) ClearRefreshToken(ctx context.Context, id string) error {
	return r.execOne(ctx, r.db,
		`UPDATE accounts SET refresh_token = NULL, updated_at = now() WHERE id = $1`, id)
}

// RotateRefreshToken locks the account row, compares the stored token and
// swaps it in the same transaction.
func (r *PostgresRepository) RotateRefreshToken(ctx context.Context, id, expected, next string) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var current sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT refresh_token FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if err != nil {
			return mapError(err)
		}
		if !current.Valid || current.String != expected {
			return common.ErrRefreshTokenRevoked
		}
		return r.execOne(ctx, tx,
			`UPDATE accounts SET refresh_token = $2, updated_at = now() WHERE id = $1`, id, next)
	})
}

func (r *PostgresRepository) SetPasswordHash(ctx context.Context, id, hash string) error {
	return r.execOne(ctx, r.db,
		`UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
}

func (r *PostgresRepository) UpdateDetails(ctx context.Context, id, fullName, email string) (*models.Account, error) {
	query := `UPDATE accounts SET fullname = $2, email = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRowContext(ctx, query, id, fullName, email))
}

func (r *PostgresRepository) UpdateAvatar(ctx context.Context, id, url string) (*models.Account, error) {
	query := `UPDATE accounts SET avatar = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRowContext(ctx, query, id, url))
}

func (r *PostgresRepository) UpdateCoverImage(ctx context.Context, id, url string) (*models.Account, error) {
	query := `UPDATE accounts SET cover_image = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRowContext(ctx, query, id, url))
}

func (r *PostgresRepository) execOne(ctx context.Context, db dbx.DBTX, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
