package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository is an in-process store for local development and tests.
// Returned accounts are copies; callers cannot mutate stored state.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[string]*models.Account), now: time.Now}
}

func clone(a *models.Account) *models.Account {
	c := *a
	return &c
}

// ownerOf must be called with mu held.
func (r *MemoryRepository) ownerOf(username, email string) *models.Account {
	for _, a := range r.accounts {
		if (username != "" && a.Username == username) || (email != "" && a.Email == email) {
			return a
		}
	}
	return nil
}

func (r *MemoryRepository) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ownerOf(a.Username, a.Email) != nil {
		return nil, common.ErrConflict
	}

	stored := clone(a)
	stored.ID = uuid.NewString()
	stored.RefreshToken = ""
	stored.CreatedAt = r.now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	r.accounts[stored.ID] = stored
	return clone(stored), nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(a), nil
}

func (r *MemoryRepository) FindByUsernameOrEmail(_ context.Context, username, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a := r.ownerOf(username, email); a != nil {
		return clone(a), nil
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) SetRefreshToken(_ context.Context, id, token string) error {
	_, err := r.update(id, func(a *models.Account) error {
		a.RefreshToken = token
		return nil
	})
	return err
}

func (r *MemoryRepository) ClearRefreshToken(ctx context.Context, id string) error {
	return r.SetRefreshToken(ctx, id, "")
}

func (r *MemoryRepository) RotateRefreshToken(_ context.Context, id, expected, next string) error {
	_, err := r.update(id, func(a *models.Account) error {
		if a.RefreshToken == "" || a.RefreshToken != expected {
			return common.ErrRefreshTokenRevoked
		}
		a.RefreshToken = next
		return nil
	})
	return err
}

func (r *MemoryRepository) SetPasswordHash(_ context.Context, id, hash string) error {
	_, err := r.update(id, func(a *models.Account) error {
		a.PasswordHash = hash
		return nil
	})
	return err
}

func (r *MemoryRepository) UpdateDetails(_ context.Context, id, fullName, email string) (*models.Account, error) {
	return r.update(id, func(a *models.Account) error {
		if owner := r.ownerOf("", email); owner != nil && owner.ID != id {
			return common.ErrConflict
		}
		a.FullName = fullName
		a.Email = email
		return nil
	})
}

func (r *MemoryRepository) UpdateAvatar(_ context.Context, id, url string) (*models.Account, error) {
	return r.update(id, func(a *models.Account) error {
		a.Avatar = url
		return nil
	})
}

func (r *MemoryRepository) UpdateCoverImage(_ context.Context, id, url string) (*models.Account, error) {
	return r.update(id, func(a *models.Account) error {
		a.CoverImage = url
		return nil
	})
}

// update applies fn to a scratch copy and commits it only when fn succeeds.
func (r *MemoryRepository) update(id string, fn func(a *models.Account) error) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	next := clone(a)
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = r.now().UTC()
	r.accounts[id] = next
	return clone(next), nil
}
