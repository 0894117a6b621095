package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/server/config"
	"github.com/dmitrijs2005/vidhub/internal/server/media"
	"github.com/dmitrijs2005/vidhub/internal/server/models"
	"github.com/dmitrijs2005/vidhub/internal/server/repositories/accounts"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		AccessTokenSecret:            "access-secret",
		RefreshTokenSecret:           "refresh-secret",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 24 * time.Hour,
	}
}

// fakeUploader mimics media.S3Uploader: it consumes the local file on every
// attempt and fails for paths listed in failFor.
type fakeUploader struct {
	mu       sync.Mutex
	failFor  map[string]bool
	uploaded []string
}

func (f *fakeUploader) Upload(_ context.Context, localPath string) (*media.Asset, error) {
	if localPath == "" {
		return nil, media.ErrNoFile
	}
	defer os.Remove(localPath)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[localPath] {
		return nil, errors.New("upload backend down")
	}
	f.uploaded = append(f.uploaded, localPath)
	key := "avatars/" + filepath.Base(localPath)
	return &media.Asset{URL: "http://cdn.local/media/" + key, Key: key}, nil
}

// faultyRepo injects storage failures into an otherwise working repository.
type faultyRepo struct {
	accounts.Repository
	findErr       error
	setRefreshErr error
	rotateErr     error
	createErr     error
}

func (r *faultyRepo) FindByID(ctx context.Context, id string) (*models.Account, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.Repository.FindByID(ctx, id)
}

func (r *faultyRepo) SetRefreshToken(ctx context.Context, id, token string) error {
	if r.setRefreshErr != nil {
		return r.setRefreshErr
	}
	return r.Repository.SetRefreshToken(ctx, id, token)
}

func (r *faultyRepo) RotateRefreshToken(ctx context.Context, id, expected, next string) error {
	if r.rotateErr != nil {
		return r.rotateErr
	}
	return r.Repository.RotateRefreshToken(ctx, id, expected, next)
}

func (r *faultyRepo) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	return r.Repository.Create(ctx, a)
}

func tempFile(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("img"), 0o600))
	return p
}

func userMessage(t *testing.T, err error) string {
	t.Helper()
	var ue *common.UserError
	require.True(t, errors.As(err, &ue), "expected a UserError, got %v", err)
	return ue.Message
}

type fixture struct {
	repo     *accounts.MemoryRepository
	uploader *fakeUploader
	sessions *SessionService
	accounts *AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := accounts.NewMemoryRepository()
	up := &fakeUploader{failFor: map[string]bool{}}
	sessions := NewSessionService(repo, testConfig(), nil)
	return &fixture{
		repo:     repo,
		uploader: up,
		sessions: sessions,
		accounts: NewAccountService(repo, sessions, up, nil),
	}
}

func (f *fixture) registerAlice(t *testing.T) *models.Account {
	t.Helper()
	a, err := f.accounts.Register(context.Background(), RegisterInput{
		FullName:   "Alice",
		Email:      "alice@x.com",
		Username:   "alice",
		Password:   "pw123",
		AvatarPath: tempFile(t, "avatar.png"),
	})
	require.NoError(t, err)
	return a
}
