package services

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertGone(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "%s must be removed", p)
	}
}

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	avatar, cover := tempFile(t, "a.png"), tempFile(t, "c.png")
	a, err := f.accounts.Register(ctx, RegisterInput{
		FullName:       "  Alice Liddell ",
		Email:          "Alice@X.com",
		Username:       " ALICE",
		Password:       "pw123",
		AvatarPath:     avatar,
		CoverImagePath: cover,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "alice", a.Username)
	assert.Equal(t, "alice@x.com", a.Email)
	assert.Equal(t, "Alice Liddell", a.FullName)
	assert.Equal(t, "http://cdn.local/media/avatars/a.png", a.Avatar)
	assert.Equal(t, "http://cdn.local/media/avatars/c.png", a.CoverImage)
	assert.Empty(t, a.PasswordHash)
	assert.Empty(t, a.RefreshToken)

	stored, err := f.repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	ok, err := auth.CheckPassword(stored.PasswordHash, "pw123")
	require.NoError(t, err)
	assert.True(t, ok)

	assertGone(t, avatar, cover)
}

func TestRegister_MissingFieldsCreateNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for name, in := range map[string]RegisterInput{
		"fullname": {FullName: "", Email: "alice@x.com", Username: "alice", Password: "pw123"},
		"email":    {FullName: "Alice", Email: "  ", Username: "alice", Password: "pw123"},
		"username": {FullName: "Alice", Email: "alice@x.com", Username: "", Password: "pw123"},
		"password": {FullName: "Alice", Email: "alice@x.com", Username: "alice", Password: "   "},
	} {
		t.Run(name, func(t *testing.T) {
			in.AvatarPath = tempFile(t, "a.png")
			_, err := f.accounts.Register(ctx, in)
			assert.ErrorIs(t, err, common.ErrValidation)
			assert.Equal(t, "all fields are required", userMessage(t, err))
			assertGone(t, in.AvatarPath)
		})
	}

	_, err := f.repo.FindByUsernameOrEmail(ctx, "alice", "alice@x.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Empty(t, f.uploader.uploaded)
}

func TestRegister_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.registerAlice(t)

	_, err := f.accounts.Register(context.Background(), RegisterInput{
		FullName: "Other", Email: "ALICE@x.com", Username: "alice2", Password: "pw",
		AvatarPath: tempFile(t, "a.png"),
	})
	assert.ErrorIs(t, err, common.ErrConflict)
	assert.Equal(t, "user with email or username already exists", userMessage(t, err))
}

func TestRegister_ConflictRaceInStore(t *testing.T) {
	f := newFixture(t)
	repo := &faultyRepo{Repository: f.repo, createErr: common.ErrConflict}
	s := NewAccountService(repo, f.sessions, f.uploader, nil)

	_, err := s.Register(context.Background(), RegisterInput{
		FullName: "Alice", Email: "alice@x.com", Username: "alice", Password: "pw",
		AvatarPath: tempFile(t, "a.png"),
	})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestRegister_Avatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := RegisterInput{FullName: "Alice", Email: "alice@x.com", Username: "alice", Password: "pw123"}

	_, err := f.accounts.Register(ctx, in)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, "avatar is required", userMessage(t, err))

	in.AvatarPath = tempFile(t, "broken.png")
	f.uploader.failFor[in.AvatarPath] = true
	_, err = f.accounts.Register(ctx, in)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, "avatar file is required", userMessage(t, err))
	assertGone(t, in.AvatarPath)

	_, err = f.repo.FindByUsernameOrEmail(ctx, "alice", "")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRegister_CoverImageFailureIsTolerated(t *testing.T) {
	f := newFixture(t)
	cover := tempFile(t, "cover.png")
	f.uploader.failFor[cover] = true

	a, err := f.accounts.Register(context.Background(), RegisterInput{
		FullName: "Alice", Email: "alice@x.com", Username: "alice", Password: "pw123",
		AvatarPath: tempFile(t, "a.png"), CoverImagePath: cover,
	})
	require.NoError(t, err)
	assert.Empty(t, a.CoverImage)
	assert.NotEmpty(t, a.Avatar)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.registerAlice(t)

	byName, err := f.accounts.Login(ctx, "Alice", "", "pw123")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byName.Account.ID)
	assert.Empty(t, byName.Account.PasswordHash)
	assert.Empty(t, byName.Account.RefreshToken)

	stored, err := f.repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, byName.Tokens.RefreshToken, stored.RefreshToken)

	byEmail, err := f.accounts.Login(ctx, "", "alice@x.com", "pw123")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byEmail.Account.ID)

	// a second login supersedes the first refresh token
	_, err = f.sessions.Rotate(ctx, byName.Tokens.RefreshToken)
	assert.ErrorIs(t, err, common.ErrRefreshTokenRevoked)
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.registerAlice(t)

	_, err := f.accounts.Login(ctx, "", "", "pw123")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.accounts.Login(ctx, "alice", "", "")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.accounts.Login(ctx, "bob", "", "pw123")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Equal(t, "user does not exist", userMessage(t, err))

	_, err = f.accounts.Login(ctx, "alice", "", "wrong")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.registerAlice(t)

	res, err := f.accounts.Login(ctx, "alice", "", "pw123")
	require.NoError(t, err)
	require.NoError(t, f.accounts.Logout(ctx, a))

	stored, err := f.repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.RefreshToken)

	_, err = f.sessions.Rotate(ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, common.ErrRefreshTokenRevoked)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.registerAlice(t)

	res, err := f.accounts.Login(ctx, "alice", "", "pw123")
	require.NoError(t, err)

	err = f.accounts.ChangePassword(ctx, a, "nope", "pw456")
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, "invalid old password", userMessage(t, err))

	err = f.accounts.ChangePassword(ctx, a, "pw123", "")
	assert.ErrorIs(t, err, common.ErrValidation)

	require.NoError(t, f.accounts.ChangePassword(ctx, a, "pw123", "pw456"))

	_, err = f.accounts.Login(ctx, "alice", "", "pw123")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	stored, err := f.repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Tokens.RefreshToken, stored.RefreshToken, "password change leaves the session alone")

	_, err = f.accounts.Login(ctx, "alice", "", "pw456")
	assert.NoError(t, err)
}

func TestSetPassword_UnknownAccount(t *testing.T) {
	f := newFixture(t)
	err := f.accounts.SetPassword(context.Background(), "ghost", "pw")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestUpdateDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.registerAlice(t)

	_, err := f.accounts.Register(ctx, RegisterInput{
		FullName: "Bob", Email: "bob@x.com", Username: "bob", Password: "pw",
		AvatarPath: tempFile(t, "b.png"),
	})
	require.NoError(t, err)

	_, err = f.accounts.UpdateDetails(ctx, a, "", "alice@x.com")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.accounts.UpdateDetails(ctx, a, "Alice", "BOB@x.com")
	assert.ErrorIs(t, err, common.ErrConflict)

	updated, err := f.accounts.UpdateDetails(ctx, a, " Alice L ", "Alice@New.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice L", updated.FullName)
	assert.Equal(t, "alice@new.com", updated.Email)
	assert.Empty(t, updated.PasswordHash)
}

func TestUpdateAvatarAndCoverImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.registerAlice(t)

	_, err := f.accounts.UpdateAvatar(ctx, a, "")
	assert.ErrorIs(t, err, common.ErrValidation)

	broken := tempFile(t, "broken.png")
	f.uploader.failFor[broken] = true
	_, err = f.accounts.UpdateAvatar(ctx, a, broken)
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.Equal(t, "error while uploading avatar", userMessage(t, err))

	updated, err := f.accounts.UpdateAvatar(ctx, a, tempFile(t, "new.png"))
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.local/media/avatars/new.png", updated.Avatar)

	_, err = f.accounts.UpdateCoverImage(ctx, a, "")
	assert.ErrorIs(t, err, common.ErrValidation)

	updated, err = f.accounts.UpdateCoverImage(ctx, a, tempFile(t, "cover.png"))
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.local/media/avatars/cover.png", updated.CoverImage)
	assert.Empty(t, updated.RefreshToken)
}

func TestCurrent(t *testing.T) {
	f := newFixture(t)
	a := f.registerAlice(t)
	a.PasswordHash = "leak"

	got := f.accounts.Current(context.Background(), a)
	assert.Equal(t, a.ID, got.ID)
	assert.Empty(t, got.PasswordHash)
}

func TestRegister_StoreFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	repo := &faultyRepo{Repository: f.repo, createErr: errors.New("db down")}
	s := NewAccountService(repo, f.sessions, f.uploader, nil)

	_, err := s.Register(context.Background(), RegisterInput{
		FullName: "Alice", Email: "alice@x.com", Username: "alice", Password: "pw",
		AvatarPath: tempFile(t, "a.png"),
	})
	assert.ErrorIs(t, err, common.ErrorInternal)
}
