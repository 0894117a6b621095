package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/server/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Key layout:
//
//	acc:{id}              hash with the account fields
//	acc:username:{name}   id owning the username
//	acc:email:{email}     id owning the email
const (
	accountKeyPrefix  = "acc:"
	usernameKeyPrefix = "acc:username:"
	emailKeyPrefix    = "acc:email:"
)

const (
	statusMissing  = -1
	statusConflict = 0
	statusOK       = 1
)

const createScript = `
if redis.call('EXISTS', KEYS[2]) == 1 or redis.call('EXISTS', KEYS[3]) == 1 then
  return 0
end
redis.call('SET', KEYS[2], ARGV[1])
redis.call('SET', KEYS[3], ARGV[1])
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
return 1
`

const updateFieldsScript = `
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`

const updateDetailsScript = `
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local owner = redis.call('GET', KEYS[2])
if owner and owner ~= ARGV[1] then
  return 0
end
local old = redis.call('HGET', KEYS[1], 'email')
if old and old ~= ARGV[3] then
  redis.call('DEL', ARGV[4] .. old)
end
redis.call('SET', KEYS[2], ARGV[1])
redis.call('HSET', KEYS[1], 'fullname', ARGV[2], 'email', ARGV[3], 'updated_at', ARGV[5])
return 1
`

const rotateRefreshScript = `
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local current = redis.call('HGET', KEYS[1], 'refresh_token')
if current ~= ARGV[1] then
  return 0
end
redis.call('HSET', KEYS[1], 'refresh_token', ARGV[2], 'updated_at', ARGV[3])
return 1
`

var (
	createLua        = redis.NewScript(createScript)
	updateFieldsLua  = redis.NewScript(updateFieldsScript)
	updateDetailsLua = redis.NewScript(updateDetailsScript)
	rotateRefreshLua = redis.NewScript(rotateRefreshScript)
)

// RedisRepository keeps accounts in redis hashes. Every multi-key write runs
// as a Lua script so uniqueness and refresh rotation stay atomic.
type RedisRepository struct {
	redis redis.UniversalClient
	now   func() time.Time
}

func NewRedisRepository(client redis.UniversalClient) *RedisRepository {
	return &RedisRepository{redis: client, now: time.Now}
}

func accountKey(id string) string { return accountKeyPrefix + id }

func (r *RedisRepository) stamp() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}

func (r *RedisRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	out := *a
	out.ID = uuid.NewString()
	ts := r.stamp()

	code, err := createLua.Run(ctx, r.redis,
		[]string{accountKey(out.ID), usernameKeyPrefix + out.Username, emailKeyPrefix + out.Email},
		out.ID,
		"id", out.ID,
		"username", out.Username,
		"email", out.Email,
		"fullname", out.FullName,
		"avatar", out.Avatar,
		"cover_image", out.CoverImage,
		"password_hash", out.PasswordHash,
		"refresh_token", "",
		"created_at", ts,
		"updated_at", ts,
	).Int()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if code == statusConflict {
		return nil, common.ErrConflict
	}

	out.RefreshToken = ""
	out.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	out.UpdatedAt = out.CreatedAt
	return &out, nil
}

func (r *RedisRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	fields, err := r.redis.HGetAll(ctx, accountKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return nil, common.ErrorNotFound
	}
	return decodeAccount(fields)
}

func (r *RedisRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.Account, error) {
	for _, key := range []string{indexKey(usernameKeyPrefix, username), indexKey(emailKeyPrefix, email)} {
		if key == "" {
			continue
		}
		id, err := r.redis.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis error: %w", err)
		}
		return r.FindByID(ctx, id)
	}
	return nil, common.ErrorNotFound
}

func indexKey(prefix, value string) string {
	if value == "" {
		return ""
	}
	return prefix + value
}

func (r *RedisRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	return r.updateFields(ctx, id, "refresh_token", token)
}

func (r *RedisRepository) ClearRefreshToken(ctx context.Context, id string) error {
	return r.updateFields(ctx, id, "refresh_token", "")
}

func (r *RedisRepository) RotateRefreshToken(ctx context.Context, id, expected, next string) error {
	if expected == "" {
		return common.ErrRefreshTokenRevoked
	}
	code, err := rotateRefreshLua.Run(ctx, r.redis, []string{accountKey(id)}, expected, next, r.stamp()).Int()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	switch code {
	case statusMissing:
		return common.ErrorNotFound
	case statusConflict:
		return common.ErrRefreshTokenRevoked
	default:
		return nil
	}
}

func (r *RedisRepository) SetPasswordHash(ctx context.Context, id, hash string) error {
	return r.updateFields(ctx, id, "password_hash", hash)
}

func (r *RedisRepository) UpdateDetails(ctx context.Context, id, fullName, email string) (*models.Account, error) {
	code, err := updateDetailsLua.Run(ctx, r.redis,
		[]string{accountKey(id), emailKeyPrefix + email},
		id, fullName, email, emailKeyPrefix, r.stamp(),
	).Int()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	switch code {
	case statusMissing:
		return nil, common.ErrorNotFound
	case statusConflict:
		return nil, common.ErrConflict
	}
	return r.FindByID(ctx, id)
}

func (r *RedisRepository) UpdateAvatar(ctx context.Context, id, url string) (*models.Account, error) {
	if err := r.updateFields(ctx, id, "avatar", url); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *RedisRepository) UpdateCoverImage(ctx context.Context, id, url string) (*models.Account, error) {
	if err := r.updateFields(ctx, id, "cover_image", url); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *RedisRepository) updateFields(ctx context.Context, id string, pairs ...string) error {
	args := make([]any, 0, len(pairs)+2)
	for _, p := range pairs {
		args = append(args, p)
	}
	args = append(args, "updated_at", r.stamp())

	code, err := updateFieldsLua.Run(ctx, r.redis, []string{accountKey(id)}, args...).Int()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if code == statusMissing {
		return common.ErrorNotFound
	}
	return nil
}

func decodeAccount(f map[string]string) (*models.Account, error) {
	a := &models.Account{
		ID:           f["id"],
		Username:     f["username"],
		Email:        f["email"],
		FullName:     f["fullname"],
		Avatar:       f["avatar"],
		CoverImage:   f["cover_image"],
		PasswordHash: f["password_hash"],
		RefreshToken: f["refresh_token"],
	}
	var err error
	if a.CreatedAt, err = time.Parse(time.RFC3339Nano, f["created_at"]); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	if a.UpdatedAt, err = time.Parse(time.RFC3339Nano, f["updated_at"]); err != nil {
		return nil, fmt.Errorf("decode updated_at: %w", err)
	}
	return a, nil
}
