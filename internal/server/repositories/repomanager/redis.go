package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/vidhub/internal/server/repositories/accounts"
	"github.com/redis/go-redis/v9"
)

type RedisRepositoryManager struct {
	client redis.UniversalClient
}

// OpenRedis connects to addr and verifies the connection.
func OpenRedis(ctx context.Context, addr, password string, db int) (*RedisRepositoryManager, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	m := NewRedisRepositoryManager(client)
	if err := m.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return m, nil
}

func NewRedisRepositoryManager(client redis.UniversalClient) *RedisRepositoryManager {
	return &RedisRepositoryManager{client: client}
}

func (m *RedisRepositoryManager) Accounts() accounts.Repository {
	return accounts.NewRedisRepository(m.client)
}

func (m *RedisRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *RedisRepositoryManager) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (m *RedisRepositoryManager) Close() error {
	return m.client.Close()
}
