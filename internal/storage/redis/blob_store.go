package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const defaultKeyPrefix = "storefront:"

// BlobStore хранит JSON-блобы сессии в Redis под ключами с общим префиксом.
type BlobStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewBlobStore создаёт Redis-реализацию BlobStore. Пустой prefix заменяется на "storefront:".
func NewBlobStore(client goredis.UniversalClient, prefix string) *BlobStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &BlobStore{client: client, prefix: prefix}
}

// Open подключается к Redis и проверяет доступность.
func Open(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

// Put сохраняет значение без TTL: данные сессии должны переживать перезапуск.
func (s *BlobStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (s *BlobStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *BlobStore) key(key string) string {
	return s.prefix + key
}

var _ domain.BlobStore = (*BlobStore)(nil)
