package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// blobStoreInMemory представляет in-memory реализацию BlobStore для локальной разработки и тестов.
type blobStoreInMemory struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewBlobStore возвращает пустое in-memory хранилище.
func NewBlobStore() domain.BlobStore {
	return &blobStoreInMemory{
		items: make(map[string][]byte),
	}
}

func (s *blobStoreInMemory) Get(_ context.Context, key string) ([]byte, error) {
	key = strings.TrimSpace(key)

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.items[key]
	if !ok {
		return nil, domain.ErrBlobNotFound
	}
	return cloneBytes(value), nil
}

func (s *blobStoreInMemory) Put(_ context.Context, key string, value []byte) error {
	key = strings.TrimSpace(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Храним копию, чтобы вызывающий не мог изменить сохранённые данные.
	s.items[key] = cloneBytes(value)
	return nil
}

func (s *blobStoreInMemory) Delete(_ context.Context, key string) error {
	key = strings.TrimSpace(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

func (s *blobStoreInMemory) Ping(context.Context) error {
	return nil
}

func cloneBytes(src []byte) []byte {
	return append([]byte(nil), src...)
}

var _ domain.BlobStore = (*blobStoreInMemory)(nil)
