package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const metricsStore = "cart"

// Listener получает снимок корзины после каждого изменения.
type Listener func(domain.CartSnapshot)

// Store хранит корзину текущей сессии. Позиции уникальны по ProductID и идут в порядке добавления.
type Store struct {
	// writeMu упорядочивает мутации вместе с их сохранением.
	writeMu sync.Mutex
	mu      sync.RWMutex
	items   []domain.LineItem

	blobs   domain.BlobStore
	logger  *log.Entry
	metrics *metrics.StorefrontMetrics

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// NewStore создаёт пустую корзину. blobs == nil отключает сохранение.
func NewStore(blobs domain.BlobStore, logger *log.Entry, m *metrics.StorefrontMetrics) *Store {
	if logger == nil {
		logger = log.New().WithField("component", "cart")
	}
	return &Store{
		blobs:     blobs,
		logger:    logger,
		metrics:   m,
		listeners: make(map[int]Listener),
	}
}

type persistedCart struct {
	Items []domain.LineItem `json:"items"`
}

// Load восстанавливает корзину из хранилища. Повреждённый блоб удаляется, корзина остаётся пустой.
func (s *Store) Load(ctx context.Context) error {
	if s.blobs == nil {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	raw, err := s.blobs.Get(ctx, domain.BlobKeyCart)
	if errors.Is(err, domain.ErrBlobNotFound) {
		return nil
	}
	if err != nil {
		s.metrics.RecordPersistenceFailure(metricsStore, "load")
		return fmt.Errorf("%w: read cart: %v", domain.ErrPersistence, err)
	}

	items, decodeErr := decodeCart(raw)
	if decodeErr != nil {
		s.logger.WithError(decodeErr).Warn("persisted cart is corrupt, starting with an empty cart")
		s.metrics.RecordPersistenceFailure(metricsStore, "load")
		if err := s.blobs.Delete(ctx, domain.BlobKeyCart); err != nil {
			s.logger.WithError(err).Warn("failed to remove corrupt cart blob")
		}
		return fmt.Errorf("%w: %v", domain.ErrPersistence, decodeErr)
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	s.logger.WithField("items", len(items)).Debug("cart restored")
	return nil
}

func decodeCart(raw []byte) ([]domain.LineItem, error) {
	var stored persistedCart
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}

	seen := make(map[string]struct{}, len(stored.Items))
	for _, item := range stored.Items {
		if item.ProductID == "" || item.Quantity < 1 || item.Price.IsNegative() {
			return nil, fmt.Errorf("invalid cart line item %q", item.ProductID)
		}
		if _, dup := seen[item.ProductID]; dup {
			return nil, fmt.Errorf("duplicate cart line item %q", item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}
	return stored.Items, nil
}

// Add добавляет товар. quantity < 1 трактуется как 1; существующая позиция увеличивается.
// Остаток на складе здесь не проверяется.
func (s *Store) Add(ctx context.Context, product domain.Product, quantity int) domain.CartSnapshot {
	if quantity < 1 {
		quantity = 1
	}
	key := product.Key()

	return s.mutate(ctx, "add", func(items []domain.LineItem) []domain.LineItem {
		for i := range items {
			if items[i].ProductID == key {
				items[i].Quantity += quantity
				return items
			}
		}
		return append(items, domain.NewLineItem(product, quantity))
	})
}

// Remove удаляет позицию. Отсутствующая позиция не считается ошибкой.
func (s *Store) Remove(ctx context.Context, productID string) domain.CartSnapshot {
	return s.mutate(ctx, "remove", func(items []domain.LineItem) []domain.LineItem {
		return removeItem(items, productID)
	})
}

// SetQuantity перезаписывает количество; quantity < 1 удаляет позицию.
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int) domain.CartSnapshot {
	if quantity < 1 {
		return s.mutate(ctx, "remove", func(items []domain.LineItem) []domain.LineItem {
			return removeItem(items, productID)
		})
	}
	return s.mutate(ctx, "set_quantity", func(items []domain.LineItem) []domain.LineItem {
		for i := range items {
			if items[i].ProductID == productID {
				items[i].Quantity = quantity
				break
			}
		}
		return items
	})
}

// Clear очищает корзину.
func (s *Store) Clear(ctx context.Context) {
	s.mutate(ctx, "clear", func([]domain.LineItem) []domain.LineItem {
		return nil
	})
}

// RemoveCommitted вычитает из корзины количества, попавшие в заказ.
// Позиции, добавленные после снимка, и добавленное сверх снимка количество остаются в корзине.
func (s *Store) RemoveCommitted(ctx context.Context, committed []domain.LineItem) domain.CartSnapshot {
	taken := make(map[string]int, len(committed))
	for _, item := range committed {
		taken[item.ProductID] += item.Quantity
	}

	return s.mutate(ctx, "commit", func(items []domain.LineItem) []domain.LineItem {
		kept := items[:0]
		for _, item := range items {
			item.Quantity -= taken[item.ProductID]
			if item.Quantity >= 1 {
				kept = append(kept, item)
			}
		}
		return kept
	})
}

func removeItem(items []domain.LineItem, productID string) []domain.LineItem {
	for i := range items {
		if items[i].ProductID == productID {
			return append(items[:i], items[i+1:]...)
		}
	}
	return items
}

// Count возвращает сумму количеств по всем позициям.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CountItems(s.items)
}

// Total возвращает сумму price × quantity.
func (s *Store) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.SumItems(s.items)
}

// Items возвращает копию позиций в порядке добавления.
func (s *Store) Items() []domain.LineItem {
	return s.Snapshot().Items
}

// Snapshot возвращает копию корзины с пересчитанными count/total.
func (s *Store) Snapshot() domain.CartSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.NewCartSnapshot(s.items)
}

// Subscribe регистрирует слушателя изменений. Возвращённая функция снимает подписку.
func (s *Store) Subscribe(listener Listener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = listener

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) mutate(ctx context.Context, op string, fn func([]domain.LineItem) []domain.LineItem) domain.CartSnapshot {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	// fn работает с копией, чтобы ранее выданные снимки не менялись.
	working := make([]domain.LineItem, len(s.items))
	copy(working, s.items)
	s.items = fn(working)
	snapshot := domain.NewCartSnapshot(s.items)
	s.mu.Unlock()

	s.save(ctx, snapshot.Items)
	s.metrics.RecordCartMutation(op, snapshot.Count)
	s.notify(snapshot)

	return snapshot
}

// save не откатывает изменение в памяти: ошибка только логируется.
func (s *Store) save(ctx context.Context, items []domain.LineItem) {
	if s.blobs == nil {
		return
	}

	if items == nil {
		items = []domain.LineItem{}
	}
	raw, err := json.Marshal(persistedCart{Items: items})
	if err == nil {
		err = s.blobs.Put(ctx, domain.BlobKeyCart, raw)
	}
	if err != nil {
		s.metrics.RecordPersistenceFailure(metricsStore, "save")
		s.logger.WithError(err).Warn("failed to persist cart")
	}
}

func (s *Store) notify(snapshot domain.CartSnapshot) {
	s.listenersMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.Unlock()

	for _, l := range listeners {
		l(domain.NewCartSnapshot(snapshot.Items))
	}
}
