package domain

import (
	"context"
	"time"
)

// Ключи локального хранилища. Под каждым ключом лежит независимый JSON-блоб.
const (
	BlobKeySession = "user"
	BlobKeyOrders  = "orders"
	BlobKeyCart    = "cart"
)

// BlobStore описывает строковое key-value хранилище JSON-блобов (аналог localStorage).
type BlobStore interface {
	// Get возвращает блоб или ErrBlobNotFound, если ключа нет.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put полностью перезаписывает значение ключа.
	Put(ctx context.Context, key string, value []byte) error
	// Delete удаляет ключ; отсутствие ключа ошибкой не считается.
	Delete(ctx context.Context, key string) error
	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
}

// ProductSource описывает read-only источник товаров.
type ProductSource interface {
	List(ctx context.Context, limit int) ([]Product, error)
	ListByCategory(ctx context.Context, slug string) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
}

// OrderEventType определяет тип события истории заказов.
type OrderEventType string

const (
	OrderEventCreated       OrderEventType = "order.created"
	OrderEventStatusChanged OrderEventType = "order.status_changed"
	OrderEventCanceled      OrderEventType = "order.canceled"
	OrderEventsCleared      OrderEventType = "orders.cleared"
)

// OrderEvent представляет уведомление о мутации истории заказов.
type OrderEvent struct {
	Type       OrderEventType
	OrderID    string
	CustomerID string
	Status     OrderStatus
	Total      string
	OccurredAt time.Time
}

// OrderEventPublisher публикует события истории наружу; публикация best effort.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}
