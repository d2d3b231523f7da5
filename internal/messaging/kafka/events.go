package kafka

import (
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// DefaultTopic задаёт топик событий истории заказов.
const DefaultTopic = "storefront.order.events"

// Заголовки сообщений.
const (
	HeaderEventType = "x-event-type"
	HeaderEventID   = "x-event-id"
)

// OrderEvent представляет сообщение о мутации истории заказов.
type OrderEvent struct {
	EventID    string                `json:"event_id"`
	EventType  domain.OrderEventType `json:"event_type"`
	OrderID    string                `json:"order_id,omitempty"`
	CustomerID string                `json:"customer_id,omitempty"`
	Status     string                `json:"status,omitempty"`
	Total      string                `json:"total,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

// NewOrderEvent переводит доменное событие в сообщение с новым event_id.
func NewOrderEvent(event domain.OrderEvent) *OrderEvent {
	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &OrderEvent{
		EventID:    uuid.NewString(),
		EventType:  event.Type,
		OrderID:    event.OrderID,
		CustomerID: event.CustomerID,
		Status:     string(event.Status),
		Total:      event.Total,
		Timestamp:  ts,
	}
}

// Key возвращает ключ партиционирования: события одного заказа попадают в одну партицию.
func (e *OrderEvent) Key() string {
	if e.OrderID != "" {
		return e.OrderID
	}
	return string(e.EventType)
}
