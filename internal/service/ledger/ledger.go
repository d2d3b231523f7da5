package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	metricsStore = "ledger"

	// NoticeHistoryUnavailable показывается, когда сохранённую историю пришлось сбросить.
	NoticeHistoryUnavailable = "order history unavailable"
)

// Listener получает уведомление после каждой успешной мутации истории.
type Listener func(domain.OrderEvent)

// Ledger хранит историю заказов сессии от новых к старым.
// Каждая мутация сначала сохраняется в BlobStore и только потом становится видимой.
type Ledger struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	orders  []domain.Order
	notice  string

	blobs     domain.BlobStore
	logger    *log.Entry
	metrics   *metrics.StorefrontMetrics
	publisher domain.OrderEventPublisher
	now       func() time.Time

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// Option настраивает Ledger.
type Option func(*Ledger)

// WithMetrics подключает метрики истории заказов.
func WithMetrics(m *metrics.StorefrontMetrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithPublisher подключает публикацию событий истории (например, в Kafka).
func WithPublisher(p domain.OrderEventPublisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithClock подменяет источник времени событий.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New создаёт пустую историю. blobs == nil отключает сохранение.
func New(blobs domain.BlobStore, logger *log.Entry, opts ...Option) *Ledger {
	if logger == nil {
		logger = log.New().WithField("component", "ledger")
	}
	l := &Ledger{
		blobs:     blobs,
		logger:    logger,
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load читает историю один раз при старте. Отсутствие блоба даёт пустую историю.
// Если хотя бы одна запись повреждена, весь набор отбрасывается, блоб удаляется,
// а Notice начинает возвращать NoticeHistoryUnavailable.
func (l *Ledger) Load(ctx context.Context) error {
	if l.blobs == nil {
		return nil
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	raw, err := l.blobs.Get(ctx, domain.BlobKeyOrders)
	if errors.Is(err, domain.ErrBlobNotFound) {
		l.reset("")
		return nil
	}
	if err != nil {
		l.metrics.RecordPersistenceFailure(metricsStore, "load")
		l.reset(NoticeHistoryUnavailable)
		return fmt.Errorf("%w: read orders: %v", domain.ErrPersistence, err)
	}

	orders, err := decodeOrders(raw)
	if err != nil {
		l.metrics.RecordPersistenceFailure(metricsStore, "load")
		l.logger.WithError(err).Warn("persisted order history is corrupt, discarding it")
		if delErr := l.blobs.Delete(ctx, domain.BlobKeyOrders); delErr != nil {
			l.logger.WithError(delErr).Warn("failed to remove corrupt order history")
		}
		l.reset(NoticeHistoryUnavailable)
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	seen := make(map[string]struct{}, len(orders))
	unique := orders[:0]
	for _, order := range orders {
		if _, dup := seen[order.ID]; dup {
			l.logger.WithField("order_id", order.ID).Warn("duplicate order in persisted history, skipping")
			continue
		}
		seen[order.ID] = struct{}{}
		unique = append(unique, order)
	}

	l.mu.Lock()
	l.orders = unique
	l.notice = ""
	l.mu.Unlock()

	l.metrics.SetLedgerSize(len(unique))
	l.logger.WithField("orders", len(unique)).Debug("order history restored")
	return nil
}

func (l *Ledger) reset(notice string) {
	l.mu.Lock()
	l.orders = nil
	l.notice = notice
	l.mu.Unlock()
	l.metrics.SetLedgerSize(0)
}

// Notice возвращает пользовательское уведомление о состоянии истории или пустую строку.
func (l *Ledger) Notice() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.notice
}

// Add добавляет заказ в начало истории и сохраняет её.
// Заказ с уже существующим ID отклоняется, первая запись остаётся без изменений.
func (l *Ledger) Add(ctx context.Context, order domain.Order) error {
	if err := order.ValidateShape(); err != nil {
		return err
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.RLock()
	_, exists := l.indexOf(order.ID)
	current := l.orders
	l.mu.RUnlock()

	if exists {
		l.logger.WithField("order_id", order.ID).Warn("order with this id already exists, ignoring")
		return fmt.Errorf("%w: %s", domain.ErrOrderAlreadyExists, order.ID)
	}

	next := make([]domain.Order, 0, len(current)+1)
	next = append(next, order.Clone())
	next = append(next, current...)

	if err := l.persist(ctx, next); err != nil {
		return err
	}

	l.mu.Lock()
	l.orders = next
	l.mu.Unlock()

	l.metrics.RecordOrderCreated(len(next))
	l.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"total":    order.Total.StringFixed(2),
		"items":    len(order.Items),
	}).Info("order added to history")

	l.emit(ctx, l.event(domain.OrderEventCreated, order))
	return nil
}

// GetByID возвращает копию заказа или ErrOrderNotFound.
func (l *Ledger) GetByID(id string) (domain.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.indexOf(id)
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return l.orders[i].Clone(), nil
}

// List возвращает копии всех заказов, от новых к старым.
func (l *Ledger) List() []domain.Order {
	return l.filter(func(domain.Order) bool { return true })
}

// ListByCustomer возвращает заказы конкретного пользователя.
func (l *Ledger) ListByCustomer(customerID string) []domain.Order {
	return l.filter(func(o domain.Order) bool {
		return o.CustomerID != nil && *o.CustomerID == customerID
	})
}

func (l *Ledger) filter(keep func(domain.Order) bool) []domain.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]domain.Order, 0, len(l.orders))
	for _, order := range l.orders {
		if keep(order) {
			result = append(result, order.Clone())
		}
	}
	return result
}

// Len возвращает количество заказов в истории.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.orders)
}

// UpdateStatus переводит заказ в новый статус. Повтор текущего статуса ничего не меняет.
// Разрешено только движение вперёд: processing → shipped → delivered, отмена из processing и shipped.
func (l *Ledger) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.RLock()
	i, ok := l.indexOf(id)
	var current []domain.Order
	var existing domain.Order
	if ok {
		current = l.orders
		existing = l.orders[i]
	}
	l.mu.RUnlock()

	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if existing.Status == status {
		return existing.Clone(), nil
	}
	if !existing.Status.CanTransitionTo(status) {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStatusTransition, existing.Status, status)
	}

	updated := existing.Clone()
	updated.Status = status

	next := make([]domain.Order, len(current))
	copy(next, current)
	next[i] = updated

	if err := l.persist(ctx, next); err != nil {
		return domain.Order{}, err
	}

	l.mu.Lock()
	l.orders = next
	l.mu.Unlock()

	l.metrics.RecordStatusChange(string(status))
	l.logger.WithFields(log.Fields{
		"order_id": id,
		"from":     existing.Status,
		"to":       status,
	}).Info("order status updated")

	eventType := domain.OrderEventStatusChanged
	if status == domain.OrderStatusCancelled {
		eventType = domain.OrderEventCanceled
	}
	l.emit(ctx, l.event(eventType, updated))

	return updated.Clone(), nil
}

// Cancel отменяет заказ.
func (l *Ledger) Cancel(ctx context.Context, id string) (domain.Order, error) {
	return l.UpdateStatus(ctx, id, domain.OrderStatusCancelled)
}

// Clear очищает историю и удаляет сохранённый блоб.
func (l *Ledger) Clear(ctx context.Context) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if l.blobs != nil {
		if err := l.blobs.Delete(ctx, domain.BlobKeyOrders); err != nil {
			l.metrics.RecordPersistenceFailure(metricsStore, "clear")
			return fmt.Errorf("%w: delete orders: %v", domain.ErrPersistence, err)
		}
	}

	l.mu.Lock()
	removed := len(l.orders)
	l.orders = nil
	l.notice = ""
	l.mu.Unlock()

	l.metrics.SetLedgerSize(0)
	l.logger.WithField("removed", removed).Info("order history cleared")

	l.emit(ctx, domain.OrderEvent{Type: domain.OrderEventsCleared, OccurredAt: l.now().UTC()})
	return nil
}

// Subscribe регистрирует слушателя. Возвращённая функция снимает подписку.
func (l *Ledger) Subscribe(listener Listener) func() {
	l.listenersMu.Lock()
	defer l.listenersMu.Unlock()

	id := l.nextID
	l.nextID++
	l.listeners[id] = listener

	return func() {
		l.listenersMu.Lock()
		defer l.listenersMu.Unlock()
		delete(l.listeners, id)
	}
}

// indexOf вызывается под l.mu.
func (l *Ledger) indexOf(id string) (int, bool) {
	for i := range l.orders {
		if l.orders[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (l *Ledger) persist(ctx context.Context, orders []domain.Order) error {
	if l.blobs == nil {
		return nil
	}

	raw, err := encodeOrders(orders)
	if err == nil {
		err = l.blobs.Put(ctx, domain.BlobKeyOrders, raw)
	}
	if err != nil {
		l.metrics.RecordPersistenceFailure(metricsStore, "save")
		l.logger.WithError(err).Error("failed to persist order history")
		return fmt.Errorf("%w: write orders: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (l *Ledger) event(eventType domain.OrderEventType, order domain.Order) domain.OrderEvent {
	event := domain.OrderEvent{
		Type:       eventType,
		OrderID:    order.ID,
		Status:     order.Status,
		Total:      order.Total.StringFixed(2),
		OccurredAt: l.now().UTC(),
	}
	if order.CustomerID != nil {
		event.CustomerID = *order.CustomerID
	}
	return event
}

// emit уведомляет подписчиков и публикует событие. Ошибка публикации не отменяет мутацию.
func (l *Ledger) emit(ctx context.Context, event domain.OrderEvent) {
	l.listenersMu.Lock()
	listeners := make([]Listener, 0, len(l.listeners))
	for _, listener := range l.listeners {
		listeners = append(listeners, listener)
	}
	l.listenersMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}

	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishOrderEvent(context.WithoutCancel(ctx), event); err != nil {
		l.logger.WithError(err).WithFields(log.Fields{
			"order_id":   event.OrderID,
			"event_type": event.Type,
		}).Warn("failed to publish order event")
	}
}
