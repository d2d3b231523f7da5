package checkout

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Cart описывает то, что оформлению нужно от корзины.
type Cart interface {
	Snapshot() domain.CartSnapshot
	RemoveCommitted(ctx context.Context, committed []domain.LineItem) domain.CartSnapshot
}

// OrderLedger описывает то, что оформлению нужно от истории заказов.
type OrderLedger interface {
	Add(ctx context.Context, order domain.Order) error
}

// SessionProvider отдаёт текущего пользователя, если он вошёл.
type SessionProvider interface {
	Current() (domain.Session, bool)
}

// Orchestrator ведёт оформление заказа: Idle → Validating → Submitting → Committed | Failed.
// Одновременно выполняется не более одного Submit.
type Orchestrator struct {
	cart     Cart
	ledger   OrderLedger
	sessions SessionProvider

	inProgress atomic.Bool

	mu         sync.RWMutex
	draft      domain.CheckoutDraft
	draftRev   uint64
	state      domain.CheckoutState
	lastErrors *domain.ValidationErrors
	lastOrder  *domain.Order

	requireSession bool
	newOrderID     func(time.Time) string
	newTracking    func() string
	now            func() time.Time
	logger         *log.Entry
	metrics        *metrics.StorefrontMetrics
}

// Option настраивает Orchestrator.
type Option func(*Orchestrator)

// WithRequireSession запрещает оформление гостям.
func WithRequireSession(required bool) Option {
	return func(o *Orchestrator) { o.requireSession = required }
}

// WithOrderIDGenerator подменяет генератор номеров заказов.
func WithOrderIDGenerator(gen func(time.Time) string) Option {
	return func(o *Orchestrator) { o.newOrderID = gen }
}

// WithTrackingGenerator подменяет генератор трек-номеров.
func WithTrackingGenerator(gen func() string) Option {
	return func(o *Orchestrator) { o.newTracking = gen }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithMetrics подключает метрики оформления.
func WithMetrics(m *metrics.StorefrontMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator создаёт оркестратор с пустым черновиком. sessions может быть nil (только гости).
func NewOrchestrator(cart Cart, ledger OrderLedger, sessions SessionProvider, logger *log.Entry, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	o := &Orchestrator{
		cart:        cart,
		ledger:      ledger,
		sessions:    sessions,
		draft:       domain.NewCheckoutDraft(),
		state:       domain.CheckoutIdle,
		newOrderID:  NewOrderID,
		newTracking: NewTrackingNumber,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewOrderID формирует номер вида ORD-<unix millis>-<6 hex>.
// Случайный суффикс исключает коллизии при двух заказах в одну миллисекунду.
func NewOrderID(now time.Time) string {
	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		return fmt.Sprintf("ORD-%d-%06X", now.UnixMilli(), now.UnixNano()&0xFFFFFF)
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), strings.ToUpper(hex.EncodeToString(suffix)))
}

// NewTrackingNumber формирует трек-номер TRK + 9 цифр.
func NewTrackingNumber() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000_000))
	if err != nil {
		return "TRK" + strconv.FormatInt(time.Now().UnixNano()%1_000_000_000, 10)
	}
	return fmt.Sprintf("TRK%09d", n.Int64())
}

// UpdateShipping переносит непустые поля patch в черновик.
func (o *Orchestrator) UpdateShipping(patch domain.ShippingInfo) domain.CheckoutDraft {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft.MergeShipping(patch)
	o.draftRev++
	return o.draft
}

// SetPaymentMethod выбирает способ оплаты. Значение проверяется при Submit.
func (o *Orchestrator) SetPaymentMethod(method domain.PaymentMethod) domain.CheckoutDraft {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft.PaymentMethod = method
	o.draftRev++
	return o.draft
}

// SetCard сохраняет реквизиты карты в черновике.
func (o *Orchestrator) SetCard(card domain.CardDetails) domain.CheckoutDraft {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft.Card = card
	o.draftRev++
	return o.draft
}

// SetNotes сохраняет комментарий к заказу.
func (o *Orchestrator) SetNotes(notes string) domain.CheckoutDraft {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft.Notes = notes
	o.draftRev++
	return o.draft
}

// Draft возвращает копию черновика.
func (o *Orchestrator) Draft() domain.CheckoutDraft {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.draft
}

// ResetDraft сбрасывает черновик и ошибки, состояние возвращается в Idle.
func (o *Orchestrator) ResetDraft() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.draft = domain.NewCheckoutDraft()
	o.draftRev++
	o.lastErrors = nil
	o.state = domain.CheckoutIdle
}

// PrefillFromSession заполняет пустые поля доставки данными пользователя.
func (o *Orchestrator) PrefillFromSession(sess domain.Session) domain.CheckoutDraft {
	o.mu.Lock()
	defer o.mu.Unlock()

	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&o.draft.Shipping.FirstName, sess.FirstName())
	fill(&o.draft.Shipping.LastName, sess.LastName())
	fill(&o.draft.Shipping.Email, sess.Email)
	o.draftRev++
	return o.draft
}

// State возвращает текущее состояние оформления.
func (o *Orchestrator) State() domain.CheckoutState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// InProgress сообщает, выполняется ли сейчас Submit.
func (o *Orchestrator) InProgress() bool {
	return o.inProgress.Load()
}

// LastErrors возвращает ошибки последней неудачной валидации или nil.
func (o *Orchestrator) LastErrors() *domain.ValidationErrors {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.lastErrors == nil {
		return nil
	}
	copied := domain.NewValidationErrors()
	for field, msg := range o.lastErrors.Fields {
		copied.Set(field, msg)
	}
	return copied
}

// LastOrder возвращает последний оформленный заказ для страницы подтверждения.
func (o *Orchestrator) LastOrder() (domain.Order, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.lastOrder == nil {
		return domain.Order{}, false
	}
	return o.lastOrder.Clone(), true
}

// Submit проверяет черновик, фиксирует заказ в истории и очищает корзину.
//
// Ошибки:
//   - domain.ErrCheckoutInProgress — уже выполняется другой Submit;
//   - domain.ErrSessionRequired — оформление разрешено только после входа;
//   - *domain.ValidationErrors — черновик или корзина не прошли проверку, история не менялась;
//   - *domain.SubmissionError — заказ не удалось зафиксировать, корзина не тронута.
func (o *Orchestrator) Submit(ctx context.Context) (domain.Order, error) {
	if !o.inProgress.CompareAndSwap(false, true) {
		o.metrics.RecordCheckout(metrics.CheckoutResultInProgress, 0)
		return domain.Order{}, domain.ErrCheckoutInProgress
	}
	defer o.inProgress.Store(false)

	o.metrics.CheckoutStarted()
	defer o.metrics.CheckoutFinished()
	start := time.Now()

	sess, loggedIn := o.currentSession()
	if o.requireSession && !loggedIn {
		o.metrics.RecordCheckout(metrics.CheckoutResultSessionRequired, time.Since(start))
		return domain.Order{}, domain.ErrSessionRequired
	}

	o.mu.Lock()
	o.state = domain.CheckoutValidating
	draft, rev := o.draft, o.draftRev
	o.mu.Unlock()
	cart := o.cart.Snapshot()

	if verrs := Validate(draft, cart); !verrs.Empty() {
		o.mu.Lock()
		o.state = domain.CheckoutFailed
		o.lastErrors = verrs
		o.mu.Unlock()

		o.metrics.RecordCheckout(metrics.CheckoutResultValidationFailed, time.Since(start))
		o.logger.WithField("fields", len(verrs.Fields)).Debug("checkout validation failed")
		return domain.Order{}, verrs
	}

	o.setState(domain.CheckoutSubmitting)

	order, err := o.buildOrder(draft, cart, sess, loggedIn)
	if err == nil {
		err = o.ledger.Add(ctx, order)
	}
	if err != nil {
		o.mu.Lock()
		o.state = domain.CheckoutFailed
		o.lastErrors = nil
		o.mu.Unlock()

		o.metrics.RecordCheckout(metrics.CheckoutResultSubmissionFailed, time.Since(start))
		o.logger.WithError(err).WithField("order_id", order.ID).Error("order submission failed")
		return domain.Order{}, domain.NewSubmissionError(err)
	}

	// Из корзины уходит только то, что сохранено в заказе; добавленное во время Submit остаётся.
	o.cart.RemoveCommitted(ctx, cart.Items)

	o.mu.Lock()
	committed := order.Clone()
	o.lastOrder = &committed
	o.lastErrors = nil
	// Правки черновика, сделанные во время Submit, не затираются.
	if o.draftRev == rev {
		o.draft = domain.NewCheckoutDraft()
		o.draftRev++
	}
	o.state = domain.CheckoutCommitted
	o.mu.Unlock()

	o.metrics.RecordCheckout(metrics.CheckoutResultCommitted, time.Since(start))
	o.logger.WithFields(log.Fields{
		"order_id":       order.ID,
		"total":          order.Total.StringFixed(2),
		"items":          len(order.Items),
		"payment_method": order.PaymentMethod,
		"guest":          !loggedIn,
	}).Info("order placed")

	return order, nil
}

func (o *Orchestrator) buildOrder(draft domain.CheckoutDraft, cart domain.CartSnapshot, sess domain.Session, loggedIn bool) (domain.Order, error) {
	now := o.now().UTC()
	order := domain.Order{
		ID:             o.newOrderID(now),
		Date:           now,
		Items:          domain.OrderItemsFromCart(cart.Items),
		Total:          cart.Total,
		Status:         domain.OrderStatusProcessing,
		ShippingInfo:   draft.Shipping,
		PaymentMethod:  draft.PaymentMethod,
		PaymentStatus:  domain.PaymentStatusPending,
		TrackingNumber: o.newTracking(),
		Notes:          strings.TrimSpace(draft.Notes),
	}
	if loggedIn {
		id := sess.ID
		order.CustomerID = &id
	}

	if !order.ItemsTotal().Equal(order.Total) {
		return order, fmt.Errorf("%w: cart total %s, items sum %s",
			domain.ErrAmountMismatch, order.Total.StringFixed(2), order.ItemsTotal().StringFixed(2))
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return order, errors.Join(errs...)
	}
	return order, nil
}

func (o *Orchestrator) currentSession() (domain.Session, bool) {
	if o.sessions == nil {
		return domain.Session{}, false
	}
	return o.sessions.Current()
}

func (o *Orchestrator) setState(state domain.CheckoutState) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}
