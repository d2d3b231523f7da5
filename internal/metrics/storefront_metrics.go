package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Исходы оформления заказа для checkout_results_total.
const (
	CheckoutResultCommitted        = "committed"
	CheckoutResultValidationFailed = "validation_failed"
	CheckoutResultSubmissionFailed = "submission_failed"
	CheckoutResultInProgress       = "in_progress"
	CheckoutResultSessionRequired  = "session_required"
)

// StorefrontMetrics содержит метрики корзины, оформления, истории заказов и каталога.
// Все методы безопасны для nil-получателя, чтобы сервисы можно было собирать без метрик.
type StorefrontMetrics struct {
	// Оформление заказа
	checkoutResults  *prometheus.CounterVec
	checkoutDuration prometheus.Histogram
	checkoutInFlight prometheus.Gauge

	// История заказов
	ordersCreated       prometheus.Counter
	orderStatusChanges  *prometheus.CounterVec
	ledgerOrders        prometheus.Gauge
	persistenceFailures *prometheus.CounterVec

	// Корзина
	cartMutations *prometheus.CounterVec
	cartItems     prometheus.Gauge

	// Каталог и сессия
	catalogRequests *prometheus.CounterVec
	catalogDuration *prometheus.HistogramVec
	loginAttempts   *prometheus.CounterVec
}

// NewStorefrontMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewStorefrontMetrics() *StorefrontMetrics {
	return NewStorefrontMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewStorefrontMetricsWithRegisterer регистрирует метрики в переданном реестре.
func NewStorefrontMetricsWithRegisterer(registerer prometheus.Registerer) *StorefrontMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StorefrontMetrics{
		checkoutResults: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_results_total",
			Help: "Checkout submissions by outcome",
		}, []string{"result"}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_checkout_duration_seconds",
			Help:    "Duration of checkout submissions in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		checkoutInFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_checkout_in_flight",
			Help: "Checkout submissions currently running",
		}),
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Orders appended to the order history",
		}),
		orderStatusChanges: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_order_status_changes_total",
			Help: "Order status transitions by target status",
		}, []string{"status"}),
		ledgerOrders: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_ledger_orders",
			Help: "Orders currently held in the order history",
		}),
		persistenceFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_persistence_failures_total",
			Help: "Failed reads or writes of persisted blobs",
		}, []string{"store", "op"}),
		cartMutations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart mutations by operation",
		}, []string{"op"}),
		cartItems: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_cart_items",
			Help: "Total quantity of items in the cart",
		}),
		catalogRequests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_catalog_requests_total",
			Help: "Catalog requests by operation and outcome",
		}, []string{"op", "outcome"}),
		catalogDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_catalog_request_duration_seconds",
			Help:    "Catalog request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		loginAttempts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_login_attempts_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
	}
}

// RecordCheckout фиксирует исход и длительность оформления.
func (m *StorefrontMetrics) RecordCheckout(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.checkoutResults.WithLabelValues(result).Inc()
	m.checkoutDuration.Observe(duration.Seconds())
}

// CheckoutStarted увеличивает число активных оформлений.
func (m *StorefrontMetrics) CheckoutStarted() {
	if m == nil {
		return
	}
	m.checkoutInFlight.Inc()
}

// CheckoutFinished уменьшает число активных оформлений.
func (m *StorefrontMetrics) CheckoutFinished() {
	if m == nil {
		return
	}
	m.checkoutInFlight.Dec()
}

// RecordOrderCreated учитывает новый заказ и текущий размер истории.
func (m *StorefrontMetrics) RecordOrderCreated(ledgerSize int) {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
	m.ledgerOrders.Set(float64(ledgerSize))
}

// RecordStatusChange учитывает смену статуса заказа.
func (m *StorefrontMetrics) RecordStatusChange(status string) {
	if m == nil {
		return
	}
	m.orderStatusChanges.WithLabelValues(status).Inc()
}

// SetLedgerSize выставляет размер истории заказов.
func (m *StorefrontMetrics) SetLedgerSize(size int) {
	if m == nil {
		return
	}
	m.ledgerOrders.Set(float64(size))
}

// RecordPersistenceFailure учитывает ошибку чтения или записи блоба.
func (m *StorefrontMetrics) RecordPersistenceFailure(store, op string) {
	if m == nil {
		return
	}
	m.persistenceFailures.WithLabelValues(store, op).Inc()
}

// RecordCartMutation учитывает изменение корзины и её текущий размер.
func (m *StorefrontMetrics) RecordCartMutation(op string, itemCount int) {
	if m == nil {
		return
	}
	m.cartMutations.WithLabelValues(op).Inc()
	m.cartItems.Set(float64(itemCount))
}

// RecordCatalogRequest учитывает обращение к каталогу.
func (m *StorefrontMetrics) RecordCatalogRequest(op, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.catalogRequests.WithLabelValues(op, outcome).Inc()
	m.catalogDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordLogin учитывает попытку входа.
func (m *StorefrontMetrics) RecordLogin(result string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(result).Inc()
}
