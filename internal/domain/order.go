package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа в истории.
type OrderStatus string

const (
	// OrderStatusProcessing — заказ принят и собирается.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ получен клиентом.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal сообщает, что из статуса нет переходов.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo разрешает только движение вперёд:
// processing → shipped → delivered, отмена возможна из processing и shipped.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusProcessing:
		return next == OrderStatusShipped || next == OrderStatusCancelled
	case OrderStatusShipped:
		return next == OrderStatusDelivered || next == OrderStatusCancelled
	default:
		return false
	}
}

// PaymentMethod определяет способ оплаты, выбранный при оформлении.
type PaymentMethod string

const (
	PaymentMethodCreditCard   PaymentMethod = "creditCard"
	PaymentMethodPayPal       PaymentMethod = "paypal"
	PaymentMethodBankTransfer PaymentMethod = "bankTransfer"
)

// Valid проверяет способ оплаты.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodPayPal, PaymentMethodBankTransfer:
		return true
	default:
		return false
	}
}

// PaymentStatus определяет состояние оплаты заказа. Реальная оплата не проводится.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// ShippingInfo содержит адрес и контакты получателя.
type ShippingInfo struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

// FullName склеивает имя и фамилию для отображения.
func (s ShippingInfo) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	default:
		return s.FirstName + " " + s.LastName
	}
}

// OrderItem хранит копию позиции корзины на момент оформления.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Thumbnail string          `json:"thumbnail,omitempty"`
}

// Subtotal возвращает price × quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order представляет зафиксированный заказ. После создания меняется только Status.
type Order struct {
	ID             string          `json:"id"`
	Date           time.Time       `json:"date"`
	Items          []OrderItem     `json:"items"`
	Total          decimal.Decimal `json:"total"`
	Status         OrderStatus     `json:"status"`
	ShippingInfo   ShippingInfo    `json:"shippingInfo"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod"`
	PaymentStatus  PaymentStatus   `json:"paymentStatus,omitempty"`
	TrackingNumber string          `json:"trackingNumber,omitempty"`
	CustomerID     *string         `json:"customerId"`
	Notes          string          `json:"notes,omitempty"`
}

// OrderItemsFromCart делает глубокую копию позиций корзины.
func OrderItemsFromCart(items []LineItem) []OrderItem {
	result := make([]OrderItem, 0, len(items))
	for _, item := range items {
		result = append(result, OrderItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Thumbnail: item.Thumbnail,
		})
	}
	return result
}

// ItemsTotal пересчитывает сумму по позициям.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ValidateShape проверяет структурную форму заказа: id, дата и массив позиций.
// Используется историей заказов при добавлении.
func (o *Order) ValidateShape() error {
	if o == nil || o.ID == "" || o.Date.IsZero() || o.Items == nil {
		return ErrInvalidOrder
	}
	return nil
}

// ValidateInvariants проверяет бизнес-инварианты и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrInvalidStatus)
	}
	for _, item := range o.Items {
		if item.Quantity < 1 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.Price.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}
	if !o.ItemsTotal().Equal(o.Total) {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}

// Clone возвращает копию заказа без общих срезов и указателей.
func (o Order) Clone() Order {
	dst := o
	if o.Items != nil {
		dst.Items = make([]OrderItem, len(o.Items))
		copy(dst.Items, o.Items)
	}
	if o.CustomerID != nil {
		id := *o.CustomerID
		dst.CustomerID = &id
	}
	return dst
}

// StepState определяет отображаемое состояние шага доставки.
type StepState string

const (
	StepComplete  StepState = "complete"
	StepPending   StepState = "pending"
	StepCancelled StepState = "cancelled"
)

// StatusStep описывает один шаг на шкале processing → shipped → delivered.
type StatusStep struct {
	ID    OrderStatus `json:"id"`
	Name  string      `json:"name"`
	State StepState   `json:"status"`
}

// StatusSteps строит шкалу прогресса заказа для страницы деталей.
// Для отменённого заказа все шаги после processing помечаются cancelled.
func StatusSteps(status OrderStatus) []StatusStep {
	steps := []StatusStep{
		{ID: OrderStatusProcessing, Name: "Processing", State: StepComplete},
		{ID: OrderStatusShipped, Name: "Shipped", State: StepPending},
		{ID: OrderStatusDelivered, Name: "Delivered", State: StepPending},
	}

	switch status {
	case OrderStatusShipped:
		steps[1].State = StepComplete
	case OrderStatusDelivered:
		steps[1].State = StepComplete
		steps[2].State = StepComplete
	case OrderStatusCancelled:
		steps[1].State = StepCancelled
		steps[2].State = StepCancelled
	}

	return steps
}
