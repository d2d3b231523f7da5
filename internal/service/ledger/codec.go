package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// orderRecord задаёт формат заказа в блобе "orders". Денежные поля хранятся JSON-числами.
type orderRecord struct {
	ID             string               `json:"id"`
	Date           time.Time            `json:"date"`
	Items          []itemRecord         `json:"items"`
	Total          json.RawMessage      `json:"total"`
	Status         domain.OrderStatus   `json:"status"`
	ShippingInfo   domain.ShippingInfo  `json:"shippingInfo"`
	PaymentMethod  domain.PaymentMethod `json:"paymentMethod"`
	PaymentStatus  domain.PaymentStatus `json:"paymentStatus,omitempty"`
	TrackingNumber string               `json:"trackingNumber,omitempty"`
	CustomerID     *string              `json:"customerId"`
	Notes          string               `json:"notes,omitempty"`
}

type itemRecord struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Price     json.RawMessage `json:"price"`
	Quantity  int             `json:"quantity"`
	Thumbnail string          `json:"thumbnail,omitempty"`
}

func encodeOrders(orders []domain.Order) ([]byte, error) {
	records := make([]orderRecord, 0, len(orders))
	for _, order := range orders {
		items := make([]itemRecord, 0, len(order.Items))
		for _, item := range order.Items {
			items = append(items, itemRecord{
				ProductID: item.ProductID,
				Title:     item.Title,
				Price:     json.RawMessage(item.Price.String()),
				Quantity:  item.Quantity,
				Thumbnail: item.Thumbnail,
			})
		}
		records = append(records, orderRecord{
			ID:             order.ID,
			Date:           order.Date,
			Items:          items,
			Total:          json.RawMessage(order.Total.String()),
			Status:         order.Status,
			ShippingInfo:   order.ShippingInfo,
			PaymentMethod:  order.PaymentMethod,
			PaymentStatus:  order.PaymentStatus,
			TrackingNumber: order.TrackingNumber,
			CustomerID:     order.CustomerID,
			Notes:          order.Notes,
		})
	}
	return json.Marshal(records)
}

// decodeOrders разбирает блоб целиком: любая некорректная запись делает невалидным весь набор.
func decodeOrders(raw []byte) ([]domain.Order, error) {
	var records []orderRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	if records == nil {
		return nil, fmt.Errorf("orders blob is not an array")
	}

	orders := make([]domain.Order, 0, len(records))
	for i, rec := range records {
		order, err := rec.toOrder()
		if err != nil {
			return nil, fmt.Errorf("order #%d: %w", i, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (r orderRecord) toOrder() (domain.Order, error) {
	total, err := decodeNumber(r.Total)
	if err != nil {
		return domain.Order{}, fmt.Errorf("total: %w", err)
	}

	var items []domain.OrderItem
	if r.Items != nil {
		items = make([]domain.OrderItem, 0, len(r.Items))
		for _, rec := range r.Items {
			price, err := decodeNumber(rec.Price)
			if err != nil {
				return domain.Order{}, fmt.Errorf("item %q price: %w", rec.ProductID, err)
			}
			items = append(items, domain.OrderItem{
				ProductID: rec.ProductID,
				Title:     rec.Title,
				Price:     price,
				Quantity:  rec.Quantity,
				Thumbnail: rec.Thumbnail,
			})
		}
	}

	order := domain.Order{
		ID:             r.ID,
		Date:           r.Date,
		Items:          items,
		Total:          total,
		Status:         r.Status,
		ShippingInfo:   r.ShippingInfo,
		PaymentMethod:  r.PaymentMethod,
		PaymentStatus:  r.PaymentStatus,
		TrackingNumber: r.TrackingNumber,
		CustomerID:     r.CustomerID,
		Notes:          r.Notes,
	}
	if err := order.ValidateShape(); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// decodeNumber принимает только JSON-число: строки и null считаются повреждением.
func decodeNumber(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' || bytes.Equal(raw, []byte("null")) {
		return decimal.Decimal{}, fmt.Errorf("expected a number, got %q", string(raw))
	}
	return decimal.NewFromString(string(raw))
}
