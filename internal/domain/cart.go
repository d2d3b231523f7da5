package domain

import "github.com/shopspring/decimal"

// LineItem представляет одну позицию корзины: снимок товара плюс количество.
type LineItem struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Brand     string          `json:"brand,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Thumbnail string          `json:"thumbnail,omitempty"`
	// Stock фиксирует остаток на момент добавления; остаток проверяет представление.
	Stock int `json:"stock"`
}

// Subtotal возвращает price × quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// NewLineItem снимает отображаемые поля товара в позицию корзины.
func NewLineItem(p Product, quantity int) LineItem {
	return LineItem{
		ProductID: p.Key(),
		Title:     p.Title,
		Brand:     p.Brand,
		Price:     p.Price,
		Quantity:  quantity,
		Thumbnail: p.Thumbnail,
		Stock:     p.Stock,
	}
}

// CartSnapshot представляет неизменяемую копию корзины с производными значениями.
type CartSnapshot struct {
	Items []LineItem      `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// NewCartSnapshot копирует позиции и вычисляет count/total.
func NewCartSnapshot(items []LineItem) CartSnapshot {
	copied := make([]LineItem, len(items))
	copy(copied, items)
	return CartSnapshot{
		Items: copied,
		Count: CountItems(copied),
		Total: SumItems(copied),
	}
}

// CountItems возвращает сумму количеств.
func CountItems(items []LineItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

// SumItems возвращает сумму price × quantity.
func SumItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
