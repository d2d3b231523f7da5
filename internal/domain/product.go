package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Product представляет запись удалённого каталога товаров. Ядро её не изменяет.
type Product struct {
	ID                 int64           `json:"id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage float64         `json:"discountPercentage"`
	Rating             float64         `json:"rating"`
	Stock              int             `json:"stock"`
	Brand              string          `json:"brand"`
	Category           string          `json:"category"`
	Thumbnail          string          `json:"thumbnail"`
	Images             []string        `json:"images"`
	Meta               *ProductMeta    `json:"meta,omitempty"`
}

// ProductMeta содержит служебные даты записи каталога.
type ProductMeta struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreatedAt возвращает дату появления товара или нулевое время, если каталог её не прислал.
func (p Product) CreatedAt() time.Time {
	if p.Meta == nil {
		return time.Time{}
	}
	return p.Meta.CreatedAt
}

// Key возвращает идентификатор товара в виде ключа корзины.
func (p Product) Key() string {
	return strconv.FormatInt(p.ID, 10)
}
