package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// SortOption задаёт порядок выдачи товаров.
type SortOption string

const (
	SortFeatured  SortOption = "featured"
	SortPriceLow  SortOption = "price-low"
	SortPriceHigh SortOption = "price-high"
	SortRating    SortOption = "rating"
	SortNewest    SortOption = "newest"
)

// Valid проверяет, что порядок известен. Пустое значение означает SortFeatured.
func (s SortOption) Valid() bool {
	switch s {
	case "", SortFeatured, SortPriceLow, SortPriceHigh, SortRating, SortNewest:
		return true
	default:
		return false
	}
}

// Filter описывает поиск, фильтры и сортировку списка товаров. Нулевое значение пропускает всё как есть.
type Filter struct {
	// Search ищется без учёта регистра в названии и описании.
	Search    string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	MinRating float64
	InStock   bool
	Sort      SortOption
}

// Validate отклоняет противоречивые параметры.
func (f Filter) Validate() error {
	if !f.Sort.Valid() {
		return fmt.Errorf("unknown sort option %q", f.Sort)
	}
	if f.MinPrice != nil && f.MinPrice.IsNegative() {
		return errors.New("minPrice must not be negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return fmt.Errorf("minPrice %s exceeds maxPrice %s", f.MinPrice, f.MaxPrice)
	}
	if f.MinRating < 0 || f.MinRating > 5 {
		return errors.New("minRating must be between 0 and 5")
	}
	return nil
}

// Match сообщает, проходит ли товар фильтры.
func (f Filter) Match(p domain.Product) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(p.Title), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if p.Rating < f.MinRating {
		return false
	}
	return !f.InStock || p.Stock > 0
}

// Apply возвращает новый срез отфильтрованных и отсортированных товаров. Исходный срез не меняется.
// Сортировка стабильная: при равенстве сохраняется порядок каталога.
func (f Filter) Apply(products []domain.Product) []domain.Product {
	result := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			result = append(result, p)
		}
	}

	switch f.Sort {
	case SortPriceLow:
		slices.SortStableFunc(result, func(a, b domain.Product) int { return a.Price.Cmp(b.Price) })
	case SortPriceHigh:
		slices.SortStableFunc(result, func(a, b domain.Product) int { return b.Price.Cmp(a.Price) })
	case SortRating:
		slices.SortStableFunc(result, func(a, b domain.Product) int {
			switch {
			case a.Rating > b.Rating:
				return -1
			case a.Rating < b.Rating:
				return 1
			default:
				return 0
			}
		})
	case SortNewest:
		slices.SortStableFunc(result, func(a, b domain.Product) int { return b.CreatedAt().Compare(a.CreatedAt()) })
	}
	return result
}
