package httpsvc

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
)

type productsResponse struct {
	Products []domain.Product `json:"products"`
	Error    string           `json:"error,omitempty"`
}

// listProducts отдаёт страницу каталога с поиском, фильтрами и сортировкой.
// Сбой каталога не ломает страницу: пустой список и сообщение.
func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter, ferr := parseProductFilter(query)
	if ferr != nil {
		respondError(w, http.StatusBadRequest, "invalid_filter", ferr.Error())
		return
	}

	var (
		products []domain.Product
		err      error
	)
	if category := query.Get("category"); category != "" {
		products, err = s.catalog.ListByCategory(ctx, category)
	} else {
		limit := 0
		if raw := query.Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 0 {
				respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
				return
			}
		}
		products, err = s.catalog.List(ctx, limit)
	}

	if err != nil {
		s.logger.WithError(err).Warn("catalog listing degraded")
		respondJSON(w, http.StatusOK, productsResponse{
			Products: []domain.Product{},
			Error:    "Failed to load products",
		})
		return
	}
	respondJSON(w, http.StatusOK, productsResponse{Products: filter.Apply(products)})
}

// parseProductFilter читает q, minPrice, maxPrice, minRating, inStock и sort.
func parseProductFilter(query url.Values) (catalog.Filter, error) {
	filter := catalog.Filter{
		Search: query.Get("q"),
		Sort:   catalog.SortOption(query.Get("sort")),
	}

	parsePrice := func(name string) (*decimal.Decimal, error) {
		raw := query.Get(name)
		if raw == "" {
			return nil, nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number", name)
		}
		return &d, nil
	}

	var err error
	if filter.MinPrice, err = parsePrice("minPrice"); err != nil {
		return catalog.Filter{}, err
	}
	if filter.MaxPrice, err = parsePrice("maxPrice"); err != nil {
		return catalog.Filter{}, err
	}
	if raw := query.Get("minRating"); raw != "" {
		if filter.MinRating, err = strconv.ParseFloat(raw, 64); err != nil {
			return catalog.Filter{}, errors.New("minRating must be a number")
		}
	}
	if raw := query.Get("inStock"); raw != "" {
		if filter.InStock, err = strconv.ParseBool(raw); err != nil {
			return catalog.Filter{}, errors.New("inStock must be a boolean")
		}
	}

	if err := filter.Validate(); err != nil {
		return catalog.Filter{}, err
	}
	return filter, nil
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_id", "product id must be a positive integer")
		return
	}

	product, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}
