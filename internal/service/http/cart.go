package httpsvc

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type addItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (s *Server) getCart(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.cart.Snapshot())
}

// addCartItem подтягивает товар из каталога и кладёт его в корзину с учётом остатка.
func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "productId is required")
		return
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	product, err := s.catalog.Get(r.Context(), req.ProductID)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	inCart := 0
	for _, item := range s.cart.Items() {
		if item.ProductID == product.Key() {
			inCart = item.Quantity
			break
		}
	}
	if inCart+req.Quantity > product.Stock {
		respondError(w, http.StatusConflict, "insufficient_stock", "Not enough stock")
		return
	}

	respondJSON(w, http.StatusCreated, s.cart.Add(r.Context(), product, req.Quantity))
}

func (s *Server) setCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	var req quantityRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	found := false
	for _, item := range s.cart.Items() {
		if item.ProductID != productID {
			continue
		}
		found = true
		if req.Quantity > item.Stock {
			respondError(w, http.StatusConflict, "insufficient_stock", "Not enough stock")
			return
		}
	}
	if !found {
		respondError(w, http.StatusNotFound, "item_not_found", "Item is not in the cart")
		return
	}

	respondJSON(w, http.StatusOK, s.cart.SetQuantity(r.Context(), productID, req.Quantity))
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.cart.Remove(r.Context(), chi.URLParam(r, "productID")))
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	s.cart.Clear(r.Context())
	respondJSON(w, http.StatusOK, s.cart.Snapshot())
}
