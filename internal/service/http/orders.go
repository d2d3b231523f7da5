package httpsvc

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type ordersResponse struct {
	Orders []domain.Order `json:"orders"`
	Notice string         `json:"notice,omitempty"`
}

type statusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

// listOrders отдаёт историю заказов, с mine=true только заказы текущего пользователя.
func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	var orders []domain.Order
	if r.URL.Query().Get("mine") == "true" {
		sess, ok := s.currentSession(r)
		if !ok {
			respondError(w, http.StatusUnauthorized, "unauthenticated", domain.ErrUnauthenticated.Error())
			return
		}
		orders = s.ledger.ListByCustomer(sess.ID)
	} else {
		orders = s.ledger.List()
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	respondJSON(w, http.StatusOK, ordersResponse{Orders: orders, Notice: s.ledger.Notice()})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.ledger.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orderResponse{Order: order, Steps: domain.StatusSteps(order.Status)})
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.ledger.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orderResponse{Order: order, Steps: domain.StatusSteps(order.Status)})
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	order, err := s.ledger.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orderResponse{Order: order, Steps: domain.StatusSteps(order.Status)})
}

func (s *Server) clearOrders(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Clear(r.Context()); err != nil {
		s.respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
