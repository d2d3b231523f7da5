package httpsvc

import (
	"net/http"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type checkoutResponse struct {
	Draft      domain.CheckoutDraft `json:"draft"`
	State      domain.CheckoutState `json:"state"`
	InProgress bool                 `json:"inProgress"`
	Errors     map[string]string    `json:"errors,omitempty"`
	Cart       domain.CartSnapshot  `json:"cart"`
}

type paymentRequest struct {
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	Card          *domain.CardDetails  `json:"card,omitempty"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type orderResponse struct {
	Order domain.Order        `json:"order"`
	Steps []domain.StatusStep `json:"steps"`
}

func (s *Server) checkoutView() checkoutResponse {
	draft := s.checkout.Draft()
	draft.Card = draft.Card.Masked()

	resp := checkoutResponse{
		Draft:      draft,
		State:      s.checkout.State(),
		InProgress: s.checkout.InProgress(),
		Cart:       s.cart.Snapshot(),
	}
	if verrs := s.checkout.LastErrors(); !verrs.Empty() {
		resp.Errors = verrs.Fields
	}
	return resp
}

func (s *Server) getCheckout(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.checkoutView())
}

func (s *Server) resetCheckout(w http.ResponseWriter, _ *http.Request) {
	s.checkout.ResetDraft()
	respondJSON(w, http.StatusOK, s.checkoutView())
}

func (s *Server) updateShipping(w http.ResponseWriter, r *http.Request) {
	var patch domain.ShippingInfo
	if err := decodeBody(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	s.checkout.UpdateShipping(patch)
	respondJSON(w, http.StatusOK, s.checkoutView())
}

func (s *Server) setPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	s.checkout.SetPaymentMethod(req.PaymentMethod)
	if req.Card != nil {
		s.checkout.SetCard(*req.Card)
	}
	respondJSON(w, http.StatusOK, s.checkoutView())
}

func (s *Server) setNotes(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	s.checkout.SetNotes(req.Notes)
	respondJSON(w, http.StatusOK, s.checkoutView())
}

// submitCheckout: 201 с заказом, 422 с ошибками полей, 409 при параллельной отправке, 500 при сбое фиксации.
func (s *Server) submitCheckout(w http.ResponseWriter, r *http.Request) {
	order, err := s.checkout.Submit(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, orderResponse{Order: order, Steps: domain.StatusSteps(order.Status)})
}

func (s *Server) getConfirmation(w http.ResponseWriter, _ *http.Request) {
	order, ok := s.checkout.LastOrder()
	if !ok {
		respondError(w, http.StatusNotFound, "order_not_found", "No order has been placed yet")
		return
	}
	respondJSON(w, http.StatusOK, orderResponse{Order: order, Steps: domain.StatusSteps(order.Status)})
}
