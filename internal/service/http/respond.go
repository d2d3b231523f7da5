package httpsvc

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const maxRequestBody = 1 << 20

// ErrorResponse описывает тело ответа с ошибкой.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// respondDomainError переводит доменную ошибку в HTTP-статус.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	var verrs *domain.ValidationErrors
	var subErr *domain.SubmissionError

	switch {
	case errors.As(err, &verrs):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "validation failed",
			Code:   "validation_failed",
			Fields: verrs.Fields,
		})
	case errors.As(err, &subErr):
		respondError(w, http.StatusInternalServerError, "submission_failed", subErr.Message)
	case errors.Is(err, domain.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "Order not found")
	case errors.Is(err, domain.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "Product not found")
	case errors.Is(err, domain.ErrInvalidStatus):
		respondError(w, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		respondError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, domain.ErrCheckoutInProgress):
		respondError(w, http.StatusConflict, "checkout_in_progress", err.Error())
	case errors.Is(err, domain.ErrSessionRequired), errors.Is(err, domain.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	case errors.Is(err, domain.ErrEmailTaken):
		respondError(w, http.StatusConflict, "email_taken", err.Error())
	case errors.Is(err, domain.ErrProfileIncomplete):
		respondError(w, http.StatusBadRequest, "profile_incomplete", err.Error())
	case errors.Is(err, domain.ErrCatalogUnavailable):
		respondError(w, http.StatusServiceUnavailable, "catalog_unavailable", "Product catalog is unavailable")
	default:
		s.logger.WithError(err).Error("unhandled error")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
