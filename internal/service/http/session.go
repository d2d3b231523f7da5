package httpsvc

import (
	"net/http"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Authenticated bool            `json:"authenticated"`
	User          *domain.Session `json:"user"`
}

// currentSession предпочитает сессию из токена запроса, иначе берёт текущую сессию витрины.
func (s *Server) currentSession(r *http.Request) (domain.Session, bool) {
	if sess, ok := sessionFromContext(r.Context()); ok {
		return sess, true
	}
	return s.sessions.Current()
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(r)
	if !ok {
		respondJSON(w, http.StatusOK, sessionResponse{})
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{Authenticated: true, User: &sess})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	sess, err := s.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.checkout.PrefillFromSession(sess)
	respondJSON(w, http.StatusOK, sessionResponse{Authenticated: true, User: &sess})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var profile domain.Profile
	if err := decodeBody(r, &profile); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	sess, err := s.sessions.Register(r.Context(), profile)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.checkout.PrefillFromSession(sess)
	respondJSON(w, http.StatusCreated, sessionResponse{Authenticated: true, User: &sess})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
