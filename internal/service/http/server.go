package httpsvc

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/ledger"
	"github.com/vladislavdragonenkov/storefront/internal/service/session"
)

const defaultRequestTimeout = 10 * time.Second

// Deps содержит сервисы, которые обслуживает HTTP API.
type Deps struct {
	Catalog  domain.ProductSource
	Cart     *cart.Store
	Checkout *checkout.Orchestrator
	Ledger   *ledger.Ledger
	Sessions *session.Store
}

// Server обслуживает JSON API витрины поверх chi.
type Server struct {
	catalog  domain.ProductSource
	cart     *cart.Store
	checkout *checkout.Orchestrator
	ledger   *ledger.Ledger
	sessions *session.Store

	timeout time.Duration
	logger  *log.Entry
}

// NewServer создаёт HTTP API. timeout <= 0 заменяется значением по умолчанию.
func NewServer(deps Deps, timeout time.Duration, logger *log.Entry) *Server {
	if logger == nil {
		logger = log.New().WithField("component", "http")
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Server{
		catalog:  deps.Catalog,
		cart:     deps.Cart,
		checkout: deps.Checkout,
		ledger:   deps.Ledger,
		sessions: deps.Sessions,
		timeout:  timeout,
		logger:   logger,
	}
}

// Routes собирает роутер со стандартными middleware.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.listProducts)
			r.Get("/{id}", s.getProduct)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", s.getCart)
			r.Delete("/", s.clearCart)
			r.Post("/items", s.addCartItem)
			r.Put("/items/{productID}", s.setCartItemQuantity)
			r.Delete("/items/{productID}", s.removeCartItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", s.getCheckout)
			r.Delete("/", s.resetCheckout)
			r.Patch("/shipping", s.updateShipping)
			r.Put("/payment", s.setPayment)
			r.Put("/notes", s.setNotes)
			r.Post("/submit", s.submitCheckout)
			r.Get("/confirmation", s.getConfirmation)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", s.listOrders)
			r.Delete("/", s.clearOrders)
			r.Get("/{id}", s.getOrder)
			r.Post("/{id}/cancel", s.cancelOrder)
			r.Put("/{id}/status", s.updateOrderStatus)
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.logout)
			r.Post("/login", s.login)
			r.Post("/register", s.register)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	return r
}
