package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/ledger"
	"github.com/vladislavdragonenkov/storefront/internal/service/session"
)

// Dependencies содержит сервисы одной сессии витрины. Каждый стор существует в единственном экземпляре.
type Dependencies struct {
	Blobs    domain.BlobStore
	Catalog  *catalog.Client
	Cart     *cart.Store
	Ledger   *ledger.Ledger
	Sessions *session.Store
	Checkout *checkout.Orchestrator
	Metrics  *metrics.StorefrontMetrics
	Logger   *log.Entry
}

// NewDependencies собирает сервисы поверх хранилища блобов. publisher может быть nil.
func NewDependencies(
	cfg Config,
	blobs domain.BlobStore,
	publisher domain.OrderEventPublisher,
	m *metrics.StorefrontMetrics,
	logger *log.Entry,
) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	directory, err := session.NewDirectory(cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("init account directory: %w", err)
	}
	tokens, err := session.NewTokenIssuer([]byte(cfg.TokenSecret), cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	ledgerOpts := []ledger.Option{ledger.WithMetrics(m)}
	if publisher != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithPublisher(publisher))
	}

	cartStore := cart.NewStore(blobs, logger.WithField("component", "cart"), m)
	orders := ledger.New(blobs, logger.WithField("component", "ledger"), ledgerOpts...)
	sessions := session.NewStore(
		blobs,
		directory,
		tokens,
		session.Config{Latency: cfg.AuthLatency},
		logger.WithField("component", "session"),
		m,
	)

	return &Dependencies{
		Blobs: blobs,
		Catalog: catalog.NewClient(catalog.Config{
			BaseURL:      cfg.CatalogURL,
			Timeout:      cfg.CatalogTimeout,
			RPS:          cfg.CatalogRPS,
			Burst:        cfg.CatalogBurst,
			DefaultLimit: cfg.CatalogLimit,
		}, logger.WithField("component", "catalog"), m),
		Cart:     cartStore,
		Ledger:   orders,
		Sessions: sessions,
		Checkout: checkout.NewOrchestrator(
			cartStore,
			orders,
			sessions,
			logger.WithField("component", "checkout"),
			checkout.WithRequireSession(cfg.CheckoutRequireLogin),
			checkout.WithMetrics(m),
		),
		Metrics: m,
		Logger:  logger,
	}, nil
}

// Load восстанавливает состояние из хранилища. Повреждённые данные сбрасываются сторами,
// ошибки логируются и запуск не прерывают.
func (d *Dependencies) Load(ctx context.Context) {
	if err := d.Sessions.Load(ctx); err != nil {
		d.Logger.WithError(err).Warn("session state reset")
	}
	if err := d.Cart.Load(ctx); err != nil {
		d.Logger.WithError(err).Warn("cart state reset")
	}
	if err := d.Ledger.Load(ctx); err != nil {
		d.Logger.WithError(err).Warn("order history reset")
	}

	if sess, ok := d.Sessions.Current(); ok {
		d.Checkout.PrefillFromSession(sess)
	}

	d.Logger.WithFields(log.Fields{
		"cart_items": d.Cart.Count(),
		"orders":     d.Ledger.Len(),
	}).Info("storefront state restored")
}
