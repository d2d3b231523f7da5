package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

const (
	// DefaultBaseURL указывает на публичный dummyjson-совместимый каталог.
	DefaultBaseURL = "https://dummyjson.com"
	// DefaultLimit задаёт размер первой страницы каталога.
	DefaultLimit = 12

	maxBodyBytes = 4 << 20
)

// Config задаёт параметры клиента каталога.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RPS ограничивает частоту запросов к каталогу; 0 отключает ограничение.
	RPS          float64
	Burst        int
	DefaultLimit int
	// FailureThreshold: число подряд неудачных запросов до размыкания breaker.
	FailureThreshold uint32
	// OpenTimeout: время в разомкнутом состоянии до пробного запроса.
	OpenTimeout time.Duration
}

// Client представляет read-only HTTP-клиент каталога товаров.
type Client struct {
	baseURL      string
	defaultLimit int
	http         *http.Client
	breaker      *gobreaker.CircuitBreaker[[]byte]
	limiter      *rate.Limiter
	logger       *log.Entry
	metrics      *metrics.StorefrontMetrics
}

type productsPage struct {
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
	Skip     int              `json:"skip"`
	Limit    int              `json:"limit"`
}

// NewClient создаёт клиента с circuit breaker, rate limiter и otel-транспортом.
func NewClient(cfg Config, logger *log.Entry, m *metrics.StorefrontMetrics) *Client {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// 404 считается нормальным ответом каталога, breaker на него не реагирует.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrProductNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("catalog circuit breaker state changed")
		},
	})

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		defaultLimit: cfg.DefaultLimit,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
		limiter: limiter,
		logger:  logger,
		metrics: m,
	}
}

// List возвращает первую страницу каталога. limit <= 0 заменяется значением по умолчанию.
func (c *Client) List(ctx context.Context, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = c.defaultLimit
	}
	body, err := c.get(ctx, "list", "/products?limit="+strconv.Itoa(limit))
	if err != nil {
		return nil, err
	}
	return decodePage(body)
}

// ListByCategory возвращает товары категории.
func (c *Client) ListByCategory(ctx context.Context, slug string) ([]domain.Product, error) {
	body, err := c.get(ctx, "list_by_category", "/products/category/"+url.PathEscape(slug))
	if err != nil {
		return nil, err
	}
	return decodePage(body)
}

// Get возвращает товар по ID или domain.ErrProductNotFound.
func (c *Client) Get(ctx context.Context, id int64) (domain.Product, error) {
	body, err := c.get(ctx, "get", "/products/"+strconv.FormatInt(id, 10))
	if err != nil {
		return domain.Product{}, err
	}

	var product domain.Product
	if err := json.Unmarshal(body, &product); err != nil {
		return domain.Product{}, fmt.Errorf("%w: decode product: %v", domain.ErrCatalogUnavailable, err)
	}
	if product.ID == 0 {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// Healthy сообщает об ошибке, пока breaker разомкнут. Сеть не трогает.
func (c *Client) Healthy(context.Context) error {
	if state := c.breaker.State(); state == gobreaker.StateOpen {
		return fmt.Errorf("%w: circuit breaker %s", domain.ErrCatalogUnavailable, state)
	}
	return nil
}

func decodePage(body []byte) ([]domain.Product, error) {
	var page productsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: decode products: %v", domain.ErrCatalogUnavailable, err)
	}
	if page.Products == nil {
		page.Products = []domain.Product{}
	}
	return page.Products, nil
}

func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	start := time.Now()

	body, err := c.fetch(ctx, path)

	outcome := "ok"
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
		c.logger.WithError(err).WithFields(log.Fields{
			"op":   op,
			"path": path,
		}).Warn("catalog request failed")
		err = fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	c.metrics.RecordCatalogRequest(op, outcome, time.Since(start))

	return body, err
}

func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	return c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", version.UserAgent())

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, domain.ErrProductNotFound
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("unexpected catalog status %d", resp.StatusCode)
		}

		return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	})
}

var _ domain.ProductSource = (*Client)(nil)
