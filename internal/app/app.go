package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	httpsvc "github.com/vladislavdragonenkov/storefront/internal/service/http"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

const (
	shutdownTimeout     = 5 * time.Second
	healthWatchInterval = 10 * time.Second
)

func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	if cfg.TokenSecret == defaultTokenSecret {
		logger.Warn("using development token secret, set STOREFRONT_TOKEN_SECRET in production")
	}

	rt, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close(logger)

	// Kafka опциональна: без неё история заказов работает, события просто не публикуются.
	var publisher domain.OrderEventPublisher
	kafkaProducer, _ := initKafkaProducer(cfg, logger)
	if kafkaProducer != nil {
		publisher = kafkaProducer
		defer closeKafka(kafkaProducer, logger)
	}

	deps, err := NewDependencies(cfg, rt.blobs, publisher, metrics.NewStorefrontMetrics(), logger)
	if err != nil {
		return err
	}
	deps.Load(ctx)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", healthcheck.NewSimpleChecker("storage", deps.Blobs.Ping))
	healthHandler.RegisterChecker("catalog", healthcheck.NewDegradableChecker("catalog", deps.Catalog.Healthy))

	api := httpsvc.NewServer(httpsvc.Deps{
		Catalog:  deps.Catalog,
		Cart:     deps.Cart,
		Checkout: deps.Checkout,
		Ledger:   deps.Ledger,
		Sessions: deps.Sessions,
	}, cfg.RequestTimeout, logger.WithField("layer", "http"))

	lis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return err
	}
	apiSrv := &http.Server{
		Handler:           api.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	errCh := make(chan error, 2)
	go func() {
		logger.WithField("version", version.String()).Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.Serve(lis)
	}()

	grpcServer, healthServer, err := startGRPCHealth(cfg.GRPCAddr, logger, errCh)
	if err != nil {
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return err
	}
	if healthServer != nil {
		go watchHealth(ctx, healthHandler, healthServer, healthWatchInterval)
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		runErr = ctx.Err()
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, grpc.ErrServerStopped) {
			runErr = err
		}
	}

	if healthServer != nil {
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	}
	shutdownHTTP(apiSrv, logger)
	stopGRPC(grpcServer, logger)
	shutdownHTTP(metricsSrv, logger)

	return runErr
}

// startGRPCHealth поднимает gRPC health service с prometheus-интерсепторами. Пустой addr отключает сервер.
func startGRPCHealth(addr string, logger *log.Entry, errCh chan<- error) (*grpc.Server, *health.Server, error) {
	if addr == "" {
		return nil, nil, nil
	}

	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	go func() {
		logger.Infof("gRPC health слушает %s", addr)
		errCh <- grpcServer.Serve(lis)
	}()
	return grpcServer, healthServer, nil
}

// watchHealth переносит результат HTTP-проверок в статус gRPC health.
func watchHealth(ctx context.Context, checks *healthcheck.Handler, server *health.Server, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			server.SetServingStatus("", servingStatus(checks.Run(ctx).Status))
		}
	}
}

func servingStatus(status healthcheck.Status) healthpb.HealthCheckResponse_ServingStatus {
	if status == healthcheck.StatusUnhealthy {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}

func stopGRPC(server *grpc.Server, logger *log.Entry) {
	if server == nil {
		return
	}
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}

// startMetricsServer запускает /metrics и health-эндпоинты.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
