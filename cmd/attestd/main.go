package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/xela07ax/ftx-attest/internal/audit"
	"github.com/xela07ax/ftx-attest/internal/connectors"
	"github.com/xela07ax/ftx-attest/internal/engine"
	"github.com/xela07ax/ftx-attest/internal/infra"
	"github.com/xela07ax/ftx-attest/internal/repository/postgres"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Контекст для управления жизненным циклом фоновых горутин
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(reg)

	// 2. Журнал аттестаций: Postgres или лог
	var storage audit.StorageInterface = audit.NewLogStorage(logger)
	if cfg.Database.URL != "" {
		repo, err := postgres.OpenAttestationRepo(cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			logger.Fatal("failed to open database", zap.Error(err))
		}
		defer repo.Close()

		pingCtx, pingCancel := context.WithTimeout(appCtx, 5*time.Second)
		if err := repo.Ping(pingCtx); err != nil {
			logger.Fatal("database unreachable", zap.Error(err))
		}
		pingCancel()
		storage = repo
	} else {
		logger.Warn("database.url is empty, attestation journal goes to log only")
	}
	journal := audit.NewJournal(storage, logger, cfg.Journal.BufferSize, cfg.Journal.BatchSize, cfg.Journal.FlushInterval)
	journal.Start()
	go reportJournalFill(appCtx, journal, metrics)

	// 3. Выключатель сценариев (опционально, через Redis)
	var gate engine.ScenarioGate
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()

		sw := engine.NewScenarioSwitch(rdb, logger)
		if err := sw.Init(appCtx); err != nil {
			logger.Fatal("failed to init scenario switch", zap.Error(err))
		}
		go sw.StartListener(appCtx)
		gate = sw
	}

	// 4. Клиент ANNA + обвязка надежности
	var factory connectors.Factory
	switch cfg.Attestation.Mode {
	case "mock":
		logger.Warn("attestation mode is mock, nothing is sent to ANNA")
		factory = connectors.NewMockFactory()
	default:
		factory = connectors.NewAnnaFactory(cfg.Attestation.BaseURL, &http.Client{Timeout: cfg.Attestation.HTTPTimeout})
	}

	health := engine.NewHealthReporter(metrics, logger)
	executor := engine.NewReliabilityWrapper(engine.ReliabilityConfigFrom(cfg.Attestation, health.OnBreakerStateChange))

	// 5. Эндпоинт сценариев
	endpoint := engine.NewScenarioEndpoint(engine.EndpointConfig{
		PrivateKey:   cfg.Attestation.PrivateKey,
		LegacyStatus: cfg.Server.LegacyStatus,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}, factory, executor, gate, journal, metrics, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      engine.NewRouter(endpoint, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Экспортируем метрики для Prometheus
	metricsSrv := &http.Server{Addr: cfg.Metrics.Addr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	// gRPC health для оркестратора
	var grpcSrv *grpc.Server
	if cfg.GRPC.Addr != "" {
		grpcSrv = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcSrv, health.Server())
		go func() {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr)
			if err != nil {
				logger.Fatal("failed to listen gRPC", zap.Error(err))
			}
			logger.Info("gRPC health server started", zap.String("addr", cfg.GRPC.Addr))
			if err := grpcSrv.Serve(lis); err != nil {
				logger.Error("gRPC server stopped", zap.Error(err))
			}
		}()
	}

	// 6. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("attestation gateway started", zap.String("addr", srv.Addr), zap.Bool("legacy_status", cfg.Server.LegacyStatus))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop // Ждем сигнал
	logger.Info("attestation gateway stopping...")
	health.Shutdown()

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown failed", zap.Error(err))
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}

	cancel()
	// Журнал останавливаем последним: все запросы уже отработали
	journal.Stop()
	logger.Info("attestation gateway exited properly")
}

func reportJournalFill(ctx context.Context, j *audit.Journal, m *engine.Metrics) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.JournalBufferFill.Set(float64(j.Len()))
		}
	}
}
