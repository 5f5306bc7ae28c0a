package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/bonitasoft-presales/learn-and-go-btt/internal/health"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/messaging/kafka"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/metrics"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/service/fanout"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/service/outbox"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/service/process"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/service/task"
	"github.com/bonitasoft-presales/learn-and-go-btt/internal/version"
)

// App — собранный сервис закупок: конечный автомат процессов,
// outbox worker и HTTP-сервер наблюдаемости.
type App struct {
	cfg           Config
	deps          *Dependencies
	engine        *process.Engine
	kafkaProducer *kafka.Producer
	outboxWorker  *outbox.Worker
	logger        *log.Entry
}

// New собирает приложение по конфигурации. Хранилище выбирается по
// PostgresDSN, Kafka и сидирование справочных данных опциональны.
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := log.WithField("component", "app")

	var (
		deps *Dependencies
		err  error
	)
	if cfg.PostgresDSN != "" {
		deps, err = NewPostgresDependencies(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("postgres storage initialized")
	} else {
		deps = NewDependencies(logger)
		logger.Info("in-memory storage initialized")
	}

	if cfg.SeedSampleData {
		if err := SeedSampleData(deps); err != nil {
			_ = deps.Close()
			return nil, fmt.Errorf("seed sample data: %w", err)
		}
	}

	// Kafka опционален: без брокеров события остаются в outbox.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)

	queue := task.NewQueue(logger.WithField("component", "task-queue"))
	orchestrator := fanout.NewOrchestrator(queue, metrics.NewProcessMetrics(), logger.WithField("component", "fanout"))

	var engine *process.Engine
	if kafkaProducer != nil {
		engine = process.NewEngineWithKafka(
			deps.Requests, deps.Quotations, deps.Suppliers,
			deps.Resolver, orchestrator, queue,
			deps.Outbox, deps.Timeline,
			kafkaProducer, logger.WithField("component", "process-engine"),
		)
	} else {
		engine = process.NewEngine(
			deps.Requests, deps.Quotations, deps.Suppliers,
			deps.Resolver, orchestrator, queue,
			deps.Outbox, deps.Timeline,
			logger.WithField("component", "process-engine"),
		)
	}

	var worker *outbox.Worker
	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicProcessEvents)
		dlqPublisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)
		worker = outbox.NewWorker(deps.Outbox, publisher, outbox.Options{
			Logger:       logger.WithField("component", "outbox-worker"),
			DLQPublisher: dlqPublisher,
			PollInterval: cfg.OutboxPollInterval,
		})
	}

	return &App{
		cfg:           cfg,
		deps:          deps,
		engine:        engine,
		kafkaProducer: kafkaProducer,
		outboxWorker:  worker,
		logger:        logger,
	}, nil
}

// Engine возвращает конечный автомат процессов закупки.
// Транспортный слой, раздающий задачи исполнителям, строится поверх него.
func (a *App) Engine() *process.Engine {
	return a.engine
}

// Run запускает фоновые компоненты и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	if a.outboxWorker != nil {
		go a.outboxWorker.Run(ctx)
	}

	healthHandler := healthcheck.NewHandler(version.Version())
	if a.deps.Store != nil {
		healthHandler.Register("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return a.deps.Store.Ping(pingCtx)
		})
	}
	healthHandler.Register("outbox", func() error {
		_, err := a.deps.Outbox.Stats()
		return err
	})

	metricsSrv := startMetricsServer(ctx, a.cfg.MetricsAddr, a.logger, healthHandler)

	a.logger.WithField("version", version.String()).Info("procurement service started")

	<-ctx.Done()
	a.logger.Info("shutdown signal received, stopping procurement service")
	shutdownHTTP(metricsSrv, a.logger)
	a.close()
	return ctx.Err()
}

func (a *App) close() {
	closeKafka(a.kafkaProducer, a.logger)
	if err := a.deps.Close(); err != nil {
		a.logger.WithError(err).Warn("failed to close storage")
	}
}

// Run собирает приложение и работает до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	application, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return application.Run(ctx)
}

// startMetricsServer запускает HTTP-эндпоинты /metrics и health-проверок.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
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
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
