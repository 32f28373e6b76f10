package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"activitylog/internal/audit/handler"
	"activitylog/internal/audit/service"
	httpapi "activitylog/internal/http"
	jwttoken "activitylog/internal/jwt_token"
	"activitylog/internal/platform/config"
	"activitylog/internal/platform/httpserver"
	"activitylog/internal/platform/kafka"
	"activitylog/internal/platform/kafka/consumer"
	"activitylog/internal/platform/kafka/producer"
	"activitylog/internal/platform/logger"
	"activitylog/internal/platform/metrics"
	"activitylog/internal/storage"
	"activitylog/pkg/platform/audit/recorder"
	"activitylog/pkg/platform/audit/stream"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Query and recording logic live in the audit packages.
func main() {
	configFile := flag.String("config", "", "path to a config file (default: ./config.yaml when present)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close store", "error", err)
		}
	}()
	log.Info("activity store ready", "driver", store.Driver)

	// One id per process so the ingestor can ignore what this instance mirrored.
	origin := uuid.NewString()
	streamMetrics := stream.NewMetrics(reg)

	recorderOpts := []recorder.Option{
		recorder.WithLogger(log),
		recorder.WithMetrics(recorder.NewMetrics(reg)),
		recorder.WithCircuitBreaker(recorder.NewCircuitBreaker(cfg.Audit.BreakerThreshold, cfg.Audit.BreakerCooldown)),
		recorder.WithFallbackActor(recorder.Actor{
			Email: cfg.Audit.FallbackActorEmail,
			Name:  cfg.Audit.FallbackActorName,
			Role:  cfg.Auth.AdminRole,
		}),
	}
	if cfg.Audit.AsyncBuffer > 0 {
		recorderOpts = append(recorderOpts, recorder.WithAsyncBuffer(cfg.Audit.AsyncBuffer))
	}

	var (
		mirror *stream.Mirror
		prod   *producer.Producer
		cons   *consumer.Consumer
	)
	if cfg.Kafka.Enabled() {
		if err := kafka.EnsureTopic(ctx, cfg.Kafka.Brokers, kafka.TopicSpec{Name: cfg.Kafka.Topic}); err != nil {
			return fmt.Errorf("ensure topic: %w", err)
		}
		prod, err = producer.New(cfg.Kafka.Brokers, log)
		if err != nil {
			return fmt.Errorf("create producer: %w", err)
		}
		defer prod.Close(context.Background())

		mirror = stream.NewMirror(prod, cfg.Kafka.Topic, origin,
			stream.WithMirrorLogger(log),
			stream.WithMirrorMetrics(streamMetrics),
		)
		recorderOpts = append(recorderOpts, recorder.WithSink(mirror))

		if cfg.Kafka.Ingest {
			router := consumer.NewRouter(log, nil)
			router.Register(cfg.Kafka.Topic, stream.NewIngestor(store.Store, origin, log, streamMetrics))
			cons, err = consumer.New(consumer.Config{
				Brokers: cfg.Kafka.Brokers,
				Group:   cfg.Kafka.Group,
				Topics:  router.Topics(),
			}, router, log)
			if err != nil {
				return fmt.Errorf("create consumer: %w", err)
			}
			defer cons.Close()
		}
	}

	rec := recorder.New(store.Store, recorderOpts...)
	svc := service.New(store.Store,
		service.WithLogger(log),
		service.WithMetrics(metrics.New(reg)),
		service.WithBlankSearchLimit(cfg.Audit.SearchBlankLimit),
	)

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	router := httpapi.NewRouter(httpapi.Deps{
		Logger:    log,
		Validator: jwttoken.NewJWTServiceAdapter(jwtService),
		AdminRole: cfg.Auth.AdminRole,
		AuditLogs: handler.New(svc, log, cfg.Audit.RecentDefaultLimit),
		Events:    handler.NewRecordHandler(rec, log),
		Gatherer:  reg,
		Health:    store.Ping,
	})
	srv := httpserver.New(cfg.Addr, router)

	// The mirror outlives the request path so events drained from the async
	// recorder during shutdown still reach the topic.
	mirrorCtx, stopMirror := context.WithCancel(context.WithoutCancel(ctx))
	defer stopMirror()
	mirrorDone := make(chan struct{})
	if mirror != nil {
		go func() {
			defer close(mirrorDone)
			_ = mirror.Run(mirrorCtx)
		}()
	} else {
		close(mirrorDone)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting activity log server", "addr", cfg.Addr)
		return httpserver.Serve(gctx, srv, cfg.ShutdownTimeout)
	})
	if cons != nil {
		g.Go(func() error { return cons.Run(gctx) })
	}
	err = g.Wait()
	log.Info("shutting down")

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if closeErr := rec.Close(drainCtx); closeErr != nil {
		log.Warn("recorder did not drain before shutdown deadline",
			"pending", rec.Pending(),
			"error", closeErr,
		)
	}
	stopMirror()
	<-mirrorDone
	return err
}
