package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"patientflow/internal/billing"
	"patientflow/internal/billing/reconciler"
	"patientflow/internal/billing/store/attempt"
	"patientflow/internal/outbox"
	outboxmetrics "patientflow/internal/outbox/metrics"
	"patientflow/internal/outbox/relay"
	"patientflow/internal/patient/handler"
	patientmetrics "patientflow/internal/patient/metrics"
	"patientflow/internal/patient/service"
	"patientflow/internal/patient/store"
	"patientflow/internal/platform/config"
	"patientflow/internal/platform/httpserver"
	"patientflow/internal/platform/kafka"
	"patientflow/internal/platform/logger"
	"patientflow/internal/platform/postgres"
	"patientflow/internal/platform/redis"
	httptransport "patientflow/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := map[string]httptransport.HealthCheck{}

	// Stores: Postgres when configured, in-memory for local development.
	var (
		patientStore service.Store
		pendingStore reconciler.Store
		outboxStore  outbox.Store
		db           *sql.DB
	)
	if cfg.PostgresURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		pg := store.NewPostgres(db)
		patientStore, pendingStore = pg, pg
		outboxStore = outbox.NewPostgres(db)
		health["postgres"] = db.PingContext
	} else {
		log.Warn("no postgres configured, using in-memory stores")
		mem := store.NewInMemory()
		patientStore, pendingStore = mem, mem
		outboxStore = outbox.NewInMemory()
	}

	// Billing attempt counters: Redis when configured so retry ceilings
	// survive restarts.
	var attemptStore billing.AttemptStore = attempt.NewInMemory()
	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		attemptStore = attempt.NewRedis(redisClient.Client)
		health["redis"] = redisClient.Health
	}

	patientM := patientmetrics.New()
	outboxM := outboxmetrics.New()

	billingClient := billing.NewClient(cfg.Billing, attemptStore, log)
	publisher := outbox.NewPublisher(outboxStore, log, outboxM)

	patientSvc := service.New(patientStore, billingClient, publisher,
		service.WithLogger(log),
		service.WithMetrics(patientM),
	)

	router := httptransport.NewRouter(health,
		handler.New(patientSvc, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting patientflow", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Outbox relay: only runs when an event stream is configured. Without it,
	// events queue durably and wait.
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("kafka connection failed", "error", err.Error())
			os.Exit(1)
		}
		defer producer.Close()

		outboxRelay := relay.New(outboxStore, producer, cfg.Outbox, log, outboxM)
		group.Go(func() error {
			err := outboxRelay.Run(groupCtx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		log.Warn("no kafka brokers configured, outbox relay disabled")
	}

	billingReconciler := reconciler.New(pendingStore, billingClient, attemptStore, cfg.Reconciler, log, patientM)
	group.Go(func() error {
		err := billingReconciler.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := group.Wait(); err != nil {
		log.Error("shutdown with error", "error", err.Error())
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
