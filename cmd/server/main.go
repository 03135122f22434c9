package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"govregistry/internal/audit"
	"govregistry/internal/entityvalidation"
	"govregistry/internal/extsync"
	"govregistry/internal/importer"
	"govregistry/internal/matching"
	matchingcache "govregistry/internal/matching/cache"
	orghandler "govregistry/internal/organization/handler"
	"govregistry/internal/organization/metrics"
	"govregistry/internal/organization/service"
	"govregistry/internal/organization/store"
	"govregistry/internal/platform/config"
	"govregistry/internal/platform/httpserver"
	"govregistry/internal/platform/logger"
	"govregistry/internal/platform/middleware"
	"govregistry/internal/platform/redis"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	m := metrics.New()

	// Postgres when configured, in-memory otherwise. The in-memory pair
	// keeps local development free of infrastructure.
	var (
		orgs       service.Store
		candidates matching.CandidateSource
		history    importer.HistoryStore
	)
	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			log.Error("failed to open history database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pg := store.NewPostgresStore(pool)
		orgs, candidates = pg, pg
		history = importer.NewPostgresHistory(db)
	} else {
		mem := store.NewInMemoryStore()
		orgs, candidates = mem, mem
		history = importer.NewInMemoryHistory()
		log.Info("no database configured, using in-memory storage")
	}

	// Audit events queue through a worker so writes never wait on the sink.
	var auditSink audit.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := audit.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		auditSink = kafka
	} else {
		auditSink = audit.NewLogPublisher(log)
	}
	auditInbox := make(chan audit.Event, 256)
	auditPublisher := audit.NewChannelPublisher(auditInbox, log)
	auditWorker := audit.NewWorker(auditSink, auditInbox)

	registry := service.New(orgs,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithAuditPublisher(auditPublisher),
	)
	engine := matching.NewEngine(candidates,
		matching.WithLogger(log),
		matching.WithMetrics(m),
	)

	var resultCache entityvalidation.ResultCache
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		resultCache = matchingcache.NewRedis(redisClient, config.ValidationCacheTTL)
	} else {
		resultCache = matchingcache.NewMemory(config.ValidationCacheTTL)
	}
	validation := entityvalidation.New(engine,
		entityvalidation.WithCache(resultCache),
		entityvalidation.WithLogger(log),
	)

	pipeline := importer.New(registry, engine,
		importer.WithLogger(log),
		importer.WithMetrics(m),
		importer.WithHistory(history),
		importer.WithAuditPublisher(auditPublisher),
	)
	feed := extsync.NewHTTPFeedClient(cfg.Feed, log)
	coordinator := extsync.New(feed, registry, engine, registry,
		extsync.WithLogger(log),
		extsync.WithMetrics(m),
		extsync.WithHistory(history),
		extsync.WithAuditPublisher(auditPublisher),
	)

	router := chi.NewRouter()
	router.Use(middleware.RequestMeta)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	orghandler.New(registry, log).Register(router)
	matching.NewHandler(engine, log).Register(router)
	entityvalidation.NewHandler(validation, log).Register(router)

	// Import and sync rewrite whole datasets, so the admin surface is
	// rate limited separately from the read paths.
	adminLimit := middleware.NewRateLimiter(10, time.Minute)
	router.Group(func(r chi.Router) {
		r.Use(adminLimit.Middleware)
		importer.NewHandler(pipeline, log).Register(r)
		extsync.NewHandler(coordinator, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting govregistry", "addr", cfg.Addr)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		if err := auditWorker.Run(groupCtx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	})
	group.Go(func() error {
		if err := coordinator.Run(groupCtx, cfg.Feed.SyncInterval); err != nil && err != context.Canceled {
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

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
