package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"trustboard/internal/platform/config"
	"trustboard/internal/platform/httpserver"
	"trustboard/internal/platform/logger"
	"trustboard/internal/platform/metrics"
	"trustboard/internal/platform/postgres"
	platformredis "trustboard/internal/platform/redis"
	"trustboard/internal/trustsource/client"
	"trustboard/internal/trustsource/seed"
	"trustboard/internal/trustsource/store"
	"trustboard/internal/verification/analyzer"
	"trustboard/internal/verification/cache"
	"trustboard/internal/verification/collector"
	"trustboard/internal/verification/discovery"
	"trustboard/internal/verification/gateway"
	"trustboard/internal/verification/handler"
	"trustboard/internal/verification/inflight"
	"trustboard/internal/verification/models"
	"trustboard/internal/verification/scorer"
	"trustboard/internal/verification/trustbridge"
	"trustboard/internal/verification/trustgate"
	"trustboard/pkg/platform/audit"
	"trustboard/pkg/platform/audit/publisher"
	"trustboard/pkg/platform/audit/publishers"
	"trustboard/pkg/platform/audit/publishers/compliance"
	"trustboard/pkg/platform/audit/publishers/ops"
	kafkastore "trustboard/pkg/platform/audit/store/kafka"
	auditmemory "trustboard/pkg/platform/audit/store/memory"
	auditpostgres "trustboard/pkg/platform/audit/store/postgres"
	"trustboard/pkg/platform/circuit"
)

// recordStore is the local registry: searchable and seedable.
type recordStore interface {
	gateway.Registry
	seed.Importer
}

// main wires dependencies, serves HTTP and shuts down on SIGINT or SIGTERM.
// Business logic lives in the internal packages.
func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("trustboard stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	m := metrics.New(prometheus.DefaultRegisterer)

	db, err := postgres.Open(ctx, cfg.Storage.DatabaseURL)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info("postgres connected")
	}

	gw, err := buildGateway(ctx, cfg, db, log, m)
	if err != nil {
		return err
	}

	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var resultCache trustgate.ResultCache = cache.NewMemory()
	if rc != nil {
		defer rc.Close()
		resultCache = cache.NewRedis(rc.Client, cache.WithLogger(log))
		log.Info("redis result cache enabled")
	}

	auditStore, closeAudit, err := buildAuditStore(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	defer closeAudit()
	auditor, closeAuditor := buildAuditPublisher(cfg.Audit, auditStore, log)
	defer closeAuditor()

	gate := trustgate.New(
		trustgate.Pipeline{
			Analyzer:  analyzer.New(),
			Discovery: discovery.New(gw, discovery.WithLogger(log)),
			Collector: collector.New(gw,
				collector.WithLogger(log),
				collector.WithConcurrency(cfg.Engine.CollectorConcurrency),
			),
			Scorer: scorer.New(),
		},
		resultCache,
		inflight.New[*models.VerificationResult](),
		trustgate.WithLogger(log),
		trustgate.WithMetrics(m),
		trustgate.WithAuditPublisher(auditor),
		trustgate.WithCacheTTL(cfg.Engine.ResultCacheTTL),
	)
	bridge := trustbridge.New(gate,
		trustbridge.WithLogger(log),
		trustbridge.WithMetrics(m),
		trustbridge.WithAuditPublisher(auditor),
		trustbridge.WithDefaultTimeout(cfg.Engine.CrossVerifyTimeout),
		trustbridge.WithMaxTimeout(cfg.Engine.MaxCrossVerifyTimeout),
	)

	router := newRouter(log, gate, bridge, healthChecks(db, rc),
		handler.WithMaxTimeout(cfg.Engine.MaxCrossVerifyTimeout))
	srv := httpserver.New(cfg.Addr, router, cfg.Engine.MaxCrossVerifyTimeout)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting trustboard", "addr", cfg.Addr, "gateway", gw.Kind())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func buildGateway(ctx context.Context, cfg config.Server, db *sql.DB, log *slog.Logger, m *metrics.Metrics) (*gateway.Adapter, error) {
	var local recordStore
	if db != nil {
		local = store.NewPostgres(db)
	} else {
		local = store.NewInMemoryStore()
	}
	if cfg.Gateway.SeedFile != "" {
		f, err := seed.LoadFile(ctx, cfg.Gateway.SeedFile, local)
		if err != nil {
			return nil, err
		}
		log.Info("seeded trust sources", "sources", len(f.Sources), "records", len(f.Records))
	}

	var remote gateway.Registry
	if cfg.Gateway.Mode == config.GatewayRemote {
		burst := max(1, int(math.Ceil(cfg.Gateway.RPS)))
		remote = client.New(cfg.Gateway.RegistryURL, cfg.Gateway.Timeout,
			client.WithRateLimit(cfg.Gateway.RPS, burst),
			client.WithLogger(log),
		)
	}
	return gateway.New(cfg.Gateway.Mode, local, remote,
		gateway.WithLogger(log),
		gateway.WithMetrics(m),
	)
}

// buildAuditStore prefers Kafka, then the Postgres outbox, then memory.
func buildAuditStore(ctx context.Context, cfg config.Server, db *sql.DB, log *slog.Logger) (audit.Store, func(), error) {
	if len(cfg.Audit.KafkaBrokers) > 0 {
		s, kc, err := kafkastore.New(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		if err := kafkastore.EnsureTopic(ctx, kc, cfg.Audit.KafkaTopic, 1, 1); err != nil {
			s.Close()
			return nil, nil, err
		}
		log.Info("audit events published to kafka", "topic", cfg.Audit.KafkaTopic)
		return s, s.Close, nil
	}
	if db != nil {
		log.Info("audit events written to postgres outbox")
		return auditpostgres.New(db), func() {}, nil
	}
	log.Warn("audit events kept in memory only")
	return auditmemory.NewInMemoryStore(), func() {}, nil
}

// buildAuditPublisher routes compliance verdicts straight to the durable
// store and sends operational events through sampling and the async buffer.
func buildAuditPublisher(cfg config.Audit, sink audit.Store, log *slog.Logger) (*publishers.Router, func()) {
	buffered := publisher.NewPublisher(sink,
		publisher.WithAsyncBuffer(cfg.BufferSize),
		publisher.WithLogger(log),
	)

	sampler := ops.NewSampler(1)
	sampler.SetRate(string(audit.EventVerificationServedCached), cfg.CachedSampleRate)
	operational := ops.New(buffered,
		ops.WithSampler(sampler),
		ops.WithBreaker(circuit.New("audit-ops", circuit.WithCooldown(30*time.Second))),
		ops.WithLogger(log),
		ops.WithMetrics(ops.NewMetrics(prometheus.DefaultRegisterer)),
	)

	router := publishers.NewRouter(log, operational)
	router.Register(audit.CategoryCompliance, compliance.New(sink,
		compliance.WithLogger(log),
		compliance.WithMetrics(compliance.NewMetrics(prometheus.DefaultRegisterer)),
	))
	return router, buffered.Close
}

func healthChecks(db *sql.DB, rc *platformredis.Client) map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if rc != nil {
		checks["redis"] = rc.Health
	}
	return checks
}
