package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"attestor/internal/audit"
	auditworker "attestor/internal/audit/worker"
	commitmenthandler "attestor/internal/commitment/handler"
	commitmentmetrics "attestor/internal/commitment/metrics"
	commitmentservice "attestor/internal/commitment/service"
	"attestor/internal/commitment/session"
	commitmentstore "attestor/internal/commitment/store"
	"attestor/internal/commitment/verifier"
	identityhandler "attestor/internal/identity/handler"
	identitymetrics "attestor/internal/identity/metrics"
	identityservice "attestor/internal/identity/service"
	identitystore "attestor/internal/identity/store"
	jwttoken "attestor/internal/jwt_token"
	ledgerhandler "attestor/internal/ledger/handler"
	ledgermetrics "attestor/internal/ledger/metrics"
	ledgerservice "attestor/internal/ledger/service"
	ledgerstore "attestor/internal/ledger/store"
	"attestor/internal/platform/config"
	"attestor/internal/platform/httpserver"
	"attestor/internal/platform/logger"
	platformmetrics "attestor/internal/platform/metrics"
	platformmw "attestor/internal/platform/middleware"
	"attestor/internal/platform/postgres"
	platformredis "attestor/internal/platform/redis"
	httptransport "attestor/internal/transport/http"
	upgradehandler "attestor/internal/upgrade/handler"
	upgrademodels "attestor/internal/upgrade/models"
	upgradeservice "attestor/internal/upgrade/service"
	upgradestore "attestor/internal/upgrade/store"
)

// main wires the dependency graph and keeps the process lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: Postgres when configured, memory stores otherwise.
	var (
		auditStore      audit.Store
		auditPostgres   *audit.PostgresStore
		identityStorage identitystore.Store   = identitystore.NewInMemory()
		ledgerStorage   ledgerstore.Store     = ledgerstore.NewInMemory()
		commitStorage   commitmentstore.Store = commitmentstore.NewInMemory()
		upgradeStorage  upgradestore.Store    = upgradestore.NewInMemory()
	)
	auditStore = audit.NewInMemoryStore()

	health := map[string]httptransport.HealthChecker{}

	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		health["postgres"] = db.PingContext
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return err
		}
		identityStorage = identitystore.NewPostgres(db)
		ledgerStorage = ledgerstore.NewPostgres(db)
		commitStorage = commitmentstore.NewPostgres(db)
		upgradeStorage = upgradestore.NewPostgres(db)
		auditPostgres = audit.NewPostgres(db)
		auditStore = auditPostgres
		log.Info("postgres storage configured")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	auditor := audit.NewPublisher(auditStore, log)

	// Sessions: Redis when configured, memory otherwise.
	var sessions session.Store = session.NewInMemory()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		sessions = session.NewRedis(redisClient.Client)
		log.Info("redis session store configured")
	}

	// Verifier: external proving backend unless the dev stand-in is
	// explicitly requested.
	var proofVerifier verifier.Verifier
	if cfg.UseDevVerifier {
		proofVerifier = verifier.NewDev(log)
	} else {
		proofVerifier, err = verifier.NewHTTP(cfg.VerifierURL, cfg.VerifierCircuit)
		if err != nil {
			return err
		}
	}

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	// Services.
	directory, err := identityservice.New(identityStorage,
		identityservice.WithLogger(log),
		identityservice.WithAuditPublisher(auditor),
		identityservice.WithMetrics(identitymetrics.New()),
	)
	if err != nil {
		return err
	}

	ledger, err := ledgerservice.New(ledgerStorage, directory,
		ledgerservice.WithLogger(log),
		ledgerservice.WithAuditPublisher(auditor),
		ledgerservice.WithMetrics(ledgermetrics.New()),
	)
	if err != nil {
		return err
	}

	commitments, err := commitmentservice.New(commitStorage, proofVerifier, sessions, tokens,
		commitmentservice.WithLogger(log),
		commitmentservice.WithAuditPublisher(auditor),
		commitmentservice.WithMetrics(commitmentmetrics.New()),
		commitmentservice.WithSessionTTL(cfg.SessionTTL),
	)
	if err != nil {
		return err
	}

	upgrades, err := upgradeservice.New(upgradeStorage,
		map[upgrademodels.Component]upgradeservice.RecordCounter{
			upgrademodels.ComponentIdentity:   directory,
			upgrademodels.ComponentLedger:     ledger,
			upgrademodels.ComponentCommitment: commitments,
		},
		upgradeservice.WithLogger(log),
		upgradeservice.WithAuditPublisher(auditor),
	)
	if err != nil {
		return err
	}

	// Transport.
	if redisClient != nil {
		health["redis"] = redisClient.Health
	}
	requireAuth := platformmw.RequireAuth(jwttoken.NewJWTServiceAdapter(tokens), sessions, log)
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:  log,
		Metrics: platformmetrics.New(),
		Features: []httptransport.Feature{
			identityhandler.New(directory, log, cfg.AdminToken),
			ledgerhandler.New(ledger, log, cfg.AdminToken),
			commitmenthandler.New(commitments, log, requireAuth),
			upgradehandler.New(upgrades, log, cfg.AdminToken),
		},
		Health: health,
	})
	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting attestor", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Audit outbox worker: only meaningful with Postgres and Kafka both
	// configured.
	if auditPostgres != nil && len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := auditworker.NewKafkaClient(cfg.Kafka.Brokers)
		if err != nil {
			return err
		}
		defer kafkaClient.Close()
		if err := auditworker.EnsureTopic(ctx, kafkaClient, cfg.Kafka.AuditTopic, 3); err != nil {
			return err
		}
		worker := auditworker.New(auditPostgres, kafkaClient, cfg.Kafka.AuditTopic, log,
			auditworker.WithPollInterval(cfg.Kafka.PollInterval),
		)
		group.Go(func() error {
			return worker.Run(ctx)
		})
		log.Info("audit outbox worker started", "topic", cfg.Kafka.AuditTopic)
	}

	return group.Wait()
}
