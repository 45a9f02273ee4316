package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	collectionhandler "mintgate/internal/collection/handler"
	"mintgate/internal/collection/models"
	collectionservice "mintgate/internal/collection/service"
	"mintgate/internal/collection/store"
	"mintgate/internal/events"
	fundshandler "mintgate/internal/funds/handler"
	fundsservice "mintgate/internal/funds/service"
	"mintgate/internal/funds/treasury"
	jwttoken "mintgate/internal/jwt_token"
	"mintgate/internal/oracle"
	"mintgate/internal/platform/config"
	"mintgate/internal/platform/httpserver"
	"mintgate/internal/platform/logger"
	"mintgate/internal/platform/metrics"
	platformredis "mintgate/internal/platform/redis"
	"mintgate/internal/ratelimit"
	httptransport "mintgate/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	initial := models.CollectionState{
		UnitPrice: cfg.InitialUnitPrice,
		BaseURI:   cfg.InitialBaseURI,
	}

	contractStore, runnerInner, cleanup, err := buildStore(ctx, cfg, initial)
	if err != nil {
		return err
	}
	defer cleanup()

	runner := collectionservice.NewSerialRunner(runnerInner, 0)

	checks := map[string]httptransport.HealthChecker{}
	if hc, ok := contractStore.(httptransport.HealthChecker); ok {
		checks["store"] = hc
	}

	var verifier oracle.Verifier
	if cfg.OracleURL != "" {
		verifier = oracle.NewHTTPClient(cfg.OracleURL, 5*time.Second)
	} else {
		log.Warn("no oracle configured, treating every caller as unverified")
		verifier = oracle.MockVerifier{}
	}

	var payout treasury.Client
	if cfg.TreasuryURL != "" {
		payout = treasury.NewHTTPClient(cfg.TreasuryURL, 10*time.Second)
	} else {
		log.Warn("no treasury configured, transfers are recorded in memory only")
		payout = &treasury.MockClient{}
	}

	g, ctx := errgroup.WithContext(ctx)

	var publisher events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub, err := events.NewKafkaPublisher(cfg.Kafka, log, m)
		if err != nil {
			return fmt.Errorf("kafka publisher: %w", err)
		}
		publisher = kafkaPub
		g.Go(func() error { return kafkaPub.Run(ctx) })
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	var mintLimiter ratelimit.Limiter
	if redisClient != nil {
		defer redisClient.Close()
		mintLimiter = ratelimit.NewRedisLimiter(redisClient.Client, cfg.MintRateLimit, cfg.MintRateWindow)
		checks["redis"] = redisClient
	} else {
		mintLimiter = ratelimit.NewMemoryLimiter(cfg.MintRateLimit, cfg.MintRateWindow)
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, time.Hour)
	jwtValidator := jwttoken.NewJWTServiceAdapter(jwtService)

	collectionSvc := collectionservice.New(
		runner,
		contractStore,
		verifier,
		publisher,
		m,
		log,
		models.Address(cfg.AdminPayoutAddress),
	)
	fundsSvc := fundsservice.New(
		runner,
		payout,
		m,
		log,
		models.Address(cfg.BeneficiaryAddress),
		models.Address(cfg.AdminPayoutAddress),
	)

	router := httptransport.NewRouter([]httptransport.Registrar{
		collectionhandler.New(collectionSvc, jwtService, log, m, jwtValidator, mintLimiter),
		collectionhandler.NewAdmin(collectionSvc, log, m, cfg.AdminToken),
		fundshandler.New(fundsSvc, log, m, cfg.AdminToken),
	}, checks)

	srv := httpserver.New(cfg.Addr, router)

	g.Go(func() error {
		log.Info("starting mintgate", "addr", cfg.Addr, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildStore selects the persistence backend. Each backend implements both
// the store and its transactional runner.
func buildStore(ctx context.Context, cfg config.Server, initial models.CollectionState) (store.Store, store.TxRunner, func(), error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		pg := store.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		if err := pg.InitState(ctx, initial); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return pg, pg, func() { _ = db.Close() }, nil

	case config.StoreBolt:
		bs, err := store.OpenBolt(cfg.BoltPath, initial)
		if err != nil {
			return nil, nil, nil, err
		}
		return bs, bs, func() { _ = bs.Close() }, nil

	case config.StoreMemory:
		ms := store.NewMemoryStore(initial)
		return ms, ms, func() {}, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
