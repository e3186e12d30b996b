package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ecocommute/carpool-api/internal/adapters/httpapi"
	memidempotency "github.com/ecocommute/carpool-api/internal/adapters/memory/idempotency"
	memmembershiprepo "github.com/ecocommute/carpool-api/internal/adapters/memory/membershiprepo"
	mempositionstore "github.com/ecocommute/carpool-api/internal/adapters/memory/positionstore"
	memprofilerepo "github.com/ecocommute/carpool-api/internal/adapters/memory/profilerepo"
	memtriprepo "github.com/ecocommute/carpool-api/internal/adapters/memory/triprepo"
	postgres "github.com/ecocommute/carpool-api/internal/adapters/postgres"
	pgidempotency "github.com/ecocommute/carpool-api/internal/adapters/postgres/idempotency"
	pgmembershiprepo "github.com/ecocommute/carpool-api/internal/adapters/postgres/membershiprepo"
	pgpositionstore "github.com/ecocommute/carpool-api/internal/adapters/postgres/positionstore"
	pgprofilerepo "github.com/ecocommute/carpool-api/internal/adapters/postgres/profilerepo"
	pgtriprepo "github.com/ecocommute/carpool-api/internal/adapters/postgres/triprepo"
	redispositionstore "github.com/ecocommute/carpool-api/internal/adapters/redis/positionstore"
	"github.com/ecocommute/carpool-api/internal/app/profiles"
	"github.com/ecocommute/carpool-api/internal/app/rides"
	"github.com/ecocommute/carpool-api/internal/app/tracking"
	platformclock "github.com/ecocommute/carpool-api/internal/platform/clock"
	"github.com/ecocommute/carpool-api/internal/platform/config"
	idempotencyport "github.com/ecocommute/carpool-api/internal/ports/out/idempotency"
	membershipport "github.com/ecocommute/carpool-api/internal/ports/out/membershiprepo"
	positionport "github.com/ecocommute/carpool-api/internal/ports/out/positionstore"
	profileport "github.com/ecocommute/carpool-api/internal/ports/out/profilerepo"
	tripport "github.com/ecocommute/carpool-api/internal/ports/out/triprepo"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	var authMW func(http.Handler) http.Handler
	switch cfg.AuthMode {
	case "dev":
		authMW = httpapi.NewDevAuthMiddleware(cfg.DevSubject)
	default:
		authMW = httpapi.NewAuthMiddleware([]byte(cfg.JWTSecret))
	}

	clk := platformclock.NewSystemClock()

	var (
		tripRepo    tripport.Repository
		memberRepo  membershipport.Repository
		profileRepo profileport.Repository
		idemStore   idempotencyport.Store
		positions   positionport.Store
		cleanup     func()
	)

	switch cfg.StorageBackend {
	case "postgres":
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			log.Error("migrations failed", "err", err)
			os.Exit(1)
		}
		pool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres unavailable", "err", err)
			os.Exit(1)
		}
		cleanup = pool.Close

		tripRepo = pgtriprepo.NewRepo(pool)
		memberRepo = pgmembershiprepo.NewRepo(pool)
		profileRepo = pgprofilerepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
		positions = pgpositionstore.NewStore(pool)
	default:
		tripRepo = memtriprepo.NewRepo()
		memberRepo = memmembershiprepo.NewRepo()
		profileRepo = memprofilerepo.NewRepo()
		idemStore = memidempotency.NewStore()
		positions = mempositionstore.NewStore()
	}
	if cleanup != nil {
		defer cleanup()
	}

	if cfg.PositionBackend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		defer client.Close()
		positions = redispositionstore.NewStore(client)
	}

	trackingSvc := tracking.NewService(tripRepo, memberRepo, positions, clk, log)
	ridesSvc := rides.NewService(tripRepo, memberRepo, trackingSvc, clk)
	profilesSvc := profiles.NewService(profileRepo, clk)

	api := httpapi.NewServer(ridesSvc, trackingSvc, profilesSvc, idemStore, clk)
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware: authMW,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("api listening", "port", cfg.Port, "storage", cfg.StorageBackend, "positions", cfg.PositionBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen failed", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
