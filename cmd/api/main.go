package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shinyyama/voxelhub-backend/internal/config"
	"github.com/shinyyama/voxelhub-backend/internal/db"
	"github.com/shinyyama/voxelhub-backend/internal/logging"
	appmw "github.com/shinyyama/voxelhub-backend/internal/middleware"
	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/payment"
	"github.com/shinyyama/voxelhub-backend/internal/realtime"
	"github.com/shinyyama/voxelhub-backend/internal/server"
	"github.com/shinyyama/voxelhub-backend/internal/storage"
	"go.uber.org/zap"
)

// Set with -ldflags "-X main.gitSHA=... -X main.buildTime=...".
var (
	gitSHA    = "dev"
	buildTime = ""
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.Setup(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		zap.L().Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(conn); err != nil {
		return err
	}

	var blobs storage.BlobStore
	if cfg.StorageBucket != "" {
		gcs, err := storage.NewGCSStore(ctx, cfg.StorageBucket, cfg.CredentialsFile)
		if err != nil {
			return err
		}
		defer gcs.Close()
		blobs = gcs
	} else {
		zap.L().Warn("STORAGE_BUCKET not set, keeping uploads in memory")
		blobs = storage.NewMemoryStore()
	}

	authMw, err := appmw.NewAuthMiddleware(ctx, cfg)
	if err != nil {
		return err
	}

	providers := payment.Registry{}
	checkouts := payment.CheckoutRegistry{}
	var sim *payment.Simulator
	if cfg.SimulatedPayouts() {
		sim = payment.NewSimulator(cfg.SimulatedStepDelay)
		checkouts[model.PayoutMethodStripe] = sim
		checkouts[model.PayoutMethodPayPal] = sim
		zap.L().Info("payments run in simulated mode", zap.Duration("step", cfg.SimulatedStepDelay))
	} else {
		stripeP := payment.NewStripeProvider(cfg.StripeSecretKey)
		paypalP := payment.NewPayPalProvider(ctx, cfg.PayPalBaseURL, cfg.PayPalClientID, cfg.PayPalClientSecret)
		providers[model.PayoutMethodStripe] = stripeP
		providers[model.PayoutMethodPayPal] = paypalP
		checkouts[model.PayoutMethodStripe] = stripeP
		checkouts[model.PayoutMethodPayPal] = paypalP
	}

	hub := realtime.NewHub()
	var notifier realtime.Notifier = hub
	if cfg.RedisURL != "" {
		rdb, err := realtime.ConnectRedis(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		relay := realtime.NewRedisRelay(rdb, hub)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zap.L().Error("realtime relay stopped", zap.Error(err))
			}
		}()
		notifier = relay
	}

	srv := server.New(server.Deps{
		DB:        conn,
		Config:    cfg,
		Auth:      authMw,
		Blobs:     blobs,
		Hub:       hub,
		Notifier:  notifier,
		Providers: providers,
		Simulator: sim,
		Checkouts: checkouts,
		SHA:       gitSHA,
		BuildTime: buildTime,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		zap.L().Info("starting server", zap.String("addr", addr), zap.String("env", cfg.AppEnv))
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	zap.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
