// Command scanwin-server starts the scan-and-win HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/scanwin/internal/campaign"
	"github.com/and161185/scanwin/internal/config"
	"github.com/and161185/scanwin/internal/diag"
	"github.com/and161185/scanwin/internal/limiter"
	"github.com/and161185/scanwin/internal/migrate"
	"github.com/and161185/scanwin/internal/ocr"
	"github.com/and161185/scanwin/internal/repository/postgres"
	"github.com/and161185/scanwin/internal/server/httpapi"
	"github.com/and161185/scanwin/internal/service"
	"github.com/and161185/scanwin/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and starts the HTTP server.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// DB pool
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()
	db := &postgres.DB{Pool: pool}

	// Collaborator ports
	codec, err := token.NewCodec([]byte(cfg.HMACSecret))
	if err != nil {
		logger.Fatal("token codec", zap.Error(err))
	}
	rules, err := campaign.Load(cfg.RulesPath)
	if err != nil {
		logger.Fatal("campaign rules", zap.Error(err))
	}
	logger.Info("campaign rules loaded", zap.Int("campaigns", rules.Len()))
	engine := ocr.NewHTTPEngine(cfg.OCRURL, cfg.OCRTimeout)

	// Repositories
	progressRepo := postgres.NewProgressRepo(db)
	engagementRepo := postgres.NewEngagementRepo(db)
	lim := limiter.NewPG(pool, cfg.LimiterWindow, cfg.LimiterMaxFails, cfg.LimiterBlockFor)
	sink := diag.NewPG(pool, logger)

	// Services
	scanSvc := service.NewScanService(codec, rules, engine, progressRepo, lim, sink, cfg.GeofenceRadiusM, logger)
	progressSvc := service.NewProgressService(progressRepo, engagementRepo, logger)

	api := httpapi.New(scanSvc, progressSvc, []byte(cfg.JWTKey), logger)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
