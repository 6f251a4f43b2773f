package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vbonduro/applicheck/internal/check"
	"github.com/vbonduro/applicheck/internal/config"
	"github.com/vbonduro/applicheck/internal/db"
	"github.com/vbonduro/applicheck/internal/logging"
	"github.com/vbonduro/applicheck/internal/metrics"
	"github.com/vbonduro/applicheck/internal/photostore"
	"github.com/vbonduro/applicheck/internal/photostore/local"
	s3store "github.com/vbonduro/applicheck/internal/photostore/s3"
	"github.com/vbonduro/applicheck/internal/service"
	"github.com/vbonduro/applicheck/internal/store"
	"github.com/vbonduro/applicheck/internal/vision"
	claudevision "github.com/vbonduro/applicheck/internal/vision/claude"
	ollamavision "github.com/vbonduro/applicheck/internal/vision/ollama"
	"github.com/vbonduro/applicheck/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		cleanup()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	photos, err := newPhotoStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	applianceStore := store.NewApplianceStore(database)
	reportStore := store.NewReportStore(database)
	markerStore := store.NewMarkerStore(database)
	sessions := func(orgID, applianceID, user string) check.SessionStore {
		return store.NewSessionKV(database, store.SessionNamespace(orgID, applianceID, user))
	}
	m := metrics.New()

	appliances := service.NewApplianceService(applianceStore, photos, newDescriber(cfg, logger), service.AllowAll{}, web.ImageURLPrefix, logger)
	checks := service.NewCheckService(applianceStore, markerStore, reportStore, sessions, service.AllowAll{}, m, logger)
	reports := service.NewReportService(reportStore, applianceStore, service.AllowAll{}, logger)

	server := web.NewServer(appliances, checks, reports, m, web.Options{
		DefaultOrg:    cfg.DefaultOrg,
		MaxPhotoBytes: cfg.PhotoMaxBytes,
	}, logger)
	return server.ListenAndServe(ctx, cfg.ListenAddr)
}

func newPhotoStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (photostore.PhotoStore, error) {
	if cfg.PhotoBackend == "s3" {
		logger.Info("using S3 photo store", "bucket", cfg.S3.Bucket, "endpoint", cfg.S3.Endpoint)
		return s3store.New(ctx, s3store.Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.PathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
	}
	logger.Info("using local photo store", "path", cfg.PhotoPath)
	return local.New(cfg.PhotoPath)
}

// newDescriber returns nil when photo suggestions are disabled.
func newDescriber(cfg *config.Config, logger *slog.Logger) vision.Describer {
	switch cfg.VisionBackend {
	case "claude":
		logger.Info("using Claude vision backend", "model", cfg.ClaudeModel)
		return claudevision.NewDescriber(cfg.ClaudeAPIKey, cfg.ClaudeModel)
	case "ollama":
		logger.Info("using Ollama vision backend", "model", cfg.OllamaModel)
		return ollamavision.NewDescriber(cfg.OllamaHost, cfg.OllamaModel)
	default:
		logger.Info("photo suggestions disabled")
		return nil
	}
}
