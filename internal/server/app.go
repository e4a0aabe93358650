// Package server builds and runs the watcher application.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/competitor-watch/internal/acquirer"
	"github.com/JakeFAU/competitor-watch/internal/api"
	gcsarchive "github.com/JakeFAU/competitor-watch/internal/archive/gcs"
	localarchive "github.com/JakeFAU/competitor-watch/internal/archive/local"
	memoryarchive "github.com/JakeFAU/competitor-watch/internal/archive/memory"
	"github.com/JakeFAU/competitor-watch/internal/checker"
	"github.com/JakeFAU/competitor-watch/internal/classifier"
	"github.com/JakeFAU/competitor-watch/internal/clock/system"
	"github.com/JakeFAU/competitor-watch/internal/config"
	collyfetcher "github.com/JakeFAU/competitor-watch/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/competitor-watch/internal/fetcher/headless"
	"github.com/JakeFAU/competitor-watch/internal/hash/sha256"
	"github.com/JakeFAU/competitor-watch/internal/id/uuid"
	"github.com/JakeFAU/competitor-watch/internal/logging"
	"github.com/JakeFAU/competitor-watch/internal/metrics"
	pubsubnotifier "github.com/JakeFAU/competitor-watch/internal/notifier/pubsub"
	memorystore "github.com/JakeFAU/competitor-watch/internal/store/memory"
	pgstore "github.com/JakeFAU/competitor-watch/internal/store/postgres"
	"github.com/JakeFAU/competitor-watch/internal/watch"
)

// App contains the application's dependencies.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	apiServer *api.Server

	store         watch.Store
	notifier      *pubsubnotifier.Notifier
	storageClient *storage.Client
	headless      *headlessfetcher.Fetcher
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	app := &App{cfg: cfg, logger: logger}
	app.logger.Info("building application dependencies")

	if err := setupStore(ctx, app); err != nil {
		return nil, err
	}
	archive, err := setupArchive(ctx, app)
	if err != nil {
		return nil, err
	}
	notifier, err := setupNotifier(ctx, app)
	if err != nil {
		return nil, err
	}

	acq := setupAcquirer(app)
	cls := setupClassifier(app)

	chk := checker.New(
		app.store,
		acq,
		cls,
		archive,
		notifier,
		system.New(),
		checker.Config{
			SnapshotAlways: cfg.Checks.SnapshotAlways,
			ArchivePrefix:  cfg.Archive.Prefix,
			Topic:          cfg.Notify.TopicName,
			ImportantOnly:  cfg.Notify.ImportantOnly,
		},
		logger.Named("checker"),
	)
	coordinator := checker.NewCoordinator(chk, app.store, cfg.Checks.Concurrency, logger.Named("coordinator"))

	app.apiServer = api.NewServer(app.store, chk, coordinator, *cfg, logger.Named("api"))
	return app, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	return a.Close()
}

// Close gracefully shuts down the application's services.
func (a *App) Close() error {
	if a.headless != nil {
		a.headless.Close()
	}
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.logger.Warn("notifier close failed", zap.Error(err))
		}
	}
	if a.storageClient != nil {
		if err := a.storageClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("store close failed", zap.Error(err))
		}
	}
	a.logger.Info("shutdown complete")
	_ = a.logger.Sync()
	return nil
}

func setupStore(ctx context.Context, app *App) error {
	if app.cfg.DB.DSN == "" {
		app.logger.Info("no database DSN configured, using in-memory store")
		app.store = memorystore.New(uuid.New(), system.New())
		return nil
	}
	store, err := pgstore.New(ctx, app.cfg.DB.DSN, uuid.New(), system.New(), app.logger.Named("store"))
	if err != nil {
		return fmt.Errorf("postgres store init failed: %w", err)
	}
	app.logger.Info("postgres store initialized")
	app.store = store
	return nil
}

func setupArchive(ctx context.Context, app *App) (watch.ArchiveStore, error) {
	switch app.cfg.Archive.Backend {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		app.storageClient = client
		archive, err := gcsarchive.New(client, gcsarchive.Config{Bucket: app.cfg.Archive.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("gcs archive init failed: %w", err)
		}
		app.logger.Info("using GCS archive backend", zap.String("bucket", app.cfg.Archive.GCSBucket))
		return archive, nil
	case "local":
		archive, err := localarchive.New(localarchive.Config{BaseDir: app.cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local archive init failed: %w", err)
		}
		app.logger.Info("using local archive backend", zap.String("base_dir", app.cfg.Archive.BaseDir))
		return archive, nil
	case "memory":
		app.logger.Info("using in-memory archive backend")
		return memoryarchive.New(), nil
	default:
		app.logger.Info("raw HTML archiving disabled")
		return nil, nil
	}
}

func setupNotifier(ctx context.Context, app *App) (watch.Notifier, error) {
	if app.cfg.Notify.TopicName == "" {
		app.logger.Info("change notifications disabled")
		return nil, nil
	}
	client, err := pubsub.NewClient(ctx, app.cfg.Notify.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	notifier, err := pubsubnotifier.New(client)
	if err != nil {
		return nil, fmt.Errorf("pubsub notifier init failed: %w", err)
	}
	app.notifier = notifier
	app.logger.Info("pubsub notifier initialized",
		zap.String("project", app.cfg.Notify.ProjectID),
		zap.String("topic", app.cfg.Notify.TopicName),
	)
	return notifier, nil
}

func setupAcquirer(app *App) watch.Acquirer {
	static := collyfetcher.New(collyfetcher.Config{
		UserAgent: app.cfg.Fetch.UserAgent,
		Timeout:   app.cfg.FetchTimeout(),
	})

	var headless watch.Fetcher
	if app.cfg.Headless.Enabled {
		hf, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       app.cfg.Headless.MaxParallel,
			UserAgent:         app.cfg.Fetch.UserAgent,
			NavigationTimeout: time.Duration(app.cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			app.logger.Warn("headless fetcher init failed, rendering disabled", zap.Error(err))
		} else {
			app.headless = hf
			headless = hf
			app.logger.Info("headless rendering enabled", zap.Int("max_parallel", app.cfg.Headless.MaxParallel))
		}
	}

	return acquirer.New(
		static,
		headless,
		acquirer.NewRenderDetector(app.cfg.Headless.PromotionThresh),
		sha256.New(),
		acquirer.Config{Timeout: app.cfg.FetchTimeout()},
		app.logger.Named("acquirer"),
	)
}

func setupClassifier(app *App) watch.Classifier {
	if !app.cfg.OracleEnabled() {
		app.logger.Info("oracle not configured, using fallback classifier")
		return classifier.NewFallback()
	}
	app.logger.Info("oracle classifier enabled", zap.String("model", app.cfg.Oracle.Model))
	return classifier.NewOracle(classifier.OracleConfig{
		Endpoint:     app.cfg.Oracle.Endpoint,
		APIKey:       app.cfg.Oracle.APIKey,
		Model:        app.cfg.Oracle.Model,
		Timeout:      app.cfg.OracleTimeout(),
		MaxDiffChars: app.cfg.Oracle.MaxDiffChars,
	}, app.logger.Named("oracle"))
}
