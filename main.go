package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/SuLition/CatParse/internal/auth"
	"github.com/SuLition/CatParse/internal/config"
	"github.com/SuLition/CatParse/internal/extract"
	"github.com/SuLition/CatParse/internal/filestore"
	"github.com/SuLition/CatParse/internal/history"
	"github.com/SuLition/CatParse/internal/kvstore"
	"github.com/SuLition/CatParse/internal/relay"
	"github.com/SuLition/CatParse/internal/rewrite"
	"github.com/SuLition/CatParse/internal/tasks"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppName         = "CatParse"
	settingsFile    = "catparse.yaml"
	shutdownTimeout = 10 * time.Second
	tempDirName     = "temp"
)

// services holds everything the frontend talks to. Only the relay is driven
// by the binary itself.
type services struct {
	config    *config.Manager
	tasks     *tasks.Store
	downloads *history.DownloadHistory
	parses    *history.ParseHistory
	tokens    *auth.Tokens
	rewriter  *rewrite.Client
	extractor *extract.Service
	relay     *relay.Server
}

func main() {
	settingsPath := flag.String("config", settingsFile, "path to the settings file")
	flag.Parse()

	settings, err := config.LoadSettings(*settingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load settings: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(settings.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting", zap.String("app", AppName), zap.String("version", version))

	if err := run(settings, logger); err != nil {
		logger.Fatal("exited with error", zap.Error(err))
	}
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	gin.SetMode(gin.ReleaseMode)
	return zap.NewProduction()
}

func run(settings *config.Settings, logger *zap.Logger) error {
	a := app.NewWithID(settings.App.ID)

	dataDir := settings.App.DataDir
	if dataDir == "" {
		dataDir = a.Storage().RootURI().Path()
	}
	files := filestore.New(dataDir, logger)
	if err := files.EnsureDir(); err != nil {
		return fmt.Errorf("failed to prepare data dir: %w", err)
	}

	backend, closeBackend, err := newBackend(settings, a.Preferences())
	if err != nil {
		return err
	}
	defer closeBackend()
	kv := kvstore.New(backend, logger)

	svc := newServices(settings, kv, files, logger)
	defer svc.tasks.Close()

	logger.Info("services ready",
		zap.String("data_dir", dataDir),
		zap.String("storage", settings.Storage.Backend),
		zap.Any("configured", svc.config.Check()),
		zap.Int("downloads", len(svc.downloads.All())),
		zap.Int("parses", len(svc.parses.All())),
		zap.Bool("bilibili_login", svc.tokens.IsLoggedIn(auth.PlatformBilibili)),
		zap.Bool("xiaohongshu_login", svc.tokens.IsLoggedIn(auth.PlatformXiaohongshu)),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := svc.relay.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("relay server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svc.relay.Shutdown(ctx); err != nil {
		return fmt.Errorf("relay shutdown failed: %w", err)
	}
	logger.Info("stopped")
	return nil
}

// newBackend opens the configured key-value backend and returns its closer
func newBackend(settings *config.Settings, prefs fyne.Preferences) (kvstore.Backend, func(), error) {
	noop := func() {}

	switch settings.Storage.Backend {
	case config.BackendMemory:
		return kvstore.NewMemoryBackend(), noop, nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     settings.Redis.Addr,
			Password: settings.Redis.Password,
			DB:       settings.Redis.DB,
			PoolSize: settings.Redis.PoolSize,
		})
		backend := kvstore.NewRedisBackend(client, settings.Storage.KeyPrefix)

		ctx, cancel := context.WithTimeout(context.Background(), kvstore.DefaultRedisTimeout)
		defer cancel()
		if err := backend.Ping(ctx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", settings.Redis.Addr, err)
		}
		return backend, func() { client.Close() }, nil
	default:
		return kvstore.NewPreferencesBackend(prefs, settings.Storage.KeyPrefix), noop, nil
	}
}

func newServices(settings *config.Settings, kv *kvstore.Store, files *filestore.Store, logger *zap.Logger) *services {
	cfg := config.NewManager(kv.Key(config.StorageKey), logger)
	taskStore := tasks.New(logger)

	tempDir := settings.FFmpeg.TempDir
	if tempDir == "" {
		tempDir = filepath.Join(files.Root(), tempDirName)
	}

	return &services{
		config: cfg,
		tasks:  taskStore,
		downloads: history.NewDownloadHistory(kv.Key(history.StorageKeyDownloads),
			history.WithLogger(logger)),
		parses: history.NewParseHistory(files.File(filestore.ParseHistoryFile),
			history.WithMaxRecords(cfg.MaxHistoryRecords), history.WithLogger(logger)),
		tokens: auth.NewTokens(kv, logger),
		rewriter: rewrite.NewClient("http://"+settings.Relay.Addr, cfg,
			rewrite.WithTaskTracker(taskStore), rewrite.WithLogger(logger)),
		extractor: extract.NewService(taskStore, tempDir,
			extract.WithBinaries(settings.FFmpeg.Binary, settings.FFmpeg.Probe), extract.WithLogger(logger)),
		relay: relay.NewServer(settings.Relay, taskStore, logger),
	}
}
