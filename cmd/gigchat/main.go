package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"gigchat/internal/config"
	"gigchat/internal/constants"
	"gigchat/internal/metrics"
	"gigchat/internal/models"
	"gigchat/internal/retry"
	"gigchat/internal/service"
	"gigchat/internal/store"
	"gigchat/internal/tracing"
	"gigchat/internal/tui"
	"gigchat/pkg/api"
	"gigchat/pkg/realtime"
	"gigchat/pkg/upload"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes sensitive information)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	userID     = flag.String("user", "", "Marketplace user id to sign in as (overrides GIGCHAT_USER_ID)")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("GigChat %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "gigchat: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	user := *userID
	if user == "" {
		user = os.Getenv("GIGCHAT_USER_ID")
	}
	if user == "" {
		return fmt.Errorf("user id is required: pass -user or set GIGCHAT_USER_ID")
	}

	logger, closeLog, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting GigChat")

	tracingManager := tracing.NewManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Open the local store with exponential backoff; a busy sqlite file is
	// the usual transient failure here.
	var st *store.Store
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: constants.DefaultBackoffInitialMs * time.Millisecond,
		MaxDelay:     constants.DefaultBackoffMaxMs * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultStoreRetryAttempts,
		Jitter:       true,
	})
	err = backoff.Retry(ctx, func() error {
		var openErr error
		st, openErr = store.New(cfg.Store.Path)
		if openErr != nil {
			logger.Warnf("Failed to open local store: %v", openErr)
		}
		return openErr
	})
	if err != nil {
		return fmt.Errorf("failed to open local store after retries: %w", err)
	}
	defer st.Close()

	if err := st.CleanupOldRecords(ctx, constants.DefaultCacheRetentionDays); err != nil {
		logger.Warnf("Failed to clean up stale cache rows: %v", err)
	}

	registry := metrics.NewRegistry()

	client := api.NewClient(cfg.API.BaseURL, time.Duration(cfg.API.TimeoutSec)*time.Second, logger)
	uploader := upload.NewUploader(cfg.Upload, logger, registry)

	presence := service.NewPresenceTracker()
	list := service.NewListService(user, client, st, logger)
	channel := realtime.NewChannel(cfg.Realtime.URL, user, logger)
	conn := service.NewConnectionManager(channel, presence, list, logger)
	defer conn.Close()

	// A dead realtime channel degrades to offline presence and no incoming
	// pushes; the REST surface still works, so this is not fatal.
	if err := conn.Start(ctx); err != nil {
		logger.Warnf("Realtime channel unavailable, starting without it: %v", err)
	}

	session := service.NewAudioSession()
	recorder := service.NewRecorder(cfg.Audio.SampleRate)
	var mic service.FrameSource
	if cfg.Audio.CapturePath != "" {
		mic = newCaptureSource(cfg.Audio.CapturePath, cfg.Audio.SampleRate)
	}

	factory := func(conv models.Conversation) *service.Thread {
		return service.NewThread(conv, user, client, uploader, conn, presence, logger, registry)
	}

	model := tui.New(ctx, user, list, conn, factory, session, recorder, mic, st, newMediaFetcher(), logger)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}

	counters, timers, uptime := registry.Snapshot()
	logger.WithFields(logrus.Fields{
		"counters": counters,
		"timers":   timers,
		"uptime":   uptime.String(),
	}).Debug("Session metrics")

	logger.Info("GigChat stopped")
	return nil
}

// buildLogger returns a JSON logger writing to the configured log file.
// The TUI owns the terminal, so without a log file output is discarded.
func buildLogger(cfg *models.Config) (*logrus.Logger, func(), error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	closeLog := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.SetOutput(f)
		closeLog = func() { f.Close() }
	} else {
		logger.SetOutput(io.Discard)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.SetLevel(logrus.InfoLevel)
		} else {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return logger, closeLog, nil
}
