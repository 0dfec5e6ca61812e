package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/medreport/analyzer/internal/analysis"
	"github.com/medreport/analyzer/internal/api"
	"github.com/medreport/analyzer/internal/config"
	"github.com/medreport/analyzer/internal/gemini"
	"github.com/medreport/analyzer/internal/lock"
	"github.com/medreport/analyzer/internal/logging"
	"github.com/medreport/analyzer/internal/session"
	"github.com/medreport/analyzer/internal/web"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	configPath string
	envFile    string
	debug      bool
}

func (o *serveOptions) bindFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.configPath, "config", "c", "medreport.yaml", "path to the YAML config file (created with defaults if missing)")
	cmd.Flags().StringVar(&o.envFile, "env-file", "", "dotenv file holding the analysis service key (overrides analysis.env_file)")
	cmd.Flags().BoolVar(&o.debug, "debug", false, "include internal error details in API responses")
}

func runServe(ctx context.Context, opts *serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.envFile != "" {
		cfg.Analysis.EnvFile = opts.envFile
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	apiKey, err := cfg.ResolveAPIKey()
	if err != nil {
		logger.Error("refusing to start", "error", err)
		return err
	}

	client, err := gemini.NewClient(gemini.Config{
		Endpoint: cfg.Analysis.Endpoint,
		APIKey:   apiKey,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create analysis client: %w", err)
	}

	locker, closeLocker, err := newLocker(cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	sessionMgr := session.NewManager(analysis.NewPipeline(client, logger), session.Options{
		MaxSessions: cfg.Sessions.MaxSessions,
		Locker:      locker,
		Logger:      logger,
	})

	e := newEcho(cfg, sessionMgr, logger, opts.debug)

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      e,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		runCleanup(groupCtx, sessionMgr, cfg.CleanupInterval(), cfg.SessionTimeout())
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown failed", "error", err)
		}
		if err := sessionMgr.Shutdown(shutdownCtx); err != nil {
			logger.Warn("analyses still running at shutdown", "error", err)
		}
		return nil
	})

	printBanner(os.Stdout, cfg, opts.configPath)
	logger.Info("server started", "addr", cfg.GetServerAddr(), "gate", cfg.Gate.Backend)

	return g.Wait()
}

// newEcho builds the HTTP handler tree.
func newEcho(cfg *config.AppConfig, sessionMgr *session.Manager, logger *slog.Logger, debug bool) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareConfig{
		Logger:           logger,
		RequestLogging:   cfg.Server.EnableRequestLogging,
		ShowErrorDetails: debug,
		BodyLimit:        cfg.Server.BodyLimit,
		EnableCORS:       cfg.Server.EnableCORS,
		AllowOrigins:     api.SplitOrigins(cfg.Server.AllowOrigins),
	})

	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		SessionMgr: sessionMgr,
		Version:    Version,
	}))

	if web.HasEmbeddedFiles() {
		if err := web.RegisterStaticRoutes(e); err != nil {
			logger.Warn("failed to register static routes", "error", err)
		}
	}

	return e
}

// newLocker selects the busy gate backend.
func newLocker(cfg *config.AppConfig) (lock.Locker, func(), error) {
	if cfg.Gate.Backend != "redis" {
		return lock.NewMemoryLocker(), func() {}, nil
	}

	rl, err := lock.NewRedisLocker(lock.RedisOptions{
		Addr:     cfg.Gate.RedisAddr,
		Password: cfg.Gate.RedisPassword,
		DB:       cfg.Gate.RedisDB,
		TTL:      cfg.LockTTL(),
		Prefix:   cfg.Gate.KeyPrefix,
	})
	if err != nil {
		return nil, nil, err
	}
	return rl, func() { rl.Close() }, nil
}

// runCleanup sweeps expired sessions until ctx is done.
func runCleanup(ctx context.Context, sessionMgr *session.Manager, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessionMgr.CleanupOldSessions(maxAge)
		}
	}
}

func printBanner(w io.Writer, cfg *config.AppConfig, configPath string) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║           Medical Report Analyzer                         ║\n")
	fmt.Fprintf(w, "╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║  Version:    %-45s║\n", Version)
	fmt.Fprintf(w, "║  Build Time: %-45s║\n", BuildTime)
	fmt.Fprintf(w, "║  Gate:       %-45s║\n", cfg.Gate.Backend)
	fmt.Fprintf(w, "╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║  Config:    %-46s║\n", configPath)
	fmt.Fprintf(w, "║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Fprintf(w, "╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Fprintf(w, "\n")
}
