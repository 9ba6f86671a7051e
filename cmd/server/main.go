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

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jusunglee/ciphertrack-go/api/handlers"
	"github.com/jusunglee/ciphertrack-go/internal/config"
	"github.com/jusunglee/ciphertrack-go/internal/logging"
	"github.com/jusunglee/ciphertrack-go/internal/notify"
	"github.com/jusunglee/ciphertrack-go/internal/refresh"
	"github.com/jusunglee/ciphertrack-go/internal/settings"
	"github.com/jusunglee/ciphertrack-go/pkg/ciphertrack"
)

func main() {
	var (
		configPath     = flag.String("config", "", "YAML config file (default config.yml if present)")
		port           = flag.Int("port", 0, "Server port (overrides config)")
		updateInterval = flag.Duration("update-interval", 0, "Background refresh interval (overrides config)")
		noProxy        = flag.Bool("no-proxy", false, "Request the upstream directly instead of through the proxy")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *updateInterval != 0 {
		cfg.Refresh.Interval = *updateInterval
	}
	if *noProxy {
		cfg.Upstream.ProxyURL = ""
	}

	logging.InitLogger(cfg.LogLevel)
	logger := logging.GetLogger()
	defer logging.SyncLogger()

	if err := cfg.Validate(); err != nil {
		logger.Fatalw("Invalid configuration", "error", err)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatalw("Server stopped with error", "error", err)
	}
	logger.Info("Server stopped")
}

func run(cfg *config.Config, logger *zap.SugaredLogger) error {
	prefs, err := openSettings(cfg.Settings)
	if err != nil {
		return err
	}

	clientConfig := ciphertrack.Config{
		UpstreamURL:    cfg.Upstream.URL,
		ProxyURL:       cfg.Upstream.ProxyURL,
		Timeout:        cfg.Upstream.Timeout,
		UpdateInterval: cfg.Refresh.Interval,
		Settings:       prefs,
		Logger:         logger,
	}

	if cfg.Notify.AMQPURL != "" {
		notifier, err := notify.Dial(cfg.Notify.AMQPURL, cfg.Notify.Queue, logger)
		if err != nil {
			prefs.Close()
			return err
		}
		defer notifier.Close()
		clientConfig.Publishers = []refresh.Publisher{notifier}
		logger.Infow("Publishing snapshots", "queue", cfg.Notify.Queue)
	}

	client, err := ciphertrack.NewLocal(clientConfig)
	if err != nil {
		prefs.Close()
		return fmt.Errorf("failed to create tracking client: %w", err)
	}
	defer client.Close()

	// Create HTTP server
	r := mux.NewRouter()
	h := handlers.NewHandler(client)
	h.RegisterRoutes(r)

	// Add middleware
	r.Use(loggingMiddleware(logger))

	// CORS wraps the router so preflight requests are answered before route matching
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      corsHandler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infow("Server starting", "addr", srv.Addr, "settings", cfg.Settings.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openSettings(cfg config.SettingsConfig) (settings.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create settings directory: %w", err)
		}
		return settings.NewSQLite(cfg.SQLitePath)
	case "redis":
		rdb := settings.NewRedisClient(cfg.RedisAddr)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return settings.NewRedis(rdb, ""), nil
	default:
		return settings.NewMemory(), nil
	}
}

func loggingMiddleware(logger *zap.SugaredLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Infow("Request", "method", r.Method, "uri", r.RequestURI, "duration", time.Since(start))
		})
	}
}
