package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"horse.fit/glossa/internal/auth"
	"horse.fit/glossa/internal/catalog"
	"horse.fit/glossa/internal/cli"
	"horse.fit/glossa/internal/completion"
	"horse.fit/glossa/internal/config"
	"horse.fit/glossa/internal/db"
	"horse.fit/glossa/internal/httpapi"
	"horse.fit/glossa/internal/logging"
	"horse.fit/glossa/internal/messages"
	"horse.fit/glossa/internal/settings"
	"horse.fit/glossa/internal/trace"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	listenAddr := fs.String("listen", "", "Listen address (overrides GLOSSA_LISTEN_ADDR)")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	pool, err := db.NewPool(dbCtx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("serve failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	cat := catalog.New()
	cat.Load()

	msgStore := messages.NewStore(pool, logger)
	defer msgStore.Close()
	prefs := settings.NewStore(pool)
	tracer := trace.NewService(logger)

	engine := completion.NewService(completion.Options{
		Endpoint: cfg.TranslateEndpoint,
		Model:    cfg.TranslateModel,
		APIKey:   cfg.TranslateAPIKey,
	}, msgStore, tracer, logger)
	defer engine.Close()

	adminHash := ""
	if cfg.AuthEnabled() {
		adminHash, err = auth.HashPassword(cfg.AdminPassword)
		if err != nil {
			logger.Error().Err(err).Msg("serve failed to hash admin password")
			fmt.Fprintf(os.Stderr, "Failed to hash admin password: %v\n", err)
			return 1
		}
	}

	addr := strings.TrimSpace(*listenAddr)
	if addr == "" {
		addr = cfg.ListenAddr
	}

	srv := httpapi.NewServer(httpapi.Deps{
		Pool:     pool,
		Catalog:  cat,
		Messages: msgStore,
		Prefs:    prefs,
		Engine:   engine,
		Tracer:   tracer,
	}, logger, httpapi.Options{
		ListenAddr:        addr,
		ReadTimeout:       *readTimeout,
		ShutdownTimeout:   *shutdownTimeout,
		SessionTTL:        time.Duration(cfg.SessionIdleMinutes) * time.Minute,
		AuthTokenTTL:      time.Duration(cfg.SessionTTLHours) * time.Hour,
		AllowedOrigins:    cfg.CORSAllowedOriginsList(),
		AdminPasswordHash: adminHash,
		UILanguage:        cfg.UILanguage,
	})

	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Str("listen_addr", addr).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}

	return 0
}
