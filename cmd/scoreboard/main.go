package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/npezzotti/go-scoreboard/internal/api"
	"github.com/npezzotti/go-scoreboard/internal/auth"
	"github.com/npezzotti/go-scoreboard/internal/config"
	"github.com/npezzotti/go-scoreboard/internal/credentials"
	"github.com/npezzotti/go-scoreboard/internal/registry"
	"github.com/npezzotti/go-scoreboard/internal/server"
	"github.com/npezzotti/go-scoreboard/internal/stats"
)

var (
	addr           string
	dsn            string
	dataDir        string
	signingKey     string
	allowedOrigins string
)

// openStore picks Postgres when a DSN is configured and the data directory
// otherwise.
func openStore(cfg *config.Config) (credentials.Store, func() error, error) {
	if cfg.DatabaseDSN != "" {
		pg, err := credentials.NewPgStore(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}

	fs, err := credentials.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return fs, func() error { return nil }, nil
}

func main() {
	logger := log.New(os.Stderr, "[scoreboard] ", log.LstdFlags)

	if err := config.LoadDotEnv(".env"); err != nil {
		logger.Fatal("load .env:", err)
	}

	flag.StringVar(&addr, "addr", config.EnvOrDefault("SCOREBOARD_ADDR", "localhost:8000"), "server address")
	flag.StringVar(&dsn, "dsn", config.EnvOrDefault("SCOREBOARD_DSN", ""), "postgres connection string, the data directory is used when empty")
	flag.StringVar(&dataDir, "data-dir", config.EnvOrDefault("SCOREBOARD_DATA_DIR", "data"), "directory holding the admin password file")
	flag.StringVar(&signingKey, "signing-key", config.EnvOrDefault("SCOREBOARD_SIGNING_KEY", ""), "base64 encoded token signing key, generated when empty")
	flag.StringVar(&allowedOrigins, "allowed-origins", config.EnvOrDefault("SCOREBOARD_ALLOWED_ORIGINS", ""), "comma-separated list of allowed origins for CORS")
	flag.Parse()

	if signingKey == "" {
		secret, err := config.GenerateSigningSecret()
		if err != nil {
			logger.Fatal("generate signing key:", err)
		}
		logger.Println("no signing key configured, generated a random one")
		signingKey = secret
	}

	cfg, err := config.NewConfig(addr, dsn, dataDir, signingKey, config.SplitOrigins(allowedOrigins))
	if err != nil {
		logger.Fatal("config:", err)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Fatal("credential store:", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Println("credential store close:", err)
		}
	}()

	ids, err := registry.NewShortIDGenerator(uint64(time.Now().UnixNano()))
	if err != nil {
		logger.Fatal("id generator:", err)
	}
	reg := registry.NewRegistry(ids)

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)
	statsUpdater.Publish("scoreboard")

	hub := server.NewHub(logger, reg, statsUpdater)
	sessions := auth.NewSessionManager(store, cfg.SigningKey)

	srv := api.NewScoreboardApp(mux, logger, reg, sessions, hub, store, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go hub.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Println("HTTP server shutdown:", err)
	}

	logger.Println("closing watchers...")
	if err := hub.Shutdown(shutDownCtx); err != nil {
		logger.Println("hub shutdown:", err)
	}

	logger.Println("shutdown complete")
}
