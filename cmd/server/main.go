package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"resinbay/internal/config"
	"resinbay/internal/db"
	"resinbay/internal/db/mock"
	applog "resinbay/internal/log"
	"resinbay/internal/maintenance"
	"resinbay/internal/server"
)

func main() {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if cfg.Logging.Level != "" {
		if err := applog.SetLevel(cfg.Logging.Level); err != nil {
			log.Fatalf("invalid log level: %v", err)
		}
	}

	database, err := openDatabase(cfg)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	sweeper := maintenance.NewSweeper(database)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("failed to start maintenance sweeper: %v", err)
	}
	defer sweeper.Stop()

	srv, err := server.New(server.Config{
		Addr:    cfg.Server.Addr,
		BaseURL: cfg.Server.BaseURL,
		Session: server.SessionConfig{
			Lifetime:     cfg.Auth.Session.Lifetime,
			CookieName:   cfg.Auth.Session.CookieName,
			CookieDomain: cfg.Auth.Session.CookieDomain,
			CookieSecure: cfg.Auth.Session.CookieSecure,
		},
		Database: database,
	})
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}

	go func() {
		log.Printf("starting http server on %s", cfg.Server.Addr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server encountered an error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh

	log.Println("shutting down http server")
	if err := srv.Stop(); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
}

func openDatabase(cfg config.Config) (*gorm.DB, error) {
	if cfg.Database.UseMock {
		applog.Info(context.Background(), "using seeded in-memory database")
		return mock.New(context.Background())
	}
	return db.Configure(cfg.Database)
}
