package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"vinz/internal/alert"
	"vinz/internal/api"
	"vinz/internal/config"
	"vinz/internal/database"
	"vinz/internal/service"
	"vinz/internal/store"
	"vinz/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := database.Migrate(cfg.DatabaseURL, "migrations"); err != nil {
		slog.Info("Migration error (may be safe if no changes)", "error", err)
	}

	ctx := context.Background()
	pool, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	keys, err := cfg.SigningKeyPair()
	if err != nil {
		slog.Error("Failed to load issuer signing key", "error", err)
		os.Exit(1)
	}

	licenseStore := store.NewPostgresLicenseStore(pool)
	logStore := store.NewPostgresLogStore(pool)
	statsStore := store.NewPostgresStatsStore(pool)

	issuer := service.NewIssuer(keys, cfg.IssueDefaults, licenseStore, logStore)
	server := api.NewServer(cfg, pool, keys, issuer, licenseStore, logStore, statsStore)

	var sender alert.Sender
	if cfg.Alerts.Enabled {
		smtpSender, err := alert.NewSMTPSender(cfg.Alerts)
		if err != nil {
			slog.Error("Failed to configure expiry alerts", "error", err)
			os.Exit(1)
		}
		sender = smtpSender
	}
	sweeper := alert.NewSweeper(licenseStore, sender, logStore, cfg.Alerts, cfg.Retention)
	go sweeper.Run(ctx)

	slog.Info("Vinz the Gatekeeper ("+version.Version+") is now on duty", "port", cfg.Port)
	if err := server.Router.Run(":" + cfg.Port); err != nil {
		slog.Error("Failed to run server", "error", err)
		os.Exit(1)
	}
}
