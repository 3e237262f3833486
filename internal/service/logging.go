package service

import (
	"context"
	"log/slog"

	"vinz/internal/models"
	"vinz/internal/store"
)

func AsyncLogAuditAction(ctx context.Context, logStore store.LogStore, entry *models.AuditLog) {
	slog.Info("Audit Action",
		"action", entry.Action,
		"actor", entry.Actor,
		"license_id", entry.LicenseID,
	)

	go func() {
		if err := logStore.CreateAuditLog(context.Background(), entry); err != nil {
			slog.Error("Failed to create audit log", "error", err, "action", entry.Action)
		}
	}()
}

func AsyncLogVerification(ctx context.Context, logStore store.LogStore, entry *models.VerificationLog) {
	slog.Info("License Verification",
		"outcome", entry.Outcome,
		"domain", entry.Domain,
		"token_prefix", entry.TokenPrefix,
		"ip", entry.IPAddress,
	)

	go func() {
		if err := logStore.CreateVerificationLog(context.Background(), entry); err != nil {
			slog.Error("Failed to create verification log", "error", err, "outcome", entry.Outcome)
		}
	}()
}
