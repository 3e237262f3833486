package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"vinz/internal/models"
)

type StatsStore interface {
	GetDashboardStats(ctx context.Context, expiringWithin time.Duration) (*models.DashboardStats, error)
}

type PostgresStatsStore struct {
	DB *pgxpool.Pool
}

func NewPostgresStatsStore(db *pgxpool.Pool) *PostgresStatsStore {
	return &PostgresStatsStore{DB: db}
}

func (s *PostgresStatsStore) GetDashboardStats(ctx context.Context, expiringWithin time.Duration) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{
		ChecksByOutcome: map[models.VerificationOutcome]int{},
	}
	now := time.Now()

	// 1. License counts. One pass over the table covers total, live, deleted
	// and soon-to-expire.
	licenseQuery := `
		SELECT
			count(*),
			count(*) FILTER (WHERE deleted_at IS NULL AND valid_to >= $1),
			count(*) FILTER (WHERE deleted_at IS NOT NULL),
			count(*) FILTER (WHERE deleted_at IS NULL AND valid_to >= $1 AND valid_to <= $2)
		FROM licenses
	`
	err := s.DB.QueryRow(ctx, licenseQuery, now, now.Add(expiringWithin)).Scan(
		&stats.TotalLicenses,
		&stats.ActiveLicenses,
		&stats.DeletedLicenses,
		&stats.ExpiringSoon,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count licenses: %w", err)
	}

	// 2. Verification checks grouped by outcome.
	outcomeQuery := `SELECT outcome, count(*) FROM verification_logs GROUP BY outcome`
	rows, err := s.DB.Query(ctx, outcomeQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to count verification outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome models.VerificationOutcome
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan verification outcome: %w", err)
		}
		stats.ChecksByOutcome[outcome] = count
		stats.TotalChecks += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating verification outcomes: %w", err)
	}

	// 3. Recent audit activity (last 3 entries).
	recentQuery := `
		SELECT id, actor, action, license_id, details, created_at
		FROM audit_logs
		ORDER BY created_at DESC LIMIT 3
	`
	auditRows, err := s.DB.Query(ctx, recentQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent audit logs: %w", err)
	}
	defer auditRows.Close()

	var recent []models.AuditLog
	for auditRows.Next() {
		var log models.AuditLog
		var detailsJSON []byte
		if err := auditRows.Scan(
			&log.ID,
			&log.Actor,
			&log.Action,
			&log.LicenseID,
			&detailsJSON,
			&log.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		if err := json.Unmarshal(detailsJSON, &log.Details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal details: %w", err)
		}
		recent = append(recent, log)
	}
	if err := auditRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", err)
	}
	stats.RecentAuditLogs = recent

	return stats, nil
}
