package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"vinz/internal/models"
)

type LogStore interface {
	CreateVerificationLog(ctx context.Context, log *models.VerificationLog) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	ListVerificationLogs(ctx context.Context, outcome *models.VerificationOutcome, domain *string, pagination models.PaginationParams) ([]models.VerificationLog, int, error)
	ListAuditLogs(ctx context.Context, licenseID *string, pagination models.PaginationParams) ([]models.AuditLog, int, error)
}

type PostgresLogStore struct {
	DB *pgxpool.Pool
}

func NewPostgresLogStore(db *pgxpool.Pool) *PostgresLogStore {
	return &PostgresLogStore{DB: db}
}

func (s *PostgresLogStore) CreateVerificationLog(ctx context.Context, log *models.VerificationLog) error {
	query := `
		INSERT INTO verification_logs (license_id, domain, outcome, token_prefix, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return s.DB.QueryRow(
		ctx,
		query,
		log.LicenseID,
		log.Domain,
		log.Outcome,
		log.TokenPrefix,
		log.IPAddress,
		log.UserAgent,
	).Scan(&log.ID, &log.CreatedAt)
}

func (s *PostgresLogStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (actor, action, license_id, details)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	detailsJSON, err := json.Marshal(log.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal details: %w", err)
	}

	return s.DB.QueryRow(
		ctx,
		query,
		log.Actor,
		log.Action,
		log.LicenseID,
		detailsJSON,
	).Scan(&log.ID, &log.CreatedAt)
}

func (s *PostgresLogStore) ListVerificationLogs(ctx context.Context, outcome *models.VerificationOutcome, domain *string, pagination models.PaginationParams) ([]models.VerificationLog, int, error) {
	query := `
		SELECT id, license_id, domain, outcome, token_prefix, ip_address, user_agent, created_at
		FROM verification_logs`
	countQuery := `SELECT count(*) FROM verification_logs`

	where := ""
	args := []interface{}{}
	if outcome != nil {
		where += fmt.Sprintf(" outcome = $%d", len(args)+1)
		args = append(args, *outcome)
	}
	if domain != nil {
		if where != "" {
			where += " AND"
		}
		where += fmt.Sprintf(" domain = $%d", len(args)+1)
		args = append(args, *domain)
	}
	if where != "" {
		query += " WHERE" + where
		countQuery += " WHERE" + where
	}

	query += ` ORDER BY created_at DESC`

	limit := pagination.Limit
	if limit <= 0 {
		limit = 10
	}
	page := pagination.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	var totalCount int
	if err := s.DB.QueryRow(ctx, countQuery, args[:len(args)-2]...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to get total count of verification logs: %w", err)
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query verification logs: %w", err)
	}
	defer rows.Close()

	var logs []models.VerificationLog
	for rows.Next() {
		var log models.VerificationLog
		if err := rows.Scan(
			&log.ID,
			&log.LicenseID,
			&log.Domain,
			&log.Outcome,
			&log.TokenPrefix,
			&log.IPAddress,
			&log.UserAgent,
			&log.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan verification log: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating verification logs: %w", err)
	}

	return logs, totalCount, nil
}

func (s *PostgresLogStore) ListAuditLogs(ctx context.Context, licenseID *string, pagination models.PaginationParams) ([]models.AuditLog, int, error) {
	query := `
		SELECT id, actor, action, license_id, details, created_at
		FROM audit_logs`
	countQuery := `SELECT count(*) FROM audit_logs`

	var args []interface{}
	if licenseID != nil {
		query += ` WHERE license_id = $1`
		countQuery += ` WHERE license_id = $1`
		args = append(args, *licenseID)
	}
	query += ` ORDER BY created_at DESC`

	limit := pagination.Limit
	if limit <= 0 {
		limit = 10
	}
	page := pagination.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	var totalCount int
	if err := s.DB.QueryRow(ctx, countQuery, args[:len(args)-2]...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to get total count of audit logs: %w", err)
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var log models.AuditLog
		var detailsJSON []byte
		if err := rows.Scan(
			&log.ID,
			&log.Actor,
			&log.Action,
			&log.LicenseID,
			&detailsJSON,
			&log.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit log: %w", err)
		}

		if err := json.Unmarshal(detailsJSON, &log.Details); err != nil {
			return nil, 0, fmt.Errorf("failed to unmarshal details: %w", err)
		}

		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating audit logs: %w", err)
	}

	return logs, totalCount, nil
}
