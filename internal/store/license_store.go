package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vinz/internal/models"
)

type LicenseStore interface {
	CreateLicense(ctx context.Context, license *models.License) error
	GetLicense(ctx context.Context, id string) (*models.License, error)
	GetLicenseByDomain(ctx context.Context, domain string) (*models.License, error)
	GetLicenseByAPIKeyHash(ctx context.Context, hash string) (*models.License, error)
	UpdateLicenseToken(ctx context.Context, license *models.License) error
	ListLicenses(ctx context.Context, domain *string, includeExpired bool, pagination models.PaginationParams) ([]models.License, int, error)
	ListExpiring(ctx context.Context, within time.Duration) ([]models.License, error)
	SoftDeleteLicense(ctx context.Context, id string) error
	ListDeletedLicenses(ctx context.Context, retainedSince time.Time, pagination models.PaginationParams) ([]models.License, int, error)
	RestoreLicense(ctx context.Context, id string) error
	PurgeDeletedLicenses(ctx context.Context, olderThan time.Time) (int64, error)
}

type PostgresLicenseStore struct {
	DB *pgxpool.Pool
}

func NewPostgresLicenseStore(db *pgxpool.Pool) *PostgresLicenseStore {
	return &PostgresLicenseStore{DB: db}
}

const licenseColumns = `
	id, domain, accounts, valid_from, valid_to, token,
	api_key_prefix, api_key_hash,
	created_at, updated_at, deleted_at`

func scanLicense(row pgx.Row) (*models.License, error) {
	var l models.License
	var accounts int64
	err := row.Scan(
		&l.ID,
		&l.Domain,
		&accounts,
		&l.ValidFrom,
		&l.ValidTo,
		&l.Token,
		&l.APIKeyPrefix,
		&l.APIKeyHash,
		&l.CreatedAt,
		&l.UpdatedAt,
		&l.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Accounts = uint32(accounts)
	return &l, nil
}

func (s *PostgresLicenseStore) CreateLicense(ctx context.Context, license *models.License) error {
	query := `
		INSERT INTO licenses (
			id, domain, accounts, valid_from, valid_to, token,
			api_key_prefix, api_key_hash, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`
	_, err := s.DB.Exec(ctx, query,
		license.ID,
		license.Domain,
		int64(license.Accounts),
		license.ValidFrom,
		license.ValidTo,
		license.Token,
		license.APIKeyPrefix,
		license.APIKeyHash,
		license.CreatedAt,
		license.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: license", ErrDuplicate)
		}
		return fmt.Errorf("failed to create license: %w", err)
	}
	return nil
}

func (s *PostgresLicenseStore) GetLicense(ctx context.Context, id string) (*models.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE id = $1 AND deleted_at IS NULL`
	l, err := scanLicense(s.DB.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: license", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get license: %w", err)
	}
	return l, nil
}

// GetLicenseByDomain returns the most recently issued live record for a
// domain. Soft-deleted records are skipped.
func (s *PostgresLicenseStore) GetLicenseByDomain(ctx context.Context, domain string) (*models.License, error) {
	query := `
		SELECT ` + licenseColumns + `
		FROM licenses
		WHERE domain = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`
	l, err := scanLicense(s.DB.QueryRow(ctx, query, domain))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: license", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get license by domain: %w", err)
	}
	return l, nil
}

func (s *PostgresLicenseStore) GetLicenseByAPIKeyHash(ctx context.Context, hash string) (*models.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE api_key_hash = $1 AND deleted_at IS NULL`
	l, err := scanLicense(s.DB.QueryRow(ctx, query, hash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: license", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get license by api key: %w", err)
	}
	return l, nil
}

// UpdateLicenseToken replaces the wire token and validity window of an
// existing record. Renewal is the only caller; identity fields never change.
func (s *PostgresLicenseStore) UpdateLicenseToken(ctx context.Context, license *models.License) error {
	query := `
		UPDATE licenses SET
			token = $1,
			valid_from = $2,
			valid_to = $3,
			updated_at = $4
		WHERE id = $5 AND deleted_at IS NULL
	`
	res, err := s.DB.Exec(ctx, query,
		license.Token,
		license.ValidFrom,
		license.ValidTo,
		license.UpdatedAt,
		license.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update license token: %w", err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%w: license", ErrNotFound)
	}
	return nil
}

func (s *PostgresLicenseStore) ListLicenses(ctx context.Context, domain *string, includeExpired bool, pagination models.PaginationParams) ([]models.License, int, error) {
	where := " WHERE deleted_at IS NULL"
	args := []interface{}{}
	if domain != nil {
		where += fmt.Sprintf(" AND domain = $%d", len(args)+1)
		args = append(args, *domain)
	}
	if !includeExpired {
		where += fmt.Sprintf(" AND valid_to >= $%d", len(args)+1)
		args = append(args, time.Now())
	}

	var totalCount int
	countQuery := `SELECT count(*) FROM licenses` + where
	if err := s.DB.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to get total count of licenses: %w", err)
	}

	query := `SELECT ` + licenseColumns + ` FROM licenses` + where + ` ORDER BY created_at DESC`

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

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list licenses: %w", err)
	}
	defer rows.Close()

	var licenses []models.License
	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan license: %w", err)
		}
		licenses = append(licenses, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating licenses: %w", err)
	}

	return licenses, totalCount, nil
}

// ListExpiring returns live records whose validity ends within the given
// span, soonest first. The alert sweeper is the only caller.
func (s *PostgresLicenseStore) ListExpiring(ctx context.Context, within time.Duration) ([]models.License, error) {
	now := time.Now()
	query := `
		SELECT ` + licenseColumns + `
		FROM licenses
		WHERE deleted_at IS NULL AND valid_to >= $1 AND valid_to <= $2
		ORDER BY valid_to ASC
	`
	rows, err := s.DB.Query(ctx, query, now, now.Add(within))
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring licenses: %w", err)
	}
	defer rows.Close()

	var licenses []models.License
	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan license: %w", err)
		}
		licenses = append(licenses, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expiring licenses: %w", err)
	}

	return licenses, nil
}

// SoftDeleteLicense stamps deleted_at. Already-issued tokens stay valid
// offline; the record just leaves the live views until restored or purged.
func (s *PostgresLicenseStore) SoftDeleteLicense(ctx context.Context, id string) error {
	query := `UPDATE licenses SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	tag, err := s.DB.Exec(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete license: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: license", ErrNotFound)
	}
	return nil
}

func (s *PostgresLicenseStore) ListDeletedLicenses(ctx context.Context, retainedSince time.Time, pagination models.PaginationParams) ([]models.License, int, error) {
	where := ` WHERE deleted_at IS NOT NULL AND deleted_at >= $1`
	args := []interface{}{retainedSince}

	var totalCount int
	if err := s.DB.QueryRow(ctx, `SELECT count(*) FROM licenses`+where, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to get total count of deleted licenses: %w", err)
	}

	query := `SELECT ` + licenseColumns + ` FROM licenses` + where + ` ORDER BY deleted_at DESC`

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

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list deleted licenses: %w", err)
	}
	defer rows.Close()

	var licenses []models.License
	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan license: %w", err)
		}
		licenses = append(licenses, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating deleted licenses: %w", err)
	}

	return licenses, totalCount, nil
}

func (s *PostgresLicenseStore) RestoreLicense(ctx context.Context, id string) error {
	query := `UPDATE licenses SET deleted_at = NULL, updated_at = $1 WHERE id = $2 AND deleted_at IS NOT NULL`
	tag, err := s.DB.Exec(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to restore license: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: deleted license", ErrNotFound)
	}
	return nil
}

// PurgeDeletedLicenses permanently removes records whose soft deletion fell
// out of the retention window.
func (s *PostgresLicenseStore) PurgeDeletedLicenses(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM licenses WHERE deleted_at IS NOT NULL AND deleted_at < $1`
	tag, err := s.DB.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to purge deleted licenses: %w", err)
	}
	return tag.RowsAffected(), nil
}
