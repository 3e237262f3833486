package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vinz/internal/config"
	"vinz/internal/license"
	"vinz/internal/models"
	"vinz/internal/store"
)

var (
	// ErrEmptyDomain is returned when neither the request nor the
	// configured defaults provide a domain to bind the license to.
	ErrEmptyDomain = errors.New("license domain is empty")

	// ErrInvalidWindow is returned when a requested validity window
	// does not satisfy valid_from <= valid_to.
	ErrInvalidWindow = errors.New("invalid validity window")
)

// apiKeyPrefixLength is the number of leading API key characters stored
// in clear text. The full key is only ever stored as a SHA-256 digest.
const apiKeyPrefixLength = 8

const (
	actionIssueLicense = "ISSUE_LICENSE"
	actionRenewLicense = "RENEW_LICENSE"
)

// HashAPIKey returns the hex-encoded SHA-256 digest of a raw API key,
// the only form in which keys are persisted or compared.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// TokenPrefix returns a short, loggable prefix of a license token.
func TokenPrefix(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:12]
}

// IssueOptions carries the per-request overrides accepted when issuing
// a license. Zero values fall back to the configured defaults.
type IssueOptions struct {
	Domain    string
	Accounts  *uint32
	ValidFrom *time.Time
	ValidTo   *time.Time
}

// IssuedLicense bundles a freshly created license with the secrets that
// are only revealed once: the signed token and the raw API key.
type IssuedLicense struct {
	License *models.License
	Token   string
	APIKey  string
}

// Issuer owns the signing key and produces licenses: it renders the
// claims, signs them, mints the API key and persists the record.
type Issuer struct {
	keys     license.KeyPair
	defaults config.IssueDefaults
	secrets  *license.SecretGenerator
	licenses store.LicenseStore
	logs     store.LogStore
	now      func() time.Time
}

func NewIssuer(keys license.KeyPair, defaults config.IssueDefaults, licenses store.LicenseStore, logs store.LogStore) *Issuer {
	return &Issuer{
		keys:     keys,
		defaults: defaults,
		secrets:  license.NewSecretGenerator(),
		licenses: licenses,
		logs:     logs,
		now:      time.Now,
	}
}

// Issue creates, signs and stores a new license on behalf of actor.
// Options left at their zero value are filled from the configured
// defaults; the validity window defaults to [now, now+validity].
func (i *Issuer) Issue(ctx context.Context, actor string, opts IssueOptions) (*IssuedLicense, error) {
	domain := opts.Domain
	if domain == "" {
		domain = i.defaults.Domain
	}
	if domain == "" {
		return nil, ErrEmptyDomain
	}

	accounts := i.defaults.Accounts
	if opts.Accounts != nil {
		accounts = *opts.Accounts
	}

	now := i.now().UTC().Truncate(time.Second)
	validFrom := now
	if opts.ValidFrom != nil {
		validFrom = opts.ValidFrom.UTC().Truncate(time.Second)
	}
	validTo := validFrom.Add(i.defaults.Validity())
	if opts.ValidTo != nil {
		validTo = opts.ValidTo.UTC().Truncate(time.Second)
	}
	if err := checkWindow(validFrom, validTo); err != nil {
		return nil, err
	}

	token, err := license.Issue(i.keys.Private, license.Claims{
		ValidFrom: uint64(validFrom.Unix()),
		ValidTo:   uint64(validTo.Unix()),
		Accounts:  accounts,
		Domain:    domain,
	})
	if err != nil {
		return nil, fmt.Errorf("signing license token: %w", err)
	}

	apiKey, err := i.secrets.GenerateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generating api key: %w", err)
	}

	lic := &models.License{
		ID:           uuid.New(),
		Domain:       domain,
		Accounts:     accounts,
		ValidFrom:    validFrom,
		ValidTo:      validTo,
		Token:        token,
		APIKeyPrefix: apiKey[:apiKeyPrefixLength],
		APIKeyHash:   HashAPIKey(apiKey),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := i.licenses.CreateLicense(ctx, lic); err != nil {
		return nil, err
	}

	AsyncLogAuditAction(ctx, i.logs, &models.AuditLog{
		Actor:     actor,
		Action:    actionIssueLicense,
		LicenseID: &lic.ID,
		Details: map[string]interface{}{
			"domain":     domain,
			"accounts":   accounts,
			"valid_from": validFrom.Format(time.RFC3339),
			"valid_to":   validTo.Format(time.RFC3339),
		},
	})

	return &IssuedLicense{License: lic, Token: token, APIKey: apiKey}, nil
}

// Renew re-signs the license identified by rawAPIKey with a fresh
// validity window of the same span. The new window starts where the old
// one ends, or now if the license has already lapsed. The stored record
// is updated in place; the API key stays the same.
func (i *Issuer) Renew(ctx context.Context, rawAPIKey string) (*models.License, error) {
	lic, err := i.licenses.GetLicenseByAPIKeyHash(ctx, HashAPIKey(rawAPIKey))
	if err != nil {
		return nil, err
	}

	span := lic.ValidTo.Sub(lic.ValidFrom)
	validFrom := i.now().UTC().Truncate(time.Second)
	if lic.ValidTo.After(validFrom) {
		validFrom = lic.ValidTo.UTC()
	}
	validTo := validFrom.Add(span)
	if err := checkWindow(validFrom, validTo); err != nil {
		return nil, err
	}

	token, err := license.Issue(i.keys.Private, license.Claims{
		ValidFrom: uint64(validFrom.Unix()),
		ValidTo:   uint64(validTo.Unix()),
		Accounts:  lic.Accounts,
		Domain:    lic.Domain,
	})
	if err != nil {
		return nil, fmt.Errorf("signing license token: %w", err)
	}

	previousTo := lic.ValidTo
	previousPrefix := TokenPrefix(lic.Token)

	lic.Token = token
	lic.ValidFrom = validFrom
	lic.ValidTo = validTo
	lic.UpdatedAt = i.now().UTC().Truncate(time.Second)
	if err := i.licenses.UpdateLicenseToken(ctx, lic); err != nil {
		return nil, err
	}

	AsyncLogAuditAction(ctx, i.logs, &models.AuditLog{
		Actor:     "api-key:" + lic.APIKeyPrefix,
		Action:    actionRenewLicense,
		LicenseID: &lic.ID,
		Details: map[string]interface{}{
			"domain":            lic.Domain,
			"previous_valid_to": previousTo.Format(time.RFC3339),
			"previous_token":    previousPrefix,
			"valid_from":        validFrom.Format(time.RFC3339),
			"valid_to":          validTo.Format(time.RFC3339),
		},
	})

	return lic, nil
}

// VerifyingKey exposes the public half of the signing key.
func (i *Issuer) VerifyingKey() []byte {
	return i.keys.PublicBytes()
}

func checkWindow(from, to time.Time) error {
	if from.Unix() < 0 {
		return fmt.Errorf("%w: valid_from predates the unix epoch", ErrInvalidWindow)
	}
	if to.Before(from) {
		return fmt.Errorf("%w: valid_to %s precedes valid_from %s",
			ErrInvalidWindow, to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	return nil
}
