package models

import (
	"time"

	"github.com/google/uuid"
)

// License is the bookkeeping record for an issued license key. The wire token
// is self-contained and verifiable offline; this record exists for listing,
// renewal, and support. The raw API key is never stored, only its SHA-256 hex
// digest and a short display prefix.
type License struct {
	ID           uuid.UUID  `json:"id"`
	Domain       string     `json:"domain"`
	Accounts     uint32     `json:"accounts"`
	ValidFrom    time.Time  `json:"valid_from"`
	ValidTo      time.Time  `json:"valid_to"`
	Token        string     `json:"token"`
	APIKeyPrefix string     `json:"api_key_prefix,omitempty"`
	APIKeyHash   string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// VerificationOutcome mirrors the verifier's terminal states.
type VerificationOutcome string

const (
	OutcomeValid            VerificationOutcome = "valid"
	OutcomeExpired          VerificationOutcome = "expired"
	OutcomeNotYetValid      VerificationOutcome = "not_yet_valid"
	OutcomeSignatureInvalid VerificationOutcome = "signature_invalid"
	OutcomeMalformed        VerificationOutcome = "malformed"
)

// VerificationLog records one verification attempt against the public
// endpoint. Only a short token prefix is kept, never the full key.
type VerificationLog struct {
	ID          uuid.UUID           `json:"id"`
	LicenseID   *uuid.UUID          `json:"license_id,omitempty"`
	Domain      string              `json:"domain,omitempty"`
	Outcome     VerificationOutcome `json:"outcome"`
	TokenPrefix string              `json:"token_prefix,omitempty"`
	IPAddress   string              `json:"ip_address"`
	UserAgent   string              `json:"user_agent,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// AuditLog records an admin or renewal action against a license record.
type AuditLog struct {
	ID        uuid.UUID              `json:"id"`
	Actor     string                 `json:"actor"`
	Action    string                 `json:"action"`
	LicenseID *uuid.UUID             `json:"license_id,omitempty"`
	Details   map[string]interface{} `json:"details"`
	CreatedAt time.Time              `json:"created_at"`
}

// DashboardStats aggregates issuing and verification activity for the admin
// stats endpoint.
type DashboardStats struct {
	TotalLicenses   int                         `json:"total_licenses"`
	ActiveLicenses  int                         `json:"active_licenses"`
	DeletedLicenses int                         `json:"deleted_licenses"`
	ExpiringSoon    int                         `json:"expiring_soon"`
	TotalChecks     int                         `json:"total_checks"`
	ChecksByOutcome map[VerificationOutcome]int `json:"checks_by_outcome"`
	RecentAuditLogs []AuditLog                  `json:"recent_audit_logs"`
}
