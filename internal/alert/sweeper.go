package alert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"vinz/internal/config"
	"vinz/internal/models"
)

// LicenseSource is the slice of the license store the sweeper needs.
type LicenseSource interface {
	ListExpiring(ctx context.Context, within time.Duration) ([]models.License, error)
	PurgeDeletedLicenses(ctx context.Context, olderThan time.Time) (int64, error)
}

// AuditSink records sweep activity in the audit trail.
type AuditSink interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

const actionExpiryAlert = "EXPIRY_ALERT"

var expiryNotice = template.Must(template.New("expiry").Parse(`The following licenses expire within {{.ThresholdDays}} days:
{{range .Licenses}}
  {{.Domain}} expires {{.ValidTo.Format "January 2, 2006"}} ({{.DaysLeft}} days left, {{.Accounts}} accounts)
{{- end}}

Renew them with the API key issued alongside each license.
`))

type noticeLicense struct {
	Domain   string
	Accounts uint32
	ValidTo  time.Time
	DaysLeft int
}

type noticeData struct {
	ThresholdDays int
	Licenses      []noticeLicense
}

// Sweeper periodically mails a warning about licenses nearing expiry and
// purges soft-deleted records that have aged past the retention window.
type Sweeper struct {
	licenses  LicenseSource
	sender    Sender
	audit     AuditSink
	alerts    config.AlertConfig
	retention config.RetentionConfig

	// notified tracks licenses already alerted on, so each one is mailed
	// once per expiry window. The table lives in memory; a restart may
	// repeat an alert, never skip one.
	notified map[uuid.UUID]struct{}
	now      func() time.Time
}

func NewSweeper(licenses LicenseSource, sender Sender, audit AuditSink, alerts config.AlertConfig, retention config.RetentionConfig) *Sweeper {
	return &Sweeper{
		licenses:  licenses,
		sender:    sender,
		audit:     audit,
		alerts:    alerts,
		retention: retention,
		notified:  make(map[uuid.UUID]struct{}),
		now:       time.Now,
	}
}

// Run sweeps immediately, then at the configured interval until ctx is
// canceled.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.alerts.SweepInterval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs a single alert and purge pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	s.alertExpiring(ctx)
	s.purgeDeleted(ctx)
}

func (s *Sweeper) alertExpiring(ctx context.Context) {
	if !s.alerts.Enabled || s.sender == nil {
		return
	}

	expiring, err := s.licenses.ListExpiring(ctx, s.alerts.Threshold())
	if err != nil {
		slog.Error("Failed to list expiring licenses", "error", err)
		return
	}

	current := make(map[uuid.UUID]struct{}, len(expiring))
	var fresh []models.License
	for _, lic := range expiring {
		current[lic.ID] = struct{}{}
		if _, seen := s.notified[lic.ID]; !seen {
			fresh = append(fresh, lic)
		}
	}
	s.notified = current

	if len(fresh) == 0 {
		return
	}

	body, err := renderExpiryNotice(s.alerts.ThresholdDays, fresh, s.now())
	if err != nil {
		slog.Error("Failed to render expiry notice", "error", err)
		return
	}

	subject := fmt.Sprintf("%d license(s) expiring within %d days", len(fresh), s.alerts.ThresholdDays)
	if err := s.sender.Send(ctx, subject, body); err != nil {
		slog.Error("Failed to send expiry alert", "error", err)
		// Retry these on the next sweep.
		for _, lic := range fresh {
			delete(s.notified, lic.ID)
		}
		return
	}
	slog.Info("Sent expiry alert", "licenses", len(fresh))

	if s.audit != nil {
		domains := make([]string, 0, len(fresh))
		for _, lic := range fresh {
			domains = append(domains, lic.Domain)
		}
		entry := &models.AuditLog{
			Actor:  "sweeper",
			Action: actionExpiryAlert,
			Details: map[string]interface{}{
				"licenses": len(fresh),
				"domains":  domains,
			},
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			slog.Error("Failed to record expiry alert in audit log", "error", err)
		}
	}
}

func (s *Sweeper) purgeDeleted(ctx context.Context) {
	if s.retention.DeletedDays <= 0 {
		return
	}

	cutoff := s.now().Add(-s.retention.Window())
	purged, err := s.licenses.PurgeDeletedLicenses(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to purge deleted licenses", "error", err)
		return
	}
	if purged > 0 {
		slog.Info("Purged deleted licenses past retention", "count", purged)
	}
}

func renderExpiryNotice(thresholdDays int, licenses []models.License, now time.Time) (string, error) {
	data := noticeData{ThresholdDays: thresholdDays}
	for _, lic := range licenses {
		data.Licenses = append(data.Licenses, noticeLicense{
			Domain:   lic.Domain,
			Accounts: lic.Accounts,
			ValidTo:  lic.ValidTo,
			DaysLeft: int(lic.ValidTo.Sub(now).Hours() / 24),
		})
	}

	var buf strings.Builder
	if err := expiryNotice.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
