package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vinz/internal/api/middleware"
	"vinz/internal/models"
	"vinz/internal/service"
	"vinz/internal/store"
)

type issueLicenseRequest struct {
	Domain    string     `json:"domain"`
	Accounts  *uint32    `json:"accounts"`
	ValidFrom *time.Time `json:"valid_from"`
	ValidTo   *time.Time `json:"valid_to"`
	Duration  string     `json:"duration"`
}

const (
	actionDeleteLicense  = "DELETE_LICENSE"
	actionRestoreLicense = "RESTORE_LICENSE"
)

// IssueLicenseHandler handles POST /api/v1/admin/licenses
func IssueLicenseHandler(issuer *service.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req issueLicenseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if req.ValidTo != nil && req.Duration != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot specify both valid_to and duration"})
			return
		}

		opts := service.IssueOptions{
			Domain:    req.Domain,
			Accounts:  req.Accounts,
			ValidFrom: req.ValidFrom,
			ValidTo:   req.ValidTo,
		}
		if req.Duration != "" {
			validTo, err := ParseExpirationDuration(req.Duration)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid duration format: %v", err)})
				return
			}
			opts.ValidTo = &validTo
		}

		actor := middleware.Actor(c)
		slog.Info("Issuing license", "domain", opts.Domain, "actor", actor)

		issued, err := issuer.Issue(c.Request.Context(), actor, opts)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrEmptyDomain), errors.Is(err, service.ErrInvalidWindow):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, store.ErrDuplicate):
				c.JSON(http.StatusConflict, gin.H{"error": "A license with this token already exists"})
			default:
				slog.Error("Failed to issue license", "error", err, "domain", opts.Domain)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue license"})
			}
			return
		}

		// The raw API key is shown exactly once. Only its hash survives.
		c.JSON(http.StatusCreated, gin.H{
			"license": issued.License,
			"token":   issued.Token,
			"api_key": issued.APIKey,
		})
	}
}

// ListLicensesHandler handles GET /api/v1/admin/licenses
func ListLicensesHandler(licenseStore store.LicenseStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var domain *string
		if d := c.Query("domain"); d != "" {
			domain = &d
		}
		includeExpired := c.Query("include_expired") == "true"

		pagination := ParsePaginationParams(c)

		licenses, totalCount, err := licenseStore.ListLicenses(c.Request.Context(), domain, includeExpired, pagination)
		if err != nil {
			slog.Error("Failed to list licenses", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list licenses"})
			return
		}

		c.JSON(http.StatusOK, models.NewPaginatedList(licenses, totalCount, pagination))
	}
}

// GetLicenseHandler handles GET /api/v1/admin/licenses/:id
func GetLicenseHandler(licenseStore store.LicenseStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := uuid.Parse(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid license id"})
			return
		}

		license, err := licenseStore.GetLicense(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "License not found"})
				return
			}
			slog.Error("Failed to get license", "error", err, "id", id)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get license"})
			return
		}

		c.JSON(http.StatusOK, license)
	}
}

// DeleteLicenseHandler handles DELETE /api/v1/admin/licenses/:id. The
// record is soft deleted and can be restored until the retention window
// runs out.
func DeleteLicenseHandler(licenseStore store.LicenseStore, logStore store.LogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		licenseID, err := uuid.Parse(id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid license id"})
			return
		}

		license, err := licenseStore.GetLicense(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "License not found"})
				return
			}
			slog.Error("Failed to get license for deletion", "error", err, "id", id)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete license"})
			return
		}

		if err := licenseStore.SoftDeleteLicense(c.Request.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "License not found"})
				return
			}
			slog.Error("Failed to delete license", "error", err, "id", id)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete license"})
			return
		}

		slog.Info("License deleted", "id", id, "domain", license.Domain)

		service.AsyncLogAuditAction(c.Request.Context(), logStore, &models.AuditLog{
			Actor:     middleware.Actor(c),
			Action:    actionDeleteLicense,
			LicenseID: &licenseID,
			Details:   map[string]interface{}{"domain": license.Domain},
		})

		c.JSON(http.StatusOK, gin.H{"message": "License deleted"})
	}
}

// ListDeletedLicensesHandler handles GET /api/v1/admin/licenses/deleted.
// Only records still inside the retention window are listed; older ones
// are awaiting the purge sweep and can no longer be restored.
func ListDeletedLicensesHandler(licenseStore store.LicenseStore, retention time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		pagination := ParsePaginationParams(c)
		retainedSince := time.Now().Add(-retention)

		licenses, totalCount, err := licenseStore.ListDeletedLicenses(c.Request.Context(), retainedSince, pagination)
		if err != nil {
			slog.Error("Failed to list deleted licenses", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list deleted licenses"})
			return
		}

		c.JSON(http.StatusOK, models.NewPaginatedList(licenses, totalCount, pagination))
	}
}

// RestoreLicenseHandler handles POST /api/v1/admin/licenses/:id/restore
func RestoreLicenseHandler(licenseStore store.LicenseStore, logStore store.LogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		licenseID, err := uuid.Parse(id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid license id"})
			return
		}

		if err := licenseStore.RestoreLicense(c.Request.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "No deleted license with this id"})
				return
			}
			slog.Error("Failed to restore license", "error", err, "id", id)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to restore license"})
			return
		}

		slog.Info("License restored", "id", id)

		service.AsyncLogAuditAction(c.Request.Context(), logStore, &models.AuditLog{
			Actor:     middleware.Actor(c),
			Action:    actionRestoreLicense,
			LicenseID: &licenseID,
		})

		license, err := licenseStore.GetLicense(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"message": "License restored"})
			return
		}

		c.JSON(http.StatusOK, license)
	}
}
