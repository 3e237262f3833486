package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vinz/internal/models"
	"vinz/internal/store"
)

// ListVerificationLogsHandler handles GET /api/v1/admin/logs/verifications
func ListVerificationLogsHandler(logStore store.LogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var outcome *models.VerificationOutcome
		if o := c.Query("outcome"); o != "" {
			v := models.VerificationOutcome(o)
			switch v {
			case models.OutcomeValid, models.OutcomeExpired, models.OutcomeNotYetValid,
				models.OutcomeSignatureInvalid, models.OutcomeMalformed:
				outcome = &v
			default:
				c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown outcome filter"})
				return
			}
		}

		var domain *string
		if d := c.Query("domain"); d != "" {
			domain = &d
		}

		pagination := ParsePaginationParams(c)

		logs, totalCount, err := logStore.ListVerificationLogs(c.Request.Context(), outcome, domain, pagination)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch verification logs"})
			return
		}

		c.JSON(http.StatusOK, models.NewPaginatedList(logs, totalCount, pagination))
	}
}

// ListAuditLogsHandler handles GET /api/v1/admin/logs/audit
func ListAuditLogsHandler(logStore store.LogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var licenseID *string
		if idStr := c.Query("license_id"); idStr != "" {
			if _, err := uuid.Parse(idStr); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid license_id parameter"})
				return
			}
			licenseID = &idStr
		}

		pagination := ParsePaginationParams(c)

		logs, totalCount, err := logStore.ListAuditLogs(c.Request.Context(), licenseID, pagination)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch audit logs"})
			return
		}

		c.JSON(http.StatusOK, models.NewPaginatedList(logs, totalCount, pagination))
	}
}
