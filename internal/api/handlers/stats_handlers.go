package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vinz/internal/store"
)

// GetDashboardStatsHandler handles GET /api/v1/admin/stats. The
// expiring-soon horizon defaults to 30 days and accepts the same
// shorthand as license durations.
func GetDashboardStatsHandler(statsStore store.StatsStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		durationStr := c.Query("expiring_within")
		if durationStr == "" {
			durationStr = "30d"
		}

		horizon, err := ParseExpirationDuration(durationStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expiring_within format. Use shorthand like '7d', '2w' or '1mo'"})
			return
		}

		stats, err := statsStore.GetDashboardStats(c.Request.Context(), time.Until(horizon))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get dashboard stats"})
			return
		}

		c.JSON(http.StatusOK, stats)
	}
}
