package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"vinz/internal/models"
)

// ParseExpirationDuration parses a shorthand like "3d", "2w", "1mo" or
// "1y" and returns the corresponding instant counted from now. Calendar
// units follow the calendar, so "1mo" in January lands on the same day
// in February.
func ParseExpirationDuration(d string) (time.Time, error) {
	if len(d) < 2 {
		return time.Time{}, fmt.Errorf("duration too short")
	}

	now := time.Now()
	if valStr, ok := strings.CutSuffix(d, "mo"); ok {
		val, err := strconv.Atoi(valStr)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid number")
		}
		return now.AddDate(0, val, 0), nil
	}

	val, err := strconv.Atoi(d[:len(d)-1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid number")
	}

	switch unit := d[len(d)-1:]; unit {
	case "m":
		return now.Add(time.Minute * time.Duration(val)), nil
	case "h":
		return now.Add(time.Hour * time.Duration(val)), nil
	case "d":
		return now.AddDate(0, 0, val), nil
	case "w":
		return now.AddDate(0, 0, val*7), nil
	case "y":
		return now.AddDate(val, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown unit %q", unit)
	}
}

// ParsePaginationParams extracts page and limit from query parameters.
func ParsePaginationParams(c *gin.Context) models.PaginationParams {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	if limit > 1000 {
		limit = 1000
	}

	return models.PaginationParams{
		Page:  page,
		Limit: limit,
	}
}
