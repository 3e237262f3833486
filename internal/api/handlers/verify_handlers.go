package handlers

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"vinz/internal/license"
	"vinz/internal/models"
	"vinz/internal/service"
	"vinz/internal/store"
)

type verifyLicenseRequest struct {
	Token string `json:"token" binding:"required"`
}

// VerifyLicenseHandler handles POST /api/v1/verify. Outcomes are always
// reported with 200: a failed check is an answer, not a request error.
func VerifyLicenseHandler(pub ed25519.PublicKey, licenseStore store.LicenseStore, logStore store.LogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyLicenseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		logEntry := &models.VerificationLog{
			TokenPrefix: service.TokenPrefix(req.Token),
			IPAddress:   c.ClientIP(),
			UserAgent:   c.Request.UserAgent(),
		}

		claims, err := license.Verify(pub, req.Token, time.Now())
		if err != nil {
			outcome, reason := classifyVerifyError(err)
			logEntry.Outcome = outcome
			if peeked, peekErr := license.Peek(req.Token); peekErr == nil {
				logEntry.Domain = peeked.Domain
			}
			service.AsyncLogVerification(c.Request.Context(), logStore, logEntry)

			c.JSON(http.StatusOK, gin.H{"valid": false, "reason": reason})
			return
		}

		logEntry.Outcome = models.OutcomeValid
		logEntry.Domain = claims.Domain
		if lic, lookupErr := licenseStore.GetLicenseByDomain(c.Request.Context(), claims.Domain); lookupErr == nil && lic != nil {
			logEntry.LicenseID = &lic.ID
		}
		service.AsyncLogVerification(c.Request.Context(), logStore, logEntry)

		c.JSON(http.StatusOK, gin.H{
			"valid":      true,
			"domain":     claims.Domain,
			"accounts":   claims.Accounts,
			"valid_from": claims.ValidFrom,
			"valid_to":   claims.ValidTo,
		})
	}
}

func classifyVerifyError(err error) (models.VerificationOutcome, string) {
	switch {
	case errors.Is(err, license.ErrExpired):
		return models.OutcomeExpired, "License has expired"
	case errors.Is(err, license.ErrNotYetValid):
		return models.OutcomeNotYetValid, "License is not valid yet"
	case errors.Is(err, license.ErrSignatureInvalid):
		return models.OutcomeSignatureInvalid, "Signature verification failed"
	default:
		return models.OutcomeMalformed, "Malformed license key"
	}
}

// RenewLicenseHandler handles POST /api/v1/renew. The caller
// authenticates with the API key handed out at issue time; a successful
// renewal re-signs the license for another span of the same length.
func RenewLicenseHandler(issuer *service.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey, ok := requireAPIKey(c)
		if !ok {
			return
		}

		renewed, err := issuer.Renew(c.Request.Context(), apiKey)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
				return
			}
			slog.Error("Failed to renew license", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to renew license"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"license": renewed,
			"token":   renewed.Token,
		})
	}
}

// PublicKeyHandler handles GET /api/v1/public-key so deployments can
// fetch the verifying key without shipping it out of band.
func PublicKeyHandler(pub ed25519.PublicKey) gin.HandlerFunc {
	encoded := base64.StdEncoding.EncodeToString(pub)
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"algorithm":  "Ed25519",
			"public_key": encoded,
		})
	}
}

func requireAPIKey(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	key, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || key == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header with bearer API key is required"})
		return "", false
	}
	return key, true
}
