package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"crypto/ed25519"
	"vinz/internal/api/middleware"
	"vinz/internal/config"
	"vinz/internal/database"
	"vinz/internal/license"
	"vinz/internal/models"
	"vinz/internal/service"
	"vinz/internal/store"
)

func TestLicenseLifecycle(t *testing.T) {
	ctx := context.Background()

	dbName := "vinz_test"
	dbUser := "user"
	dbPassword := "password"

	postgresContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(10*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %s", err)
	}
	defer func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate postgres container: %s", err)
		}
	}()

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Issuer key pair for the whole lifecycle
	kp, err := license.GenerateKeyPair()
	require.NoError(t, err)

	cfg := config.Config{
		DatabaseURL: connStr,
		AdminSecret: "test-secret",
		IssueDefaults: config.IssueDefaults{
			Domain:       config.DefaultDomain,
			Accounts:     config.DefaultAccounts,
			ValidityDays: config.DefaultValidityDays,
		},
		RateLimitAdmin: config.RateLimitConfig{
			Enabled: false,
		},
		RateLimitVerify: config.RateLimitConfig{
			Enabled: false,
		},
		Retention: config.RetentionConfig{
			DeletedDays: 30,
		},
		TrustedProxies: []string{"127.0.0.1"},
	}

	// Run migrations to ensure schema is fresh
	absPath, _ := filepath.Abs("../../migrations")
	err = database.Migrate(cfg.DatabaseURL, absPath)
	require.NoError(t, err)

	pool, err := database.New(ctx, cfg.DatabaseURL)
	require.NoError(t, err)
	defer pool.Close()

	// Initialize stores and server
	licenseStore := store.NewPostgresLicenseStore(pool)
	logStore := store.NewPostgresLogStore(pool)
	statsStore := store.NewPostgresStatsStore(pool)
	issuer := service.NewIssuer(kp, cfg.IssueDefaults, licenseStore, logStore)
	server := NewServer(cfg, pool, kp, issuer, licenseStore, logStore, statsStore)

	// Generate JWT for admin auth
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "test-admin",
		"iss": "vinz-test",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tokenString, err := token.SignedString([]byte(cfg.AdminSecret))
	require.NoError(t, err)
	authHeader := "Bearer " + tokenString

	// Step 1: Issue License
	t.Log("Step 1: Issue License")
	var licenseID, licenseToken, apiKey string
	var firstValidTo time.Time
	{
		reqBody := map[string]interface{}{
			"domain":   "integration.example.com",
			"accounts": 25,
			"duration": "1y",
		}
		body, _ := json.Marshal(reqBody)
		req, _ := http.NewRequest("POST", "/api/v1/admin/licenses", bytes.NewBuffer(body))
		req.Header.Set("Authorization", authHeader)
		w := httptest.NewRecorder()
		server.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)

		// Every response carries a detached Ed25519 signature over
		// "<timestamp>.<body>" so clients can pin the issuer key.
		ts := w.Header().Get(middleware.TimestampHeader)
		sig, sigErr := base64.StdEncoding.DecodeString(w.Header().Get(middleware.SignatureHeader))
		require.NoError(t, sigErr)
		require.NotEmpty(t, ts)
		assert.True(t, ed25519.Verify(kp.Public, append([]byte(ts+"."), w.Body.Bytes()...), sig),
			"Response signature should verify with the issuer public key")

		var resp map[string]interface{}
		err = json.Unmarshal(w.Body.Bytes(), &resp)
		require.NoError(t, err)

		apiKey = resp["api_key"].(string)
		require.Len(t, apiKey, license.APIKeyLength)
		licenseToken = resp["token"].(string)
		require.NotEmpty(t, licenseToken)

		record := resp["license"].(map[string]interface{})
		licenseID = record["id"].(string)
		require.NotEmpty(t, licenseID)
		assert.Equal(t, "integration.example.com", record["domain"])

		firstValidTo, err = time.Parse(time.RFC3339, record["valid_to"].(string))
		require.NoError(t, err)
	}

	// Step 2: Verify License (Valid)
	t.Log("Step 2: Verify License (Valid)")
	{
		body, _ := json.Marshal(map[string]string{"token": licenseToken})
		req, _ := http.NewRequest("POST", "/api/v1/verify", bytes.NewBuffer(body))
		req.Header.Set("X-Forwarded-For", "10.0.0.1")
		req.RemoteAddr = "127.0.0.1:1234" // Required for Gin to check trusted proxies
		w := httptest.NewRecorder()
		server.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]interface{}
		err = json.Unmarshal(w.Body.Bytes(), &resp)
		require.NoError(t, err)

		valid, ok := resp["valid"].(bool)
		require.True(t, ok)
		assert.True(t, valid, "Freshly issued license should verify")
		assert.Equal(t, "integration.example.com", resp["domain"])
		assert.Equal(t, float64(25), resp["accounts"])
	}

	// Step 3: Renew License
	t.Log("Step 3: Renew License")
	var renewedToken string
	{
		req, _ := http.NewRequest("POST", "/api/v1/renew", nil)
		req.Header.Set("Authorization", "Bearer "+apiKey)
		w := httptest.NewRecorder()
		server.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]interface{}
		err = json.Unmarshal(w.Body.Bytes(), &resp)
		require.NoError(t, err)

		renewedToken = resp["token"].(string)
		require.NotEmpty(t, renewedToken)
		assert.NotEqual(t, licenseToken, renewedToken, "Renewal should mint a new token")

		// The renewed window starts where the current one ends, so the new
		// token only becomes usable at rollover.
		claims, verifyErr := license.Verify(kp.Public, renewedToken, firstValidTo.Add(time.Minute))
		require.NoError(t, verifyErr)
		assert.Equal(t, uint64(firstValidTo.Unix()), claims.ValidFrom)
		assert.Greater(t, claims.ValidTo, uint64(firstValidTo.Unix()))

		_, verifyErr = license.Verify(kp.Public, renewedToken, time.Now())
		assert.ErrorIs(t, verifyErr, license.ErrNotYetValid)
	}

	// Step 3b: Verify Renewed Token over HTTP (not valid yet)
	t.Log("Step 3b: Verify Renewed Token over HTTP")
	{
		body, _ := json.Marshal(map[string]string{"token": renewedToken})
		req, _ := http.NewRequest("POST", "/api/v1/verify", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		server.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]interface{}
		err = json.Unmarshal(w.Body.Bytes(), &resp)
		require.NoError(t, err)
		assert.False(t, resp["valid"].(bool))
		assert.Equal(t, "License is not valid yet", resp["reason"])
	}

	// Step 4: Verify Tampered Token
	t.Log("Step 4: Verify Tampered Token")
	{
		raw, decErr := base64.StdEncoding.DecodeString(licenseToken)
		require.NoError(t, decErr)
		raw[3] ^= 0x01
		tampered := base64.StdEncoding.EncodeToString(raw)

		body, _ := json.Marshal(map[string]string{"token": tampered})
		req, _ := http.NewRequest("POST", "/api/v1/verify", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		server.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]interface{}
		err = json.Unmarshal(w.Body.Bytes(), &resp)
		require.NoError(t, err)
		assert.False(t, resp["valid"].(bool))
		assert.Equal(t, "Signature verification failed", resp["reason"])
	}

	// Step 5: Soft Delete License
	t.Log("Step 5: Soft Delete License")
	{
		req, _ := http.NewRequest("DELETE", "/api/v1/admin/licenses/"+licenseID, nil)
		req.Header.Set("Authorization", authHeader)
		w := httptest.NewRecorder()
		server.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		// Gone from the active listing
		reqGet, _ := http.NewRequest("GET", "/api/v1/admin/licenses/"+licenseID, nil)
		reqGet.Header.Set("Authorization", authHeader)
		wGet := httptest.NewRecorder()
		server.Router.ServeHTTP(wGet, reqGet)
		assert.Equal(t, http.StatusNotFound, wGet.Code, "Soft-deleted license should not resolve by id")

		// Present in the deleted listing
		reqDel, _ := http.NewRequest("GET", "/api/v1/admin/licenses/deleted", nil)
		reqDel.Header.Set("Authorization", authHeader)
		wDel := httptest.NewRecorder()
		server.Router.ServeHTTP(wDel, reqDel)
		require.Equal(t, http.StatusOK, wDel.Code)

		var deleted models.PaginatedList[models.License]
		err = json.Unmarshal(wDel.Body.Bytes(), &deleted)
		require.NoError(t, err)
		found := false
		for _, l := range deleted.Items {
			if l.ID.String() == licenseID {
				found = true
				assert.NotNil(t, l.DeletedAt)
			}
		}
		assert.True(t, found, "Deleted listing should contain the license")
	}

	// Step 6: Restore License
	t.Log("Step 6: Restore License")
	{
		req, _ := http.NewRequest("POST", "/api/v1/admin/licenses/"+licenseID+"/restore", nil)
		req.Header.Set("Authorization", authHeader)
		w := httptest.NewRecorder()
		server.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		reqGet, _ := http.NewRequest("GET", "/api/v1/admin/licenses/"+licenseID, nil)
		reqGet.Header.Set("Authorization", authHeader)
		wGet := httptest.NewRecorder()
		server.Router.ServeHTTP(wGet, reqGet)
		assert.Equal(t, http.StatusOK, wGet.Code, "Restored license should resolve by id again")
	}

	// Step 7: Verify Logs
	t.Log("Step 7: Verify Logs")
	{
		// Verification logs are written out of band, so poll until the three
		// checks from steps 2-4 have landed.
		assert.Eventually(t, func() bool {
			req, _ := http.NewRequest("GET", "/api/v1/admin/logs/verifications", nil)
			req.Header.Set("Authorization", authHeader)
			w := httptest.NewRecorder()
			server.Router.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				return false
			}
			var resp models.PaginatedList[models.VerificationLog]
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				return false
			}
			return resp.TotalCount >= 3
		}, 3*time.Second, 100*time.Millisecond, "Should record all verification attempts")

		req, _ := http.NewRequest("GET", "/api/v1/admin/logs/verifications?outcome=signature_invalid", nil)
		req.Header.Set("Authorization", authHeader)
		w := httptest.NewRecorder()
		server.Router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var invalidLogs models.PaginatedList[models.VerificationLog]
		err = json.Unmarshal(w.Body.Bytes(), &invalidLogs)
		require.NoError(t, err)
		require.NotEmpty(t, invalidLogs.Items)
		assert.Equal(t, models.OutcomeSignatureInvalid, invalidLogs.Items[0].Outcome)

		assert.Eventually(t, func() bool {
			req, _ := http.NewRequest("GET", "/api/v1/admin/logs/audit?license_id="+licenseID, nil)
			req.Header.Set("Authorization", authHeader)
			w := httptest.NewRecorder()
			server.Router.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				return false
			}
			var resp models.PaginatedList[models.AuditLog]
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				return false
			}
			// Issue, renew, delete, restore
			return resp.TotalCount >= 4
		}, 3*time.Second, 100*time.Millisecond, "Should record the full audit trail")
	}

	// Step 8: Dashboard Stats
	t.Log("Step 8: Dashboard Stats")
	{
		req, _ := http.NewRequest("GET", "/api/v1/admin/stats", nil)
		req.Header.Set("Authorization", authHeader)
		w := httptest.NewRecorder()
		server.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var stats models.DashboardStats
		err = json.Unmarshal(w.Body.Bytes(), &stats)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, stats.TotalLicenses, 1)
		assert.GreaterOrEqual(t, stats.ActiveLicenses, 1)
		assert.GreaterOrEqual(t, stats.TotalChecks, 3)
		assert.GreaterOrEqual(t, stats.ChecksByOutcome[models.OutcomeValid], 1)
		assert.NotEmpty(t, stats.RecentAuditLogs)
	}

	// Step 9: Public Key Endpoint
	t.Log("Step 9: Public Key Endpoint")
	{
		req, _ := http.NewRequest("GET", "/api/v1/public-key", nil)
		w := httptest.NewRecorder()
		server.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]string
		err = json.Unmarshal(w.Body.Bytes(), &resp)
		require.NoError(t, err)
		assert.Equal(t, "Ed25519", resp["algorithm"])
		assert.Equal(t, base64.StdEncoding.EncodeToString(kp.Public), resp["public_key"])
	}
}
