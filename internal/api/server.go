package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"vinz/internal/api/handlers"
	"vinz/internal/api/middleware"
	"vinz/internal/config"
	"vinz/internal/license"
	"vinz/internal/service"
	"vinz/internal/store"
	"vinz/internal/version"
)

type Server struct {
	Router *gin.Engine
	DB     *pgxpool.Pool
	Config config.Config
	Keys   license.KeyPair
	Issuer *service.Issuer

	LicenseStore store.LicenseStore
	LogStore     store.LogStore
	StatsStore   store.StatsStore
}

func NewServer(cfg config.Config, db *pgxpool.Pool, keys license.KeyPair, issuer *service.Issuer, licenseStore store.LicenseStore, logStore store.LogStore, statsStore store.StatsStore) *Server {
	r := gin.Default()

	r.Use(middleware.ResponseSigningMiddleware(keys.Private))
	if len(cfg.TrustedProxies) > 0 {
		r.SetTrustedProxies(cfg.TrustedProxies)
	}

	server := &Server{
		Router:       r,
		DB:           db,
		Config:       cfg,
		Keys:         keys,
		Issuer:       issuer,
		LicenseStore: licenseStore,
		LogStore:     logStore,
		StatsStore:   statsStore,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	adminRateLimiter := middleware.RateLimitMiddleware(s.Config.RateLimitAdmin)
	verifyRateLimiter := middleware.RateLimitMiddleware(s.Config.RateLimitVerify)

	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": version.Version})
	})

	v1 := s.Router.Group("/api/v1")

	// Public endpoints: licensed deployments hold a token and an API
	// key, never admin credentials.
	public := v1.Group("/")
	public.Use(verifyRateLimiter)
	{
		public.POST("/verify", handlers.VerifyLicenseHandler(s.Keys.Public, s.LicenseStore, s.LogStore))
		public.POST("/renew", handlers.RenewLicenseHandler(s.Issuer))
		public.GET("/public-key", handlers.PublicKeyHandler(s.Keys.Public))
	}

	// Admin endpoints
	admin := v1.Group("/admin")
	admin.Use(adminRateLimiter)
	admin.Use(middleware.JWTAuth(s.Config))
	{
		admin.GET("/stats", handlers.GetDashboardStatsHandler(s.StatsStore))

		admin.POST("/licenses", handlers.IssueLicenseHandler(s.Issuer))
		admin.GET("/licenses", handlers.ListLicensesHandler(s.LicenseStore))
		admin.GET("/licenses/deleted", handlers.ListDeletedLicensesHandler(s.LicenseStore, s.Config.Retention.Window()))
		admin.GET("/licenses/:id", handlers.GetLicenseHandler(s.LicenseStore))
		admin.DELETE("/licenses/:id", handlers.DeleteLicenseHandler(s.LicenseStore, s.LogStore))
		admin.POST("/licenses/:id/restore", handlers.RestoreLicenseHandler(s.LicenseStore, s.LogStore))

		admin.GET("/logs/verifications", handlers.ListVerificationLogsHandler(s.LogStore))
		admin.GET("/logs/audit", handlers.ListAuditLogsHandler(s.LogStore))
	}
}
