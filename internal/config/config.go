package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"vinz/internal/license"
)

// Issuing defaults applied when a request omits a field. The five-year span
// is 1825 days, i.e. 157680000 seconds.
const (
	DefaultDomain       = "example.com"
	DefaultAccounts     = 100
	DefaultValidityDays = 1825
)

type Config struct {
	Port           string   `yaml:"port"`
	Debug          bool     `yaml:"debug"`
	DatabaseURL    string   `yaml:"database_url"`
	AdminSecret    string   `yaml:"admin_secret"`
	TrustedProxies []string `yaml:"trusted_proxies"`

	// SigningKey is the issuer private key as base64 of its PKCS#8 DER
	// form. PublicKey is the matching raw 32-byte public key in base64 and
	// is derived from SigningKey when omitted.
	SigningKey string `yaml:"signing_key"`
	PublicKey  string `yaml:"public_key"`

	IssueDefaults   IssueDefaults   `yaml:"issue_defaults"`
	RateLimitAdmin  RateLimitConfig `yaml:"rate_limit_admin"`
	RateLimitVerify RateLimitConfig `yaml:"rate_limit_verify"`
	Retention       RetentionConfig `yaml:"retention"`
	Alerts          AlertConfig     `yaml:"alerts"`
}

// IssueDefaults fills fields an issue request leaves empty.
type IssueDefaults struct {
	Domain       string `yaml:"domain"`
	Accounts     uint32 `yaml:"accounts"`
	ValidityDays int    `yaml:"validity_days"`
}

// Validity is the default license lifetime as a duration.
func (d IssueDefaults) Validity() time.Duration {
	return time.Duration(d.ValidityDays) * 24 * time.Hour
}

type RateLimitConfig struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Enabled           bool          `yaml:"enabled"`
	CacheSize         int           `yaml:"cache_size"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
}

// RetentionConfig bounds how long soft-deleted license records stay
// recoverable.
type RetentionConfig struct {
	DeletedDays int `yaml:"deleted_days"`
}

// Window is the retention span as a duration.
func (r RetentionConfig) Window() time.Duration {
	return time.Duration(r.DeletedDays) * 24 * time.Hour
}

type AlertConfig struct {
	Enabled       bool          `yaml:"enabled"`
	ThresholdDays int           `yaml:"threshold_days"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	SMTPHost      string        `yaml:"smtp_host"`
	SMTPPort      int           `yaml:"smtp_port"`
	SMTPUsername  string        `yaml:"smtp_username"`
	SMTPPassword  string        `yaml:"smtp_password"`
	From          string        `yaml:"from"`
	To            []string      `yaml:"to"`
}

// Threshold is the expiry warning window as a duration.
func (a AlertConfig) Threshold() time.Duration {
	return time.Duration(a.ThresholdDays) * 24 * time.Hour
}

func Load() (Config, error) {
	return LoadFromPath("config.yaml")
}

func LoadFromPath(path string) (Config, error) {
	cfg := NewDefaultConfig()

	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return cfg, err
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	cfg.LoadEnv()

	if err := cfg.ensureSigningKey(); err != nil {
		return cfg, err
	}

	if err := cfg.ensureAdminSecret(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func NewDefaultConfig() Config {
	return Config{
		Port:  "8080",
		Debug: false,
		IssueDefaults: IssueDefaults{
			Domain:       DefaultDomain,
			Accounts:     DefaultAccounts,
			ValidityDays: DefaultValidityDays,
		},
		RateLimitAdmin: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
			Enabled:           true,
			CacheSize:         5000,
			CacheTTL:          1 * time.Hour,
		},
		RateLimitVerify: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
			Enabled:           true,
			CacheSize:         5000,
			CacheTTL:          1 * time.Hour,
		},
		Retention: RetentionConfig{
			DeletedDays: 30,
		},
		Alerts: AlertConfig{
			Enabled:       false,
			ThresholdDays: 30,
			SweepInterval: 24 * time.Hour,
		},
	}
}

func (c *Config) LoadEnv() {
	if envPort := os.Getenv("PORT"); envPort != "" {
		c.Port = envPort
	}
	if envDB := os.Getenv("DATABASE_URL"); envDB != "" {
		c.DatabaseURL = envDB
	}
	if envSecret := os.Getenv("ADMIN_SECRET"); envSecret != "" {
		c.AdminSecret = envSecret
	}
	if envKey := os.Getenv("SIGNING_KEY"); envKey != "" {
		c.SigningKey = envKey
	}
	if envPub := os.Getenv("PUBLIC_KEY"); envPub != "" {
		c.PublicKey = envPub
	}
	if envPass := os.Getenv("SMTP_PASSWORD"); envPass != "" {
		c.Alerts.SMTPPassword = envPass
	}
}

// ensureSigningKey generates an ephemeral issuer key pair when none is
// configured, and derives the public half when only the private key is set.
func (c *Config) ensureSigningKey() error {
	if c.SigningKey == "" {
		slog.Warn("SigningKey not found, generating ephemeral issuer key pair. TOKENS ISSUED WITH IT CANNOT BE VERIFIED AFTER RESTART.")

		kp, err := license.GenerateKeyPair()
		if err != nil {
			return fmt.Errorf("failed to generate issuer keys: %w", err)
		}
		der, err := kp.MarshalPrivate()
		if err != nil {
			return fmt.Errorf("failed to serialize issuer key: %w", err)
		}

		c.SigningKey = base64.StdEncoding.EncodeToString(der)
		c.PublicKey = base64.StdEncoding.EncodeToString(kp.PublicBytes())
		return nil
	}

	if c.PublicKey == "" {
		kp, err := c.SigningKeyPair()
		if err != nil {
			return err
		}
		c.PublicKey = base64.StdEncoding.EncodeToString(kp.PublicBytes())
	}
	return nil
}

func (c *Config) ensureAdminSecret() error {
	if c.AdminSecret != "" {
		return nil
	}

	slog.Warn("Admin Secret not found, generating a random ephemeral one. THIS SECRET WILL BE LOST ON RESTART.")

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("failed to generate admin secret: %w", err)
	}
	c.AdminSecret = base64.StdEncoding.EncodeToString(secretBytes)

	return nil
}

// SigningKeyPair decodes the configured issuer private key.
func (c *Config) SigningKeyPair() (license.KeyPair, error) {
	der, err := base64.StdEncoding.DecodeString(c.SigningKey)
	if err != nil {
		return license.KeyPair{}, fmt.Errorf("signing_key is not valid base64: %w", err)
	}
	return license.LoadPrivateKey(der)
}

// VerifyingKey decodes the configured raw public key.
func (c *Config) VerifyingKey() (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(c.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("public_key is not valid base64: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public_key is %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}
