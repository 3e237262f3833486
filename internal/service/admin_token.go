package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MintAdminToken signs a short-lived HS256 bearer token accepted by the
// admin API.
func MintAdminToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("admin secret is empty")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token lifetime must be positive")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iss": "vinz",
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
