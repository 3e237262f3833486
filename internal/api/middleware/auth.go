package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"vinz/internal/config"
)

const actorContextKey = "vinz.actor"

// JWTAuth guards the admin routes. It accepts HS256 bearer tokens
// signed with the configured admin secret and records the token subject
// for audit attribution.
func JWTAuth(cfg config.Config) gin.HandlerFunc {
	secret := []byte(cfg.AdminSecret)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must be a bearer token"})
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		actor := "admin"
		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if sub, err := claims.GetSubject(); err == nil && sub != "" {
				actor = sub
			}
		}
		c.Set(actorContextKey, actor)

		c.Next()
	}
}

// Actor returns the admin subject recorded by JWTAuth. Requests that
// reached the handler without the middleware attribute to "admin".
func Actor(c *gin.Context) string {
	if v, ok := c.Get(actorContextKey); ok {
		if actor, ok := v.(string); ok && actor != "" {
			return actor
		}
	}
	return "admin"
}
