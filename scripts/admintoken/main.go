package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"vinz/internal/config"
	"vinz/internal/service"
)

func main() {
	var configPath, subject string
	var ttl time.Duration

	flag.StringVar(&configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&subject, "subject", "admin", "Subject claim recorded as the acting user")
	flag.DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	cfg, err := config.LoadFromPath(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	tokenString, err := service.MintAdminToken(cfg.AdminSecret, subject, ttl)
	if err != nil {
		log.Fatalf("Error signing token: %v", err)
	}

	fmt.Println(tokenString)
}
