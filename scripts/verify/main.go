package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"vinz/internal/license"
)

func main() {
	var publicKeyB64, publicKeyFile, tokenString string
	var nowUnix int64

	flag.StringVar(&publicKeyB64, "pubkey", "", "Base64 encoded public key")
	flag.StringVar(&publicKeyFile, "pubkey-file", "", "Path to a raw public key file (e.g. public_key.txt)")
	flag.StringVar(&tokenString, "token", "", "License key to verify, or @path to read it from a file")
	flag.Int64Var(&nowUnix, "now", 0, "Check the validity window at this unix time instead of the current time")
	flag.Parse()

	if (publicKeyB64 == "" && publicKeyFile == "") || tokenString == "" {
		fmt.Println("Usage: go run ./scripts/verify -pubkey <...> -token <...>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if path, ok := strings.CutPrefix(tokenString, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("Error reading token file: %v\n", err)
			os.Exit(1)
		}
		tokenString = strings.TrimSpace(string(data))
	}

	now := time.Now()
	if nowUnix != 0 {
		now = time.Unix(nowUnix, 0)
	}

	var pubKeyBytes []byte
	var err error
	if publicKeyFile != "" {
		pubKeyBytes, err = os.ReadFile(publicKeyFile)
		if err != nil {
			fmt.Printf("Error reading public key file: %v\n", err)
			os.Exit(1)
		}
	} else {
		pubKeyBytes, err = base64.StdEncoding.DecodeString(publicKeyB64)
		if err != nil {
			fmt.Printf("Error decoding public key: %v\n", err)
			os.Exit(1)
		}
	}

	if len(pubKeyBytes) != ed25519.PublicKeySize {
		fmt.Printf("Invalid public key size: %d\n", len(pubKeyBytes))
		os.Exit(1)
	}

	claims, err := license.Verify(ed25519.PublicKey(pubKeyBytes), tokenString, now)
	switch {
	case err == nil:
		fmt.Println("✅ License key is VALID and AUTHENTIC.")
	case errors.Is(err, license.ErrExpired), errors.Is(err, license.ErrNotYetValid):
		// Signature checked out, only the validity window failed.
		fmt.Printf("❌ %v\n", err)
		claims, _ = license.Peek(tokenString)
	default:
		fmt.Printf("❌ License key validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nLicense Details:")
	fmt.Printf("- Domain:   %s\n", claims.Domain)
	fmt.Printf("- Accounts: %d\n", claims.Accounts)
	fmt.Printf("- Valid:    %s to %s\n",
		time.Unix(int64(claims.ValidFrom), 0).UTC().Format(time.RFC3339),
		time.Unix(int64(claims.ValidTo), 0).UTC().Format(time.RFC3339))
}
