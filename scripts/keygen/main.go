package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"vinz/internal/config"
	"vinz/internal/license"
	"vinz/internal/version"
)

func main() {
	var (
		domain    string
		accounts  uint
		validFrom int64
		validTo   int64
		noKeys    bool
		keyPath   string
		outDir    string
	)

	flag.StringVar(&domain, "domain", config.DefaultDomain, "Domain the license is issued to")
	flag.UintVar(&accounts, "accounts", config.DefaultAccounts, "Number of accounts")
	flag.Int64Var(&validFrom, "valid-from", 0, "License valid from, unix seconds (default: current time)")
	flag.Int64Var(&validTo, "valid-to", 0, "License valid to, unix seconds (default: 5 years from valid-from)")
	flag.BoolVar(&noKeys, "no-keys", false, "Reuse private_key.pkcs8 from the output directory instead of generating new keys")
	flag.StringVar(&keyPath, "key", "", "Sign with an existing PKCS#8 private key file (implies -no-keys)")
	flag.StringVar(&outDir, "out", ".", "Directory for the generated files")
	flag.Parse()

	fmt.Printf("Vinz License Key Generator %s\n", version.Version)
	fmt.Printf("Author: %s\n\n", version.Author)

	if validFrom == 0 {
		validFrom = time.Now().Unix()
	}
	if validTo == 0 {
		validTo = validFrom + int64(config.DefaultValidityDays)*24*60*60
	}
	if validTo < validFrom {
		log.Fatalf("valid-to %d lies before valid-from %d", validTo, validFrom)
	}

	privPath := filepath.Join(outDir, "private_key.pkcs8")
	if keyPath == "" {
		keyPath = privPath
	} else {
		noKeys = true
	}

	var keys license.KeyPair
	if noKeys {
		der, err := os.ReadFile(keyPath)
		if err != nil {
			log.Fatalf("Failed to read private key file: %v", err)
		}
		keys, err = license.LoadPrivateKey(der)
		if err != nil {
			log.Fatalf("Failed to load private key: %v", err)
		}
	} else {
		var err error
		keys, err = license.GenerateKeyPair()
		if err != nil {
			log.Fatalf("Failed to generate key pair: %v", err)
		}

		der, err := keys.MarshalPrivate()
		if err != nil {
			log.Fatalf("Failed to serialize private key: %v", err)
		}
		if err := os.WriteFile(privPath, der, 0o600); err != nil {
			log.Fatalf("Failed to write private key file: %v", err)
		}
		if err := os.WriteFile(filepath.Join(outDir, "public_key.txt"), keys.PublicBytes(), 0o644); err != nil {
			log.Fatalf("Failed to write public key file: %v", err)
		}
		fmt.Printf("Wrote %s and public_key.txt; distribute the public key to verifiers.\n\n", privPath)
	}

	token, err := license.Issue(keys.Private, license.Claims{
		ValidFrom: uint64(validFrom),
		ValidTo:   uint64(validTo),
		Accounts:  uint32(accounts),
		Domain:    domain,
	})
	if err != nil {
		log.Fatalf("Failed to generate license key: %v", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "license_key.txt"), []byte(token), 0o644); err != nil {
		log.Fatalf("Failed to write license key file: %v", err)
	}

	apiKey, err := license.NewSecretGenerator().GenerateAPIKey()
	if err != nil {
		log.Fatalf("Failed to generate API key: %v", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "api_key.txt"), []byte(apiKey), 0o600); err != nil {
		log.Fatalf("Failed to write API key file: %v", err)
	}

	from := time.Unix(validFrom, 0).UTC()
	to := time.Unix(validTo, 0).UTC()

	fmt.Printf("License Key\n%s\n\n", token)
	fmt.Printf("API Key (for auto-renewal)\n%s\n\n", apiKey)
	fmt.Printf("Issued To\n%s\n\n", domain)
	fmt.Printf("Accounts\n%d\n\n", accounts)
	fmt.Printf("Validity\n%s to %s\n", from.Format("January 2, 2006"), to.Format("January 2, 2006"))
}
