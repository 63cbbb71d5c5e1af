// Command token mints a bearer token for the /api/v1 routes using the
// configured JWT secret.
// Usage: go run ./cmd/token -subject ops@example.com
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"invoiceflow/internal/config"
	"invoiceflow/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	subject := flag.String("subject", "", "token subject (caller identity)")
	ttl := flag.Duration("ttl", 0, "override the configured token lifetime")
	flag.Parse()

	if *subject == "" {
		return fmt.Errorf("-subject is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *ttl > 0 {
		cfg.JWT.TokenTTL = *ttl
	}

	token, expiresAt, err := service.NewTokenService(cfg.JWT).IssueToken(*subject)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}

	fmt.Println(token)
	log.Printf("token for %s expires at %s", *subject, expiresAt.Format(time.RFC3339))
	return nil
}
