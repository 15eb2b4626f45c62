// Command tokengen issues a bearer token for the trip finance API.
//
//	tokengen -id u-42 -name "Jane Doe" -role admin
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/subosito/gotenv"

	"github.com/garyjia/trip-finance/internal/config"
	"github.com/garyjia/trip-finance/internal/domain/entity"
	"github.com/garyjia/trip-finance/internal/infrastructure/identity"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	id := flag.String("id", "", "user id (required)")
	name := flag.String("name", "", "display name")
	role := flag.String("role", entity.RoleOperator, "admin, manager or operator")
	ttl := flag.Duration("ttl", 0, "token lifetime; defaults to auth.token_ttl")
	flag.Parse()

	if *id == "" {
		fmt.Fprintln(os.Stderr, "-id is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := gotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	lifetime := cfg.Auth.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	tokens := identity.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, lifetime)
	token, err := tokens.Issue(entity.Actor{ID: *id, Name: *name, Role: *role})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", time.Now().Add(lifetime).Format(time.RFC3339))
}
