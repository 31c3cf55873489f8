// Command token mints a bearer token for the CodeCraft gateway.
package main

import (
	"flag"
	"fmt"
	"os"

	"codecraft-ai/internal/config"
	"codecraft-ai/internal/infra/web"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	userID := flag.String("user", "", "user id (the token subject)")
	name := flag.String("name", "", "display name")
	ttl := flag.Duration("ttl", 0, "token lifetime; defaults to auth.token_ttl")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: token -user <user_id> [-name <name>] [-ttl 24h]")
		os.Exit(2)
	}
	cfg, err := config.LoadConfig(*cfgPath, config.RoleTool, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	lifetime := cfg.Auth.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}
	tok, err := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, lifetime).Mint(*userID, *name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mint: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
