// Command devtoken mints a player access token signed with JWT_SECRET, for
// driving the API by hand during local development.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iamasit07/connect4-engine/internal/config"
	"github.com/iamasit07/connect4-engine/pkg/auth"
	"github.com/joho/godotenv"
)

// Only the signing settings; the full server config also insists on a store.
type tokenConfig struct {
	JWTSecret      string        `env:"JWT_SECRET" envDefault:"your-secret-key-change-this-in-production"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"24h"`
}

func main() {
	player := flag.String("player", "", "player identity to put in the token subject")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to ACCESS_TOKEN_TTL)")
	flag.Parse()

	if *player == "" {
		fmt.Fprintln(os.Stderr, "usage: devtoken -player <id> [-ttl 24h]")
		os.Exit(2)
	}

	_ = godotenv.Load()
	var cfg tokenConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.JWTSecret == config.PlaceholderJWTSecret {
		log.Println("Warning: signing with the placeholder JWT_SECRET; the server will not accept this token")
	}
	if *ttl <= 0 {
		*ttl = cfg.AccessTokenTTL
	}

	token, err := auth.GenerateAccessToken(cfg.JWTSecret, *player, *ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
