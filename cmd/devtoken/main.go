// Command devtoken mints a bearer token for local testing against the API.
//
//	go run ./cmd/devtoken -email admin@toothdoctor.com
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	appconfig "github.com/wolfman30/toothdoctor-api/internal/config"
	"github.com/wolfman30/toothdoctor-api/internal/identity"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	email := flag.String("email", "", "email of the user to authenticate as")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if *email == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := appconfig.Load()
	if cfg.AuthJWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}

	token, err := identity.IssueToken(cfg.AuthJWTSecret, *email, *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
}
