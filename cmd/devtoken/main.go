// Command devtoken prints a signed access token for local testing.
//
//	go run ./cmd/devtoken -sub demo-rider -ttl 2h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"medride/internal/auth"
	"medride/internal/config"
)

func main() {
	subject := flag.String("sub", "demo-patient", "profile id to put in the token subject")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	token, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer).Issue(*subject, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
