package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tiny dev-only token minter for exercising the API with AUTH_MODE=jwt.
// It signs an HS256 token for a subject using the same JWT_SECRET the API
// verifies with.
func main() {
	sub := flag.String("sub", "dev|local", "subject to embed in the token")
	ttl := flag.Duration("ttl", 30*time.Minute, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": *sub,
		"iat": now.Unix(),
		"exp": now.Add(*ttl).Unix(),
	})
	raw, err := tok.SignedString([]byte(secret))
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(raw)
}
