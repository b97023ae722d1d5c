// Command issue-token prints an api key signed with JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"svg-converter/internal/auth"
	"svg-converter/internal/logger"
)

func main() {
	slog.SetDefault(slog.New(logger.NewPrettyHandler(os.Stderr, nil)))
	_ = godotenv.Load()

	role := flag.String("role", "admin", "role claim embedded in the key")
	ttl := flag.Duration("ttl", 0, "key lifetime, e.g. 720h; 0 never expires")
	flag.Parse()

	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	issuer, err := auth.NewIssuer(secret)
	if err != nil {
		slog.Error("JWT_SECRET must be set to sign a key", "error", err)
		os.Exit(1)
	}

	token, err := issuer.Sign(*role, *ttl)
	if err != nil {
		slog.Error("failed to sign api key", "error", err)
		os.Exit(1)
	}

	if *ttl > 0 {
		slog.Info("api key issued", "role", *role, "expires", time.Now().Add(*ttl).Format(time.RFC3339))
	} else {
		slog.Info("api key issued", "role", *role, "expires", "never")
	}
	fmt.Println(token)
}
