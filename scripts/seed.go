//go:build ignore

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/hugh/ticketdesk/internal/auth"
	"github.com/hugh/ticketdesk/internal/database"
	"github.com/hugh/ticketdesk/pkg/config"
	"github.com/hugh/ticketdesk/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(cfg.Database.URL(), "up"); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	codec, err := auth.NewTokenCodec(cfg.JWT.Secret, cfg.JWT.AccessTTL())
	if err != nil {
		log.Fatalf("failed to create token codec: %v", err)
	}

	email := os.Getenv("AGENT_EMAIL")
	password := os.Getenv("AGENT_PASSWORD")
	name := os.Getenv("AGENT_NAME")

	if email == "" {
		email = "agent@support.example.com"
	}
	if password == "" {
		password = "agent12345"
	}
	if name == "" {
		name = "Support Agent"
	}

	domain, ok := auth.EmailDomain(email)
	if !ok {
		log.Fatalf("invalid AGENT_EMAIL: %s", email)
	}

	// The seed agent's domain is always allow-listed so the account lands in
	// the operations tenant.
	authService := auth.NewService(db, codec, logger, auth.ServiceConfig{
		RefreshTTL:   cfg.Auth.RefreshTTL(),
		AgentDomains: append(cfg.Auth.AgentDomains, domain),
	})

	res, err := authService.Signup(context.Background(), auth.SignupInput{
		Email:    email,
		Password: password,
		Name:     name,
	})
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			fmt.Printf("Agent already exists: %s\n", email)
			return
		}
		log.Fatalf("failed to create agent: %v", err)
	}

	fmt.Printf("Support agent created successfully!\n")
	fmt.Printf("Email: %s\n", res.User.Email)
	fmt.Printf("Access token: %s\n", res.AccessToken)
}
