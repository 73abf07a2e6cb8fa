package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hugh/ticketdesk/pkg/util"
	"github.com/spf13/viper"
)

// MinSecretLength is the minimum accepted JWT signing secret length in bytes.
const MinSecretLength = 16

var (
	ErrMissingSecret = errors.New("JWT_SECRET is not set")
	ErrWeakSecret    = fmt.Errorf("JWT_SECRET must be at least %d bytes", MinSecretLength)
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Sessions  SessionConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
	// TrustProxy honours forwarding headers for client addresses. Enable only
	// behind a proxy that overwrites them.
	TrustProxy bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type JWTConfig struct {
	Secret           string
	AccessTTLMinutes int
}

type AuthConfig struct {
	FrontendOrigin string
	AgentDomains   []string
	RefreshTTLDays int
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

type SessionConfig struct {
	PurgeCron     string
	RetentionDays int
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// URL returns the connection string in URL form, as golang-migrate expects it.
func (d *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) AccessTTL() time.Duration {
	return time.Duration(j.AccessTTLMinutes) * time.Minute
}

func (a *AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTTLDays) * 24 * time.Hour
}

func (s *SessionConfig) Retention() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func (s *ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

// Validate reports configuration that must stop the process from starting.
func (c *Config) Validate() error {
	switch {
	case c.JWT.Secret == "":
		return ErrMissingSecret
	case len(c.JWT.Secret) < MinSecretLength:
		return ErrWeakSecret
	}
	if c.JWT.AccessTTLMinutes < 10 || c.JWT.AccessTTLMinutes > 15 {
		return fmt.Errorf("JWT_ACCESS_TTL_MINUTES must be between 10 and 15, got %d", c.JWT.AccessTTLMinutes)
	}
	if c.Auth.RefreshTTLDays <= 0 {
		return fmt.Errorf("REFRESH_TTL_DAYS must be positive, got %d", c.Auth.RefreshTTLDays)
	}
	if c.Auth.FrontendOrigin == "" {
		return errors.New("AUTH_FRONTEND_ORIGIN is not set")
	}
	if err := util.ValidateCronExpr(c.Sessions.PurgeCron); err != nil {
		return fmt.Errorf("SESSION_PURGE_CRON: %w", err)
	}
	return nil
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("SERVER_TRUST_PROXY", false)
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "ticketdesk")
	v.SetDefault("DATABASE_PASSWORD", "ticketdesk_secret")
	v.SetDefault("DATABASE_NAME", "ticketdesk")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_ACCESS_TTL_MINUTES", 15)
	v.SetDefault("REFRESH_TTL_DAYS", 7)
	v.SetDefault("AUTH_FRONTEND_ORIGIN", "http://localhost:3000")
	v.SetDefault("AUTH_AGENT_DOMAINS", "")
	v.SetDefault("RATE_LIMIT_REQUESTS", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("SESSION_PURGE_CRON", "0 * * * *")
	v.SetDefault("SESSION_RETENTION_DAYS", 30)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
			Env:  v.GetString("SERVER_ENV"),

			TrustProxy: v.GetBool("SERVER_TRUST_PROXY"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:           v.GetString("JWT_SECRET"),
			AccessTTLMinutes: v.GetInt("JWT_ACCESS_TTL_MINUTES"),
		},
		Auth: AuthConfig{
			FrontendOrigin: strings.TrimRight(v.GetString("AUTH_FRONTEND_ORIGIN"), "/"),
			AgentDomains:   splitList(v.GetString("AUTH_AGENT_DOMAINS")),
			RefreshTTLDays: v.GetInt("REFRESH_TTL_DAYS"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Sessions: SessionConfig{
			PurgeCron:     v.GetString("SESSION_PURGE_CRON"),
			RetentionDays: v.GetInt("SESSION_RETENTION_DAYS"),
		},
	}

	return cfg, nil
}

// splitList parses a comma separated env value, lower-casing and dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
