package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hugh/ticketdesk/internal/database/models"
	"github.com/hugh/ticketdesk/internal/tenancy"
	"gorm.io/gorm"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email address")

	// ErrUnauthorized covers every refresh failure and missing identities.
	// Callers must not be able to tell the underlying cause apart.
	ErrUnauthorized = errors.New("unauthorized")
)

// DefaultRefreshTTL is the lifetime of a refresh session.
const DefaultRefreshTTL = 7 * 24 * time.Hour

type ServiceConfig struct {
	RefreshTTL time.Duration
	// AgentDomains are email domains whose signups become elevated agents.
	AgentDomains []string
}

type Service struct {
	db         *gorm.DB
	codec      *TokenCodec
	sessions   *SessionLedger
	tenants    *tenancy.Store
	logger     *slog.Logger
	refreshTTL time.Duration
	agents     map[string]struct{}
}

func NewService(db *gorm.DB, codec *TokenCodec, logger *slog.Logger, cfg ServiceConfig) *Service {
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	agents := make(map[string]struct{}, len(cfg.AgentDomains))
	for _, d := range cfg.AgentDomains {
		agents[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return &Service{
		db:         db,
		codec:      codec,
		sessions:   NewSessionLedger(db),
		tenants:    tenancy.NewStore(db),
		logger:     logger,
		refreshTTL: cfg.RefreshTTL,
		agents:     agents,
	}
}

type SignupInput struct {
	Email    string
	Password string
	Name     string
}

type LoginInput struct {
	Email    string
	Password string
}

// AuthResult carries the authentication state a handler sets on the response.
type AuthResult struct {
	User             *models.User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Signup creates the user, its customer tenant membership, the operations
// membership for allow-listed domains and a first session in one transaction.
func (s *Service) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	domain, ok := EmailDomain(email)
	if !ok {
		return nil, ErrInvalidEmail
	}

	hash, err := HashPassword(input.Password)
	if errors.Is(err, ErrPasswordTooLong) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	_, isAgent := s.agents[domain]

	var result *AuthResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUserExists
		}

		user := models.User{
			Email:          email,
			PasswordHash:   hash,
			Name:           strings.TrimSpace(input.Name),
			IsSupportAgent: isAgent,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		tenants := s.tenants.WithTx(tx)
		customer, err := tenants.EnsureCustomerTenant(ctx, domain)
		if err != nil {
			return err
		}
		if err := tenants.Grant(ctx, customer.ID, user.ID, models.RoleMember); err != nil {
			return err
		}

		if isAgent {
			ops, err := tenants.EnsureOperationsTenant(ctx)
			if err != nil {
				return err
			}
			if err := tenants.Grant(ctx, ops.ID, user.ID, models.RoleAdmin); err != nil {
				return err
			}
		}

		result, err = s.startSession(ctx, s.sessions.WithTx(tx), &user)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrUserExists) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("signup: %w", err)
	}

	s.logger.Info("user signed up", "user_id", result.User.ID, "domain", domain, "support_agent", isAgent)
	return result, nil
}

// Login verifies credentials and opens a new session. Existing sessions are
// left alone.
func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(input.Email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			CheckPassword(input.Password, string(dummyHash))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, s.sessions, &user)
}

// Refresh exchanges a live refresh token for a new token pair. The presented
// session is revoked and a successor created in the same transaction; every
// failure, including reuse of a rotated token, is ErrUnauthorized.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrUnauthorized
	}
	hash := HashRefreshToken(refreshToken)

	var result *AuthResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger := s.sessions.WithTx(tx)

		current, err := ledger.FindByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				return ErrUnauthorized
			}
			return err
		}
		if !current.Live(time.Now()) {
			return ErrUnauthorized
		}

		won, err := ledger.Revoke(ctx, current.ID)
		if err != nil {
			return err
		}
		if !won {
			// A concurrent refresh already rotated this session.
			return ErrUnauthorized
		}

		var user models.User
		if err := tx.First(&user, "id = ?", current.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnauthorized
			}
			return err
		}

		result, err = s.startSession(ctx, ledger, &user)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return result, nil
}

// Logout revokes every session matching the token. It succeeds when nothing
// matches so callers can always clear their cookies.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	n, err := s.sessions.RevokeByHash(ctx, HashRefreshToken(refreshToken))
	if err != nil {
		return err
	}
	if n > 1 {
		s.logger.Warn("logout revoked more than one session for a token hash", "count", n)
	}
	return nil
}

func (s *Service) startSession(ctx context.Context, ledger *SessionLedger, user *models.User) (*AuthResult, error) {
	refreshToken, err := GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	session, err := ledger.Create(ctx, user.ID, HashRefreshToken(refreshToken), s.refreshTTL)
	if err != nil {
		return nil, err
	}
	accessToken, accessExpiresAt, err := s.codec.IssueAccessToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		User:             user,
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: session.ExpiresAt,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailDomain returns the lower-cased domain part of an address.
func EmailDomain(email string) (string, bool) {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", false
	}
	return strings.ToLower(email[at+1:]), true
}
