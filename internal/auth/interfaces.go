package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/ticketdesk/internal/tenancy"
)

// Authenticator defines the credential and session lifecycle operations.
type Authenticator interface {
	Signup(ctx context.Context, input SignupInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
}

// IdentityResolver authenticates access tokens.
type IdentityResolver interface {
	ResolveUser(ctx context.Context, accessToken string) (*Identity, error)
	IsElevatedAgent(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator            = (*Service)(nil)
	_ IdentityResolver         = (*Resolver)(nil)
	_ tenancy.ElevationChecker = (*Resolver)(nil)
)
