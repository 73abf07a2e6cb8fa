package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hugh/ticketdesk/internal/database/models"
	"github.com/hugh/ticketdesk/internal/tenancy"
	"gorm.io/gorm"
)

// Identity is the authenticated caller.
type Identity struct {
	ID    uuid.UUID
	Email string
	Name  string
	// SupportAgentFlag mirrors the advisory user flag. Display only.
	SupportAgentFlag bool
}

// Resolver turns access tokens into identities and answers elevated-agent
// questions. It keeps no per-user state between calls.
type Resolver struct {
	db      *gorm.DB
	codec   *TokenCodec
	tenants *tenancy.Store
}

func NewResolver(db *gorm.DB, codec *TokenCodec) *Resolver {
	return &Resolver{db: db, codec: codec, tenants: tenancy.NewStore(db)}
}

// ResolveUser verifies the token and loads its user. Tokens of deleted users
// stay verifiable until they expire but resolve to ErrUnauthorized.
func (r *Resolver) ResolveUser(ctx context.Context, accessToken string) (*Identity, error) {
	userID, err := r.codec.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, ErrUnauthorized
	}

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}

	return &Identity{
		ID:               user.ID,
		Email:            user.Email,
		Name:             user.Name,
		SupportAgentFlag: user.IsSupportAgent,
	}, nil
}

// IsElevatedAgent is true iff the user is ADMIN of the operations tenant.
// User.IsSupportAgent is deliberately not consulted.
func (r *Resolver) IsElevatedAgent(ctx context.Context, userID uuid.UUID) (bool, error) {
	return r.tenants.HasOperationsAdmin(ctx, userID)
}
