package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/ticketdesk/internal/database/models"
	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionLedger persists refresh sessions. All lookups go through the token
// hash; the plaintext token never reaches the database.
type SessionLedger struct {
	db *gorm.DB
}

func NewSessionLedger(db *gorm.DB) *SessionLedger {
	return &SessionLedger{db: db}
}

// WithTx returns a ledger bound to an open transaction.
func (l *SessionLedger) WithTx(tx *gorm.DB) *SessionLedger {
	return &SessionLedger{db: tx}
}

// Create stores a new live session for userID and returns it.
func (l *SessionLedger) Create(ctx context.Context, userID uuid.UUID, tokenHash string, ttl time.Duration) (*models.Session, error) {
	now := models.Now()
	session := &models.Session{
		UserID:    userID,
		TokenHash: tokenHash,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := l.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return session, nil
}

func (l *SessionLedger) FindByHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	var session models.Session
	if err := l.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("finding session: %w", err)
	}
	return &session, nil
}

// Revoke marks a live session revoked. The update only matches rows that are
// not yet revoked, so of two concurrent callers exactly one gets true.
func (l *SessionLedger) Revoke(ctx context.Context, id uuid.UUID) (bool, error) {
	result := l.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", models.Now())
	if result.Error != nil {
		return false, fmt.Errorf("revoking session: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// RevokeByHash revokes every live session matching tokenHash and returns how
// many rows changed.
func (l *SessionLedger) RevokeByHash(ctx context.Context, tokenHash string) (int64, error) {
	result := l.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("token_hash = ? AND revoked_at IS NULL", tokenHash).
		Update("revoked_at", models.Now())
	if result.Error != nil {
		return 0, fmt.Errorf("revoking sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// PurgeDead deletes sessions that expired or were revoked before cutoff.
func (l *SessionLedger) PurgeDead(ctx context.Context, cutoff time.Time) (int64, error) {
	result := l.db.WithContext(ctx).
		Where("expires_at < ? OR revoked_at < ?", cutoff, cutoff).
		Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("purging sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
