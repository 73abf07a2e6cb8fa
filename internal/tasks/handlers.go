package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/ticketdesk/internal/auth"
	"github.com/hugh/ticketdesk/internal/database/models"
	"gorm.io/gorm"
)

type Handler struct {
	logger    *slog.Logger
	sessions  *auth.SessionLedger
	retention time.Duration
}

// NewHandler builds the task handlers. retention is how long dead sessions
// are kept before the purge removes them.
func NewHandler(db *gorm.DB, logger *slog.Logger, retention time.Duration) *Handler {
	return &Handler{
		logger:    logger,
		sessions:  auth.NewSessionLedger(db),
		retention: retention,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeSessionPurge, h.HandleSessionPurge)
}

// HandleSessionPurge deletes sessions that expired or were revoked before the
// retention window.
func (h *Handler) HandleSessionPurge(ctx context.Context, t *asynq.Task) error {
	var payload SessionPurgePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
	}

	retention := h.retention
	if payload.RetentionDays > 0 {
		retention = time.Duration(payload.RetentionDays) * 24 * time.Hour
	}
	cutoff := models.Now().Add(-retention)

	start := time.Now()
	purged, err := h.sessions.PurgeDead(ctx, cutoff)
	if err != nil {
		h.logger.Error("session purge failed", "error", err)
		return err
	}

	h.logger.Info("session purge completed",
		"purged", purged,
		"cutoff", cutoff,
		"duration", time.Since(start),
	)
	return nil
}
