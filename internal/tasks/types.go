package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeSessionPurge = "session:purge"
)

// Queue names
const (
	QueueMaintenance = "maintenance"
)

// SessionPurgePayload overrides the configured retention when RetentionDays
// is positive.
type SessionPurgePayload struct {
	RetentionDays int `json:"retention_days,omitempty"`
}

func NewSessionPurgeTask(payload SessionPurgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSessionPurge, data, asynq.Queue(QueueMaintenance), asynq.MaxRetry(3)), nil
}
