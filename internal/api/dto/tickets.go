package dto

import (
	"strings"
	"time"

	"github.com/hugh/ticketdesk/internal/api/validation"
	"github.com/hugh/ticketdesk/internal/database/models"
)

type CreateTicketRequest struct {
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Priority string `json:"priority,omitempty"`
}

// Sanitize strips control characters other than line breaks and tabs.
func (r *CreateTicketRequest) Sanitize() {
	r.Subject = validation.SanitizeString(r.Subject)
	r.Body = validation.SanitizeString(r.Body)
}

func (r CreateTicketRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Subject) == "" {
		errors["subject"] = "Subject is required"
	} else if validation.TooLong(r.Subject, validation.MaxSubjectLength) {
		errors["subject"] = "Subject is too long"
	}
	if strings.TrimSpace(r.Body) == "" {
		errors["body"] = "Body is required"
	} else if validation.TooLong(r.Body, validation.MaxBodyLength) {
		errors["body"] = "Body is too long"
	}
	if r.Priority != "" && !models.TicketPriority(r.Priority).Valid() {
		errors["priority"] = "Priority must be one of LOW, NORMAL, HIGH, URGENT"
	}

	return errors
}

type ReplyRequest struct {
	Body string `json:"body"`
}

func (r *ReplyRequest) Sanitize() {
	r.Body = validation.SanitizeString(r.Body)
}

func (r ReplyRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Body) == "" {
		errors["body"] = "Body is required"
	} else if validation.TooLong(r.Body, validation.MaxBodyLength) {
		errors["body"] = "Body is too long"
	}

	return errors
}

type PatchTicketRequest struct {
	Status   *string `json:"status,omitempty"`
	Priority *string `json:"priority,omitempty"`
}

func (r PatchTicketRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Status == nil && r.Priority == nil {
		errors["status"] = "Status or priority is required"
	}
	if r.Status != nil && !models.TicketStatus(*r.Status).Valid() {
		errors["status"] = "Status must be one of OPEN, PENDING, RESOLVED, CLOSED"
	}
	if r.Priority != nil && !models.TicketPriority(*r.Priority).Valid() {
		errors["priority"] = "Priority must be one of LOW, NORMAL, HIGH, URGENT"
	}

	return errors
}

type MessageDTO struct {
	ID        string `json:"id"`
	AuthorID  string `json:"author_id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

type TicketDTO struct {
	ID        string       `json:"id"`
	TenantID  string       `json:"tenant_id"`
	CreatedBy string       `json:"created_by"`
	Subject   string       `json:"subject"`
	Status    string       `json:"status"`
	Priority  string       `json:"priority"`
	CreatedAt string       `json:"created_at"`
	UpdatedAt string       `json:"updated_at"`
	Messages  []MessageDTO `json:"messages,omitempty"`
}

// TicketListResponse carries one page. NextCursor is null on the last page
// and for orderings that cannot be paged further.
type TicketListResponse struct {
	Items      []TicketDTO `json:"items"`
	NextCursor *string     `json:"next_cursor"`
}

func MessageFromModel(m *models.TicketMessage) MessageDTO {
	return MessageDTO{
		ID:        m.ID.String(),
		AuthorID:  m.AuthorID.String(),
		Body:      m.Body,
		CreatedAt: m.CreatedAt.Format(time.RFC3339Nano),
	}
}

func TicketFromModel(t *models.Ticket) TicketDTO {
	resp := TicketDTO{
		ID:        t.ID.String(),
		TenantID:  t.TenantID.String(),
		CreatedBy: t.CreatedBy.String(),
		Subject:   t.Subject,
		Status:    string(t.Status),
		Priority:  string(t.Priority),
		CreatedAt: t.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt: t.UpdatedAt.Format(time.RFC3339Nano),
	}
	if len(t.Messages) > 0 {
		resp.Messages = make([]MessageDTO, len(t.Messages))
		for i := range t.Messages {
			resp.Messages[i] = MessageFromModel(&t.Messages[i])
		}
	}
	return resp
}
