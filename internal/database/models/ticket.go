package models

import "github.com/google/uuid"

type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "OPEN"
	TicketStatusPending  TicketStatus = "PENDING"
	TicketStatusResolved TicketStatus = "RESOLVED"
	TicketStatusClosed   TicketStatus = "CLOSED" // replies restricted to admins
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusPending, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityNormal TicketPriority = "NORMAL"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

type Ticket struct {
	Base
	TenantID  uuid.UUID      `gorm:"type:uuid;index;not null" json:"tenant_id"`
	CreatedBy uuid.UUID      `gorm:"type:uuid;index;not null" json:"created_by"`
	Subject   string         `gorm:"not null" json:"subject"`
	Status    TicketStatus   `gorm:"not null;index;default:'OPEN'" json:"status"`
	Priority  TicketPriority `gorm:"not null;default:'NORMAL'" json:"priority"`

	// Relationships
	Tenant   *Tenant         `gorm:"foreignKey:TenantID" json:"-"`
	Messages []TicketMessage `gorm:"foreignKey:TicketID" json:"messages,omitempty"`
}

func (Ticket) TableName() string {
	return "tickets"
}

type TicketMessage struct {
	Base
	TicketID uuid.UUID `gorm:"type:uuid;index;not null" json:"ticket_id"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null" json:"author_id"`
	Body     string    `gorm:"type:text;not null" json:"body"`
}

func (TicketMessage) TableName() string {
	return "ticket_messages"
}
