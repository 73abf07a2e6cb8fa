package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/ticketdesk/internal/database/models"
	"github.com/hugh/ticketdesk/internal/pager"
	"github.com/hugh/ticketdesk/internal/tenancy"
	"gorm.io/gorm"
)

var (
	ErrInvalidStatus   = errors.New("invalid ticket status")
	ErrInvalidPriority = errors.New("invalid ticket priority")
	ErrEmptyPatch      = errors.New("patch must set status or priority")
	ErrEmptySubject    = errors.New("subject is required")
	ErrEmptyBody       = errors.New("message body is required")
)

const priorityRank = "CASE priority WHEN 'URGENT' THEN 3 WHEN 'HIGH' THEN 2 WHEN 'NORMAL' THEN 1 ELSE 0 END"

// Sorts are the orderings accepted by List. Only creation time can be walked
// with a cursor; the label orderings serve a first page.
var Sorts = pager.NewRegistry(
	pager.TimeField("newest", "created_at", true),
	pager.TimeField("oldest", "created_at", false),
	pager.LabelField("priority", priorityRank, true),
	pager.LabelField("status", "status", false),
)

type Service struct {
	db        *gorm.DB
	guard     *AccessGuard
	members   tenancy.MembershipResolver
	elevation tenancy.ElevationChecker
	logger    *slog.Logger
}

// NewService wires the ticket service. Tenant-level checks honour elevated
// agents; ticket-level checks use explicit rows plus the caller's elevation.
func NewService(db *gorm.DB, elevation tenancy.ElevationChecker, logger *slog.Logger) *Service {
	store := tenancy.NewStore(db)
	explicit := tenancy.NewStoreResolver(store)
	return &Service{
		db:        db,
		guard:     NewAccessGuard(db, explicit),
		members:   tenancy.NewElevatedResolver(store, elevation, explicit),
		elevation: elevation,
		logger:    logger,
	}
}

type ListParams struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Mine     bool
	Status   models.TicketStatus
	Sort     string
	Cursor   string
	Limit    int
}

type Page struct {
	Items      []models.Ticket
	NextCursor string
	// Mine reports whether the listing was restricted to the caller's tickets.
	Mine bool
}

// List returns one page of a tenant's tickets. Callers below ADMIN only ever
// see their own tickets, whatever they asked for.
func (s *Service) List(ctx context.Context, params ListParams) (*Page, error) {
	m, err := s.members.ResolveMembership(ctx, params.TenantID, params.UserID)
	if err != nil {
		return nil, err
	}

	if params.Status != "" && !params.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	window, err := pager.NewWindow(Sorts, params.Sort, params.Cursor, params.Limit)
	if err != nil {
		return nil, err
	}

	mine := params.Mine || !tenancy.AtLeast(m.Role, models.RoleAdmin)

	query := s.db.WithContext(ctx).Model(&models.Ticket{}).Where("tenant_id = ?", params.TenantID)
	if mine {
		query = query.Where("created_by = ?", params.UserID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var rows []models.Ticket
	if err := window.Apply(query).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}

	rows, more := pager.Trim(rows, window.Limit)
	page := &Page{Items: rows, Mine: mine}
	if more {
		last := rows[len(rows)-1]
		next, err := window.Next(sortValue(window.Field, &last), last.ID)
		if err != nil {
			return nil, fmt.Errorf("encoding cursor: %w", err)
		}
		page.NextCursor = next
	}
	return page, nil
}

// sortValue is the cursor value of t under field. Label fields never emit a
// cursor, so only cursor-capable columns need a case.
func sortValue(field pager.SortField, t *models.Ticket) interface{} {
	if field.Column == "created_at" {
		return t.CreatedAt
	}
	return nil
}

// Get returns a ticket with its messages in posting order.
func (s *Service) Get(ctx context.Context, ticketID, userID uuid.UUID) (*models.Ticket, error) {
	grant, err := s.access(ctx, ticketID, userID)
	if err != nil {
		return nil, err
	}

	ticket := grant.Ticket
	if err := s.db.WithContext(ctx).
		Where("ticket_id = ?", ticket.ID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&ticket.Messages).Error; err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}
	return ticket, nil
}

type CreateInput struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Subject  string
	Body     string
	Priority models.TicketPriority
}

// Create opens a ticket with its first message. Both rows are written in one
// transaction.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, ErrEmptySubject
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	priority := input.Priority
	if priority == "" {
		priority = models.TicketPriorityNormal
	}
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}

	if _, err := s.members.ResolveMembership(ctx, input.TenantID, input.UserID); err != nil {
		return nil, err
	}

	ticket := &models.Ticket{
		TenantID:  input.TenantID,
		CreatedBy: input.UserID,
		Subject:   subject,
		Status:    models.TicketStatusOpen,
		Priority:  priority,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ticket).Error; err != nil {
			return err
		}
		msg := models.TicketMessage{
			TicketID: ticket.ID,
			AuthorID: input.UserID,
			Body:     body,
		}
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		ticket.Messages = []models.TicketMessage{msg}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating ticket: %w", err)
	}

	s.logger.Info("ticket created", "ticket_id", ticket.ID, "tenant_id", ticket.TenantID, "user_id", input.UserID)
	return ticket, nil
}

// Reply appends a message. Non-privileged callers cannot reply to closed
// tickets.
func (s *Service) Reply(ctx context.Context, ticketID, userID uuid.UUID, body string) (*models.TicketMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}

	elevated, err := s.elevation.IsElevatedAgent(ctx, userID)
	if err != nil {
		return nil, err
	}
	grant, err := s.guard.CanReply(ctx, ticketID, userID, elevated)
	if err != nil {
		return nil, err
	}

	msg := &models.TicketMessage{
		TicketID: grant.Ticket.ID,
		AuthorID: userID,
		Body:     body,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(grant.Ticket).Update("updated_at", models.Now()).Error
	})
	if err != nil {
		return nil, fmt.Errorf("adding reply: %w", err)
	}
	return msg, nil
}

type PatchInput struct {
	Status   *models.TicketStatus
	Priority *models.TicketPriority
}

// Patch updates status and priority. Only tenant admins and elevated agents
// may patch; anyone else gets ErrNotFound.
func (s *Service) Patch(ctx context.Context, ticketID, userID uuid.UUID, input PatchInput) (*models.Ticket, error) {
	updates := map[string]interface{}{}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		updates["status"] = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, ErrInvalidPriority
		}
		updates["priority"] = *input.Priority
	}
	if len(updates) == 0 {
		return nil, ErrEmptyPatch
	}

	grant, err := s.access(ctx, ticketID, userID)
	if err != nil {
		return nil, err
	}
	if !grant.Privileged() {
		return nil, ErrNotFound
	}

	ticket := grant.Ticket
	if err := s.db.WithContext(ctx).Model(ticket).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("updating ticket: %w", err)
	}

	s.logger.Info("ticket updated", "ticket_id", ticket.ID, "user_id", userID, "elevated", grant.Elevated)
	return ticket, nil
}

func (s *Service) access(ctx context.Context, ticketID, userID uuid.UUID) (*Grant, error) {
	elevated, err := s.elevation.IsElevatedAgent(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.guard.CanAccessTicket(ctx, ticketID, userID, elevated)
}
