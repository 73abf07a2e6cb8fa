package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/hugh/ticketdesk/internal/api/dto"
	"github.com/hugh/ticketdesk/internal/api/middleware"
	"github.com/hugh/ticketdesk/internal/database/models"
	"github.com/hugh/ticketdesk/internal/pager"
	"github.com/hugh/ticketdesk/internal/tickets"
)

type TicketHandler struct {
	tickets *tickets.Service
	logger  *slog.Logger
}

func NewTicketHandler(tickets *tickets.Service, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{tickets: tickets, logger: logger}
}

// List serves GET /tenants/{tenantID}/tickets.
//
// Query parameters: mine, status, sort, cursor, limit.
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := pathID(w, r, "tenantID")
	if !ok {
		return
	}

	q := r.URL.Query()
	fields := make(map[string]string)

	var mine bool
	if raw := q.Get("mine"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			fields["mine"] = "Mine must be true or false"
		}
		mine = v
	}

	limit, err := pager.ParseLimit(q.Get("limit"))
	if err != nil {
		fields["limit"] = "Limit must be a number"
	}

	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	page, err := h.tickets.List(r.Context(), tickets.ListParams{
		TenantID: tenantID,
		UserID:   middleware.GetUserID(r.Context()),
		Mine:     mine,
		Status:   models.TicketStatus(strings.ToUpper(q.Get("status"))),
		Sort:     q.Get("sort"),
		Cursor:   q.Get("cursor"),
		Limit:    limit,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	resp := dto.TicketListResponse{Items: make([]dto.TicketDTO, len(page.Items))}
	for i := range page.Items {
		resp.Items[i] = dto.TicketFromModel(&page.Items[i])
	}
	if page.NextCursor != "" {
		resp.NextCursor = &page.NextCursor
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := pathID(w, r, "tenantID")
	if !ok {
		return
	}

	var req dto.CreateTicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Sanitize()

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	ticket, err := h.tickets.Create(r.Context(), tickets.CreateInput{
		TenantID: tenantID,
		UserID:   middleware.GetUserID(r.Context()),
		Subject:  req.Subject,
		Body:     req.Body,
		Priority: models.TicketPriority(req.Priority),
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TicketFromModel(ticket))
}

func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	ticketID, ok := pathID(w, r, "ticketID")
	if !ok {
		return
	}

	ticket, err := h.tickets.Get(r.Context(), ticketID, middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TicketFromModel(ticket))
}

func (h *TicketHandler) Reply(w http.ResponseWriter, r *http.Request) {
	ticketID, ok := pathID(w, r, "ticketID")
	if !ok {
		return
	}

	var req dto.ReplyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Sanitize()

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	msg, err := h.tickets.Reply(r.Context(), ticketID, middleware.GetUserID(r.Context()), req.Body)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.MessageFromModel(msg))
}

func (h *TicketHandler) Patch(w http.ResponseWriter, r *http.Request) {
	ticketID, ok := pathID(w, r, "ticketID")
	if !ok {
		return
	}

	var req dto.PatchTicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	var input tickets.PatchInput
	if req.Status != nil {
		status := models.TicketStatus(*req.Status)
		input.Status = &status
	}
	if req.Priority != nil {
		priority := models.TicketPriority(*req.Priority)
		input.Priority = &priority
	}

	ticket, err := h.tickets.Patch(r.Context(), ticketID, middleware.GetUserID(r.Context()), input)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TicketFromModel(ticket))
}
