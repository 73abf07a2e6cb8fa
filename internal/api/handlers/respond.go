package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/ticketdesk/internal/api/dto"
	"github.com/hugh/ticketdesk/internal/api/validation"
	"github.com/hugh/ticketdesk/internal/auth"
	"github.com/hugh/ticketdesk/internal/pager"
	"github.com/hugh/ticketdesk/internal/tenancy"
	"github.com/hugh/ticketdesk/internal/tickets"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.NewError(code, message))
}

func writeValidation(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, dto.NewValidationError(fields))
}

// respondError maps a domain error onto the error envelope. Anything not
// recognised is logged and reported as a generic internal error.
func respondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, dto.CodeInvalidCredentials, "Invalid email or password")
	case errors.Is(err, auth.ErrUnauthorized),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		writeError(w, http.StatusUnauthorized, dto.CodeUnauthorized, "Authentication required")
	case errors.Is(err, auth.ErrUserExists):
		writeError(w, http.StatusConflict, dto.CodeConflict, "An account with this email already exists")
	case errors.Is(err, auth.ErrInvalidEmail):
		writeValidation(w, map[string]string{"email": "Email is not a valid address"})
	case errors.Is(err, auth.ErrPasswordTooLong):
		writeValidation(w, map[string]string{"password": "Password must be at most 72 bytes"})
	case errors.Is(err, tenancy.ErrNotMember):
		writeError(w, http.StatusForbidden, dto.CodeForbidden, "Not a member of this tenant")
	case errors.Is(err, tenancy.ErrInsufficientRole):
		writeError(w, http.StatusForbidden, dto.CodeForbidden, "Insufficient role for this tenant")
	case errors.Is(err, tenancy.ErrTenantNotFound):
		writeError(w, http.StatusNotFound, dto.CodeNotFound, "Tenant not found")
	case errors.Is(err, tickets.ErrNotFound):
		writeError(w, http.StatusNotFound, dto.CodeNotFound, "Ticket not found")
	case errors.Is(err, tickets.ErrTicketClosed):
		writeError(w, http.StatusConflict, dto.CodeTicketClosed, "Ticket is closed")
	case errors.Is(err, tickets.ErrInvalidStatus):
		writeValidation(w, map[string]string{"status": "Status must be one of OPEN, PENDING, RESOLVED, CLOSED"})
	case errors.Is(err, tickets.ErrInvalidPriority):
		writeValidation(w, map[string]string{"priority": "Priority must be one of LOW, NORMAL, HIGH, URGENT"})
	case errors.Is(err, tickets.ErrEmptyPatch):
		writeValidation(w, map[string]string{"status": "Status or priority is required"})
	case errors.Is(err, tickets.ErrEmptySubject):
		writeValidation(w, map[string]string{"subject": "Subject is required"})
	case errors.Is(err, tickets.ErrEmptyBody):
		writeValidation(w, map[string]string{"body": "Body is required"})
	case errors.Is(err, pager.ErrInvalidCursor):
		writeValidation(w, map[string]string{"cursor": "Cursor is invalid"})
	case errors.Is(err, pager.ErrUnknownSort):
		writeValidation(w, map[string]string{"sort": "Sort must be one of " + strings.Join(tickets.Sorts.Keys(), ", ")})
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, dto.CodeInternal, "Internal server error")
	}
}

// decodeJSON reads the request body into v, answering 400 on malformed input.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeValidation(w, map[string]string{"body": "Invalid request body"})
		return false
	}
	return true
}

// pathID parses a UUID path parameter, answering 400 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	if !validation.IsValidUUID(raw) {
		writeValidation(w, map[string]string{name: "Invalid id"})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeValidation(w, map[string]string{name: "Invalid id"})
		return uuid.Nil, false
	}
	return id, true
}
