package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/ticketdesk/internal/api/dto"
	"github.com/hugh/ticketdesk/internal/database/models"
	"github.com/hugh/ticketdesk/internal/tenancy"
)

// RequireTenantRole gates a {tenantID} route on a minimum role and stores the
// resolved membership in the context. It must run after Authenticate.
func RequireTenantRole(guard *tenancy.Guard, required models.Role, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
			if err != nil {
				writeError(w, http.StatusNotFound, dto.CodeNotFound, "Tenant not found")
				return
			}

			m, err := guard.Require(r.Context(), tenantID, GetUserID(r.Context()), required)
			if err != nil {
				switch {
				case errors.Is(err, tenancy.ErrTenantNotFound):
					writeError(w, http.StatusNotFound, dto.CodeNotFound, "Tenant not found")
				case errors.Is(err, tenancy.ErrNotMember):
					writeError(w, http.StatusForbidden, dto.CodeForbidden, "Not a member of this tenant")
				case errors.Is(err, tenancy.ErrInsufficientRole):
					writeError(w, http.StatusForbidden, dto.CodeForbidden, "Insufficient role for this tenant")
				default:
					logger.Error("resolving membership", "error", err, "tenant_id", tenantID)
					writeError(w, http.StatusInternalServerError, dto.CodeInternal, "Internal server error")
				}
				return
			}

			ctx := context.WithValue(r.Context(), MembershipKey, m)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetMembership(ctx context.Context) *tenancy.Membership {
	if m, ok := ctx.Value(MembershipKey).(*tenancy.Membership); ok {
		return m
	}
	return nil
}
