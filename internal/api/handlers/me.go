package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hugh/ticketdesk/internal/api/dto"
	"github.com/hugh/ticketdesk/internal/api/middleware"
	"github.com/hugh/ticketdesk/internal/auth"
	"github.com/hugh/ticketdesk/internal/tenancy"
)

type MeHandler struct {
	identity auth.IdentityResolver
	tenants  *tenancy.Store
	logger   *slog.Logger
}

func NewMeHandler(identity auth.IdentityResolver, tenants *tenancy.Store, logger *slog.Logger) *MeHandler {
	return &MeHandler{identity: identity, tenants: tenants, logger: logger}
}

// Get describes the caller with the tenants it holds explicit rows in.
// Customer tenants reachable only through elevation are not listed.
func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, dto.CodeUnauthorized, "Authentication required")
		return
	}

	elevated, err := h.identity.IsElevatedAgent(r.Context(), id.ID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	memberships, err := h.tenants.ListMemberships(r.Context(), id.ID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	resp := dto.MeResponse{
		ID:           id.ID.String(),
		Email:        id.Email,
		Name:         id.Name,
		SupportAgent: id.SupportAgentFlag,
		Elevated:     elevated,
		Tenants:      make([]dto.TenantDTO, 0, len(memberships)),
	}
	for _, m := range memberships {
		if m.Tenant == nil {
			continue
		}
		resp.Tenants = append(resp.Tenants, dto.TenantDTO{
			ID:     m.Tenant.ID.String(),
			Kind:   string(m.Tenant.Kind),
			Domain: m.Tenant.Domain,
			Name:   m.Tenant.Name,
			Role:   string(m.Role),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
