package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hugh/ticketdesk/internal/api/dto"
	"github.com/hugh/ticketdesk/internal/api/middleware"
	"github.com/hugh/ticketdesk/internal/tenancy"
)

type TenantHandler struct {
	tenants *tenancy.Store
	logger  *slog.Logger
}

func NewTenantHandler(tenants *tenancy.Store, logger *slog.Logger) *TenantHandler {
	return &TenantHandler{tenants: tenants, logger: logger}
}

// Members lists the explicit members of a tenant. The route is gated on
// ADMIN by middleware.RequireTenantRole.
func (h *TenantHandler) Members(w http.ResponseWriter, r *http.Request) {
	m := middleware.GetMembership(r.Context())
	if m == nil {
		h.logger.Error("members route reached without a resolved membership")
		writeError(w, http.StatusInternalServerError, dto.CodeInternal, "Internal server error")
		return
	}

	members, err := h.tenants.ListTenantMembers(r.Context(), m.TenantID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	resp := dto.MemberListResponse{Items: make([]dto.MemberDTO, len(members))}
	for i := range members {
		resp.Items[i] = dto.MemberFromModel(&members[i])
	}
	writeJSON(w, http.StatusOK, resp)
}
