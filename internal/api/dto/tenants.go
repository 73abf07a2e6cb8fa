package dto

import (
	"time"

	"github.com/hugh/ticketdesk/internal/database/models"
)

type MemberDTO struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	JoinedAt string `json:"joined_at"`
}

type MemberListResponse struct {
	Items []MemberDTO `json:"items"`
}

func MemberFromModel(m *models.Membership) MemberDTO {
	resp := MemberDTO{
		UserID:   m.UserID.String(),
		Role:     string(m.Role),
		JoinedAt: m.CreatedAt.Format(time.RFC3339Nano),
	}
	if m.User != nil {
		resp.Email = m.User.Email
		resp.Name = m.User.Name
	}
	return resp
}
