package dto

import (
	"strings"

	"github.com/hugh/ticketdesk/internal/api/validation"
)

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

func (r *SignupRequest) Sanitize() {
	r.Name = validation.SanitizeString(r.Name)
}

func (r SignupRequest) Validate() map[string]string {
	errors := make(map[string]string)

	email := strings.TrimSpace(r.Email)
	if email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(email) {
		errors["email"] = "Email is not a valid address"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if ok, msg := validation.IsValidPassword(r.Password); !ok {
		errors["password"] = msg
	}
	if validation.TooLong(r.Name, validation.MaxNameLength) {
		errors["name"] = "Name is too long"
	}

	return errors
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Email) == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

// RefreshRequest lets non-browser clients send the refresh token in the body
// instead of the cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type AuthResponse struct {
	UserID string `json:"user_id"`
}

type TenantDTO struct {
	ID     string  `json:"id"`
	Kind   string  `json:"kind"`
	Domain *string `json:"domain,omitempty"`
	Name   string  `json:"name"`
	Role   string  `json:"role"`
}

type MeResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	// SupportAgent is the advisory flag, for display only.
	SupportAgent bool        `json:"support_agent"`
	Elevated     bool        `json:"elevated"`
	Tenants      []TenantDTO `json:"tenants"`
}
