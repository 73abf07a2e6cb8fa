package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hugh/ticketdesk/internal/api/dto"
	"github.com/hugh/ticketdesk/internal/api/middleware"
	"github.com/hugh/ticketdesk/internal/auth"
)

// refreshCookiePath scopes the refresh cookie to the auth routes.
const refreshCookiePath = "/api/v1/auth"

type AuthHandler struct {
	authService  auth.Authenticator
	logger       *slog.Logger
	secureCookie bool
}

// NewAuthHandler builds the auth endpoints. secureCookie marks both cookies
// Secure and should be set whenever the API is served over HTTPS.
func NewAuthHandler(authService auth.Authenticator, logger *slog.Logger, secureCookie bool) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger, secureCookie: secureCookie}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Sanitize()

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	res, err := h.authService.Signup(r.Context(), auth.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.setAuthCookies(w, res)
	writeJSON(w, http.StatusCreated, dto.AuthResponse{UserID: res.User.ID.String()})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	res, err := h.authService.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.setAuthCookies(w, res)
	writeJSON(w, http.StatusOK, dto.AuthResponse{UserID: res.User.ID.String()})
}

// Refresh rotates the refresh session. The token is read from the cookie,
// falling back to the JSON body for non-browser clients.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, ok := h.refreshToken(w, r)
	if !ok {
		return
	}

	res, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			h.clearAuthCookies(w)
		}
		respondError(w, h.logger, err)
		return
	}

	h.setAuthCookies(w, res)
	writeJSON(w, http.StatusOK, dto.AuthResponse{UserID: res.User.ID.String()})
}

// Logout revokes the session behind the refresh token, if any, and always
// clears the cookies.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := h.refreshToken(w, r)
	if !ok {
		return
	}

	if err := h.authService.Logout(r.Context(), token); err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.clearAuthCookies(w)
	writeJSON(w, http.StatusOK, dto.SuccessResponse{OK: true})
}

func (h *AuthHandler) refreshToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(middleware.RefreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	var req dto.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeValidation(w, map[string]string{"body": "Invalid request body"})
		return "", false
	}
	return req.RefreshToken, true
}

func (h *AuthHandler) setAuthCookies(w http.ResponseWriter, res *auth.AuthResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    res.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge(res.AccessExpiresAt),
	})
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshTokenCookie,
		Value:    res.RefreshToken,
		Path:     refreshCookiePath,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge(res.RefreshExpiresAt),
	})
}

func (h *AuthHandler) clearAuthCookies(w http.ResponseWriter) {
	for name, path := range map[string]string{
		middleware.AccessTokenCookie:  "/",
		middleware.RefreshTokenCookie: refreshCookiePath,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     path,
			HttpOnly: true,
			Secure:   h.secureCookie,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}

func maxAge(expiresAt time.Time) int {
	secs := int(time.Until(expiresAt).Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}
