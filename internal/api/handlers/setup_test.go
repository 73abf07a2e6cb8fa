package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/ticketdesk/internal/api/dto"
	"github.com/hugh/ticketdesk/internal/api/handlers"
	"github.com/hugh/ticketdesk/internal/api/middleware"
	"github.com/hugh/ticketdesk/internal/auth"
	"github.com/hugh/ticketdesk/internal/database/models"
	"github.com/hugh/ticketdesk/internal/tenancy"
	"github.com/hugh/ticketdesk/internal/testutil"
	"github.com/hugh/ticketdesk/internal/tickets"
	"github.com/stretchr/testify/assert"
)

func setupTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	t.Helper()
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)

	logger := testutil.TestLogger()
	resolver := auth.NewResolver(tc.DB, tc.Codec)
	authService := auth.NewService(tc.DB, tc.Codec, logger, auth.ServiceConfig{
		AgentDomains: []string{"support.test"},
	})
	store := tenancy.NewStore(tc.DB)
	guard := tenancy.NewGuard(tenancy.NewElevatedResolver(store, resolver, tenancy.NewStoreResolver(store)))

	authHandler := handlers.NewAuthHandler(authService, logger, false)
	meHandler := handlers.NewMeHandler(resolver, store, logger)
	tenantHandler := handlers.NewTenantHandler(store, logger)
	ticketHandler := handlers.NewTicketHandler(tickets.NewService(tc.DB, resolver, logger), logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(resolver, logger))
			r.Get("/me", meHandler.Get)
			r.Get("/tenants/{tenantID}/tickets", ticketHandler.List)
			r.Post("/tenants/{tenantID}/tickets", ticketHandler.Create)
			r.With(middleware.RequireTenantRole(guard, models.RoleAdmin, logger)).
				Get("/tenants/{tenantID}/members", tenantHandler.Members)
			r.Get("/tickets/{ticketID}", ticketHandler.Get)
			r.Patch("/tickets/{ticketID}", ticketHandler.Patch)
			r.Post("/tickets/{ticketID}/messages", ticketHandler.Reply)
		})
	})

	return r, tc
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) dto.ErrorResponse {
	t.Helper()
	testutil.AssertStatus(t, rec, status)
	var body dto.ErrorResponse
	testutil.ParseJSONResponse(t, rec, &body)
	assert.Equal(t, code, body.Error.Code)
	return body
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
