package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/ticketdesk/internal/auth"
	"github.com/hugh/ticketdesk/internal/database"
	"github.com/hugh/ticketdesk/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TestSecret   = "test-secret-key-for-testing"
	TestPassword = "testpassword123"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        models.Now,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Every connection to :memory: opens a separate database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// CreateTestTenant creates a customer tenant for domain
func CreateTestTenant(t *testing.T, db *gorm.DB, domain string) *models.Tenant {
	t.Helper()

	tenant := &models.Tenant{
		ID:        uuid.New(),
		Kind:      models.TenantKindCustomer,
		Domain:    &domain,
		Name:      domain,
		CreatedAt: models.Now(),
	}
	if err := db.Create(tenant).Error; err != nil {
		t.Fatalf("failed to create test tenant: %v", err)
	}
	return tenant
}

// CreateOperationsTenant creates the singleton operations tenant
func CreateOperationsTenant(t *testing.T, db *gorm.DB) *models.Tenant {
	t.Helper()

	tenant := &models.Tenant{
		ID:        uuid.New(),
		Kind:      models.TenantKindOperations,
		Name:      "Operations",
		CreatedAt: models.Now(),
	}
	if err := db.Create(tenant).Error; err != nil {
		t.Fatalf("failed to create operations tenant: %v", err)
	}
	return tenant
}

// CreateTestUser creates a user with TestPassword and no memberships
func CreateTestUser(t *testing.T, db *gorm.DB, domain string) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Base: models.Base{
			ID: uuid.New(),
		},
		Email:        "test-" + uuid.New().String()[:8] + "@" + domain,
		PasswordHash: hash,
		Name:         "Test User",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// AddMember grants role in tenant to user
func AddMember(t *testing.T, db *gorm.DB, tenant *models.Tenant, user *models.User, role models.Role) {
	t.Helper()

	m := &models.Membership{
		TenantID:  tenant.ID,
		UserID:    user.ID,
		Role:      role,
		CreatedAt: models.Now(),
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to create membership: %v", err)
	}
}

// CreateTestTicket creates an OPEN ticket with one opening message
func CreateTestTicket(t *testing.T, db *gorm.DB, tenant *models.Tenant, creator *models.User) *models.Ticket {
	t.Helper()

	ticket := &models.Ticket{
		Base: models.Base{
			ID: uuid.New(),
		},
		TenantID:  tenant.ID,
		CreatedBy: creator.ID,
		Subject:   "Test ticket " + uuid.New().String()[:8],
		Status:    models.TicketStatusOpen,
		Priority:  models.TicketPriorityNormal,
	}
	if err := db.Create(ticket).Error; err != nil {
		t.Fatalf("failed to create test ticket: %v", err)
	}

	msg := &models.TicketMessage{
		TicketID: ticket.ID,
		AuthorID: creator.ID,
		Body:     "Opening message",
	}
	if err := db.Create(msg).Error; err != nil {
		t.Fatalf("failed to create test message: %v", err)
	}

	return ticket
}

// SetTicketStatus overwrites a ticket's status
func SetTicketStatus(t *testing.T, db *gorm.DB, ticket *models.Ticket, status models.TicketStatus) {
	t.Helper()

	if err := db.Model(ticket).Update("status", status).Error; err != nil {
		t.Fatalf("failed to update ticket status: %v", err)
	}
	ticket.Status = status
}

// CreateTestCodec creates a token codec for testing
func CreateTestCodec(t *testing.T) *auth.TokenCodec {
	t.Helper()

	codec, err := auth.NewTokenCodec(TestSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("failed to create token codec: %v", err)
	}
	return codec
}

// GenerateTestToken generates a valid access token for the given user
func GenerateTestToken(t *testing.T, codec *auth.TokenCodec, user *models.User) string {
	t.Helper()

	token, _, err := codec.IssueAccessToken(user.ID)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestLogger returns a logger that only prints errors
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB     *gorm.DB
	Codec  *auth.TokenCodec
	Tenant *models.Tenant
	User   *models.User
	Token  string
}

// NewTestContext creates a customer tenant with one MEMBER user and a token
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	codec := CreateTestCodec(t)
	tenant := CreateTestTenant(t, db, "acme.test")
	user := CreateTestUser(t, db, "acme.test")
	AddMember(t, db, tenant, user, models.RoleMember)
	token := GenerateTestToken(t, codec, user)

	return &TestSetup{
		DB:     db,
		Codec:  codec,
		Tenant: tenant,
		User:   user,
		Token:  token,
	}
}

// NewAgent creates a user holding ADMIN in the operations tenant, creating
// that tenant when needed.
func (ts *TestSetup) NewAgent(t *testing.T) (*models.User, string) {
	t.Helper()

	var ops models.Tenant
	err := ts.DB.Where("kind = ?", models.TenantKindOperations).First(&ops).Error
	if err != nil {
		ops = *CreateOperationsTenant(t, ts.DB)
	}

	agent := CreateTestUser(t, ts.DB, "support.test")
	AddMember(t, ts.DB, &ops, agent, models.RoleAdmin)
	return agent, GenerateTestToken(t, ts.Codec, agent)
}

// NewMember creates another user with role in the setup tenant
func (ts *TestSetup) NewMember(t *testing.T, role models.Role) (*models.User, string) {
	t.Helper()

	user := CreateTestUser(t, ts.DB, "acme.test")
	AddMember(t, ts.DB, ts.Tenant, user, role)
	return user, GenerateTestToken(t, ts.Codec, user)
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
