package tickets_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/ticketdesk/internal/auth"
	"github.com/hugh/ticketdesk/internal/database/models"
	"github.com/hugh/ticketdesk/internal/pager"
	"github.com/hugh/ticketdesk/internal/tenancy"
	"github.com/hugh/ticketdesk/internal/testutil"
	"github.com/hugh/ticketdesk/internal/tickets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) (*tickets.Service, *testutil.TestSetup) {
	t.Helper()
	tc := testutil.NewTestContext(t)
	svc := tickets.NewService(tc.DB, auth.NewResolver(tc.DB, tc.Codec), testutil.TestLogger())
	return svc, tc
}

func statusPtr(s models.TicketStatus) *models.TicketStatus       { return &s }
func priorityPtr(p models.TicketPriority) *models.TicketPriority { return &p }

func TestService_OwnershipIsolation(t *testing.T) {
	svc, tc := setupService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	other, _ := tc.NewMember(t, models.RoleMember)
	mine := testutil.CreateTestTicket(t, tc.DB, tc.Tenant, tc.User)
	theirs := testutil.CreateTestTicket(t, tc.DB, tc.Tenant, other)

	t.Run("member reads own ticket", func(t *testing.T) {
		got, err := svc.Get(ctx, mine.ID, tc.User.ID)
		require.NoError(t, err)
		assert.Equal(t, mine.ID, got.ID)
		assert.Len(t, got.Messages, 1)
	})

	t.Run("member cannot read another member's ticket", func(t *testing.T) {
		_, err := svc.Get(ctx, theirs.ID, tc.User.ID)
		assert.ErrorIs(t, err, tickets.ErrNotFound)
	})

	t.Run("member cannot reply to another member's ticket", func(t *testing.T) {
		_, err := svc.Reply(ctx, theirs.ID, tc.User.ID, "hello")
		assert.ErrorIs(t, err, tickets.ErrNotFound)
	})

	t.Run("member replies to own ticket", func(t *testing.T) {
		msg, err := svc.Reply(ctx, mine.ID, tc.User.ID, "  more detail  ")
		require.NoError(t, err)
		assert.Equal(t, "more detail", msg.Body)

		got, err := svc.Get(ctx, mine.ID, tc.User.ID)
		require.NoError(t, err)
		require.Len(t, got.Messages, 2)
		assert.Equal(t, msg.ID, got.Messages[1].ID)
	})

	t.Run("missing ticket looks the same as a denied one", func(t *testing.T) {
		_, err := svc.Get(ctx, uuid.New(), tc.User.ID)
		assert.ErrorIs(t, err, tickets.ErrNotFound)
	})

	t.Run("tenant admin reads every ticket", func(t *testing.T) {
		admin, _ := tc.NewMember(t, models.RoleAdmin)
		_, err := svc.Get(ctx, theirs.ID, admin.ID)
		assert.NoError(t, err)
	})
}

func TestService_ElevatedAgentAccess(t *testing.T) {
	svc, tc := setupService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	agent, _ := tc.NewAgent(t)
	otherTenant := testutil.CreateTestTenant(t, tc.DB, "globex.test")
	outsider := testutil.CreateTestUser(t, tc.DB, "globex.test")
	testutil.AddMember(t, tc.DB, otherTenant, outsider, models.RoleMember)
	ticket := testutil.CreateTestTicket(t, tc.DB, otherTenant, outsider)

	t.Run("agent reads a ticket in any customer tenant", func(t *testing.T) {
		got, err := svc.Get(ctx, ticket.ID, agent.ID)
		require.NoError(t, err)
		assert.Equal(t, ticket.ID, got.ID)
	})

	t.Run("agent patches a ticket in any customer tenant", func(t *testing.T) {
		got, err := svc.Patch(ctx, ticket.ID, agent.ID, tickets.PatchInput{
			Status:   statusPtr(models.TicketStatusPending),
			Priority: priorityPtr(models.TicketPriorityHigh),
		})
		require.NoError(t, err)
		assert.Equal(t, models.TicketStatusPending, got.Status)
		assert.Equal(t, models.TicketPriorityHigh, got.Priority)
	})

	t.Run("agent lists a customer tenant without a membership row", func(t *testing.T) {
		page, err := svc.List(ctx, tickets.ListParams{TenantID: otherTenant.ID, UserID: agent.ID})
		require.NoError(t, err)
		assert.False(t, page.Mine)
		assert.Len(t, page.Items, 1)

		var rows int64
		tc.DB.Model(&models.Membership{}).Where("tenant_id = ? AND user_id = ?", otherTenant.ID, agent.ID).Count(&rows)
		assert.Zero(t, rows, "synthesized membership must not be persisted")
	})

	t.Run("non-agent with a real tenant id is refused", func(t *testing.T) {
		_, err := svc.Get(ctx, ticket.ID, tc.User.ID)
		assert.ErrorIs(t, err, tickets.ErrNotFound)

		_, err = svc.List(ctx, tickets.ListParams{TenantID: otherTenant.ID, UserID: tc.User.ID})
		assert.ErrorIs(t, err, tenancy.ErrNotMember)
	})

	t.Run("operations MEMBER is not elevated", func(t *testing.T) {
		var ops models.Tenant
		require.NoError(t, tc.DB.Where("kind = ?", models.TenantKindOperations).First(&ops).Error)
		junior := testutil.CreateTestUser(t, tc.DB, "support.test")
		testutil.AddMember(t, tc.DB, &ops, junior, models.RoleMember)

		_, err := svc.Get(ctx, ticket.ID, junior.ID)
		assert.ErrorIs(t, err, tickets.ErrNotFound)
	})

	// The advisory flag alone grants nothing; only the operations membership does.
	t.Run("advisory support flag without membership is not elevated", func(t *testing.T) {
		flagged := testutil.CreateTestUser(t, tc.DB, "support.test")
		require.NoError(t, tc.DB.Model(flagged).Update("is_support_agent", true).Error)

		_, err := svc.Get(ctx, ticket.ID, flagged.ID)
		assert.ErrorIs(t, err, tickets.ErrNotFound)

		_, err = svc.Patch(ctx, ticket.ID, flagged.ID, tickets.PatchInput{Status: statusPtr(models.TicketStatusClosed)})
		assert.ErrorIs(t, err, tickets.ErrNotFound)
	})
}

func TestService_ClosedTicketGate(t *testing.T) {
	svc, tc := setupService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	admin, _ := tc.NewMember(t, models.RoleAdmin)
	agent, _ := tc.NewAgent(t)
	ticket := testutil.CreateTestTicket(t, tc.DB, tc.Tenant, tc.User)
	testutil.SetTicketStatus(t, tc.DB, ticket, models.TicketStatusClosed)

	t.Run("member reply is refused", func(t *testing.T) {
		_, err := svc.Reply(ctx, ticket.ID, tc.User.ID, "reopen please")
		assert.ErrorIs(t, err, tickets.ErrTicketClosed)
	})

	t.Run("member can still read", func(t *testing.T) {
		_, err := svc.Get(ctx, ticket.ID, tc.User.ID)
		assert.NoError(t, err)
	})

	t.Run("admin reply succeeds", func(t *testing.T) {
		_, err := svc.Reply(ctx, ticket.ID, admin.ID, "closing note")
		assert.NoError(t, err)
	})

	t.Run("agent reply succeeds", func(t *testing.T) {
		_, err := svc.Reply(ctx, ticket.ID, agent.ID, "agent note")
		assert.NoError(t, err)
	})

	t.Run("empty body is rejected", func(t *testing.T) {
		_, err := svc.Reply(ctx, ticket.ID, admin.ID, "   ")
		assert.ErrorIs(t, err, tickets.ErrEmptyBody)
	})
}

func TestService_Patch(t *testing.T) {
	svc, tc := setupService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	admin, _ := tc.NewMember(t, models.RoleAdmin)
	ticket := testutil.CreateTestTicket(t, tc.DB, tc.Tenant, tc.User)

	t.Run("owner without admin role gets not found", func(t *testing.T) {
		_, err := svc.Patch(ctx, ticket.ID, tc.User.ID, tickets.PatchInput{Status: statusPtr(models.TicketStatusResolved)})
		assert.ErrorIs(t, err, tickets.ErrNotFound)
	})

	t.Run("admin patches status", func(t *testing.T) {
		got, err := svc.Patch(ctx, ticket.ID, admin.ID, tickets.PatchInput{Status: statusPtr(models.TicketStatusResolved)})
		require.NoError(t, err)
		assert.Equal(t, models.TicketStatusResolved, got.Status)
		assert.Equal(t, models.TicketPriorityNormal, got.Priority)

		var stored models.Ticket
		require.NoError(t, tc.DB.First(&stored, "id = ?", ticket.ID).Error)
		assert.Equal(t, models.TicketStatusResolved, stored.Status)
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := svc.Patch(ctx, ticket.ID, admin.ID, tickets.PatchInput{Status: statusPtr("DONE")})
		assert.ErrorIs(t, err, tickets.ErrInvalidStatus)

		_, err = svc.Patch(ctx, ticket.ID, admin.ID, tickets.PatchInput{Priority: priorityPtr("MEH")})
		assert.ErrorIs(t, err, tickets.ErrInvalidPriority)

		_, err = svc.Patch(ctx, ticket.ID, admin.ID, tickets.PatchInput{})
		assert.ErrorIs(t, err, tickets.ErrEmptyPatch)
	})
}

func TestService_Create(t *testing.T) {
	svc, tc := setupService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	t.Run("ticket and opening message are written together", func(t *testing.T) {
		ticket, err := svc.Create(ctx, tickets.CreateInput{
			TenantID: tc.Tenant.ID,
			UserID:   tc.User.ID,
			Subject:  " Printer on fire ",
			Body:     "It is on fire.",
		})
		require.NoError(t, err)
		assert.Equal(t, "Printer on fire", ticket.Subject)
		assert.Equal(t, models.TicketStatusOpen, ticket.Status)
		assert.Equal(t, models.TicketPriorityNormal, ticket.Priority)
		require.Len(t, ticket.Messages, 1)

		var count int64
		tc.DB.Model(&models.TicketMessage{}).Where("ticket_id = ?", ticket.ID).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("non-member is refused", func(t *testing.T) {
		stranger := testutil.CreateTestUser(t, tc.DB, "elsewhere.test")
		_, err := svc.Create(ctx, tickets.CreateInput{
			TenantID: tc.Tenant.ID,
			UserID:   stranger.ID,
			Subject:  "hi",
			Body:     "hi",
		})
		assert.ErrorIs(t, err, tenancy.ErrNotMember)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		_, err := svc.Create(ctx, tickets.CreateInput{
			TenantID: uuid.New(),
			UserID:   tc.User.ID,
			Subject:  "hi",
			Body:     "hi",
		})
		assert.ErrorIs(t, err, tenancy.ErrTenantNotFound)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := svc.Create(ctx, tickets.CreateInput{TenantID: tc.Tenant.ID, UserID: tc.User.ID, Body: "x"})
		assert.ErrorIs(t, err, tickets.ErrEmptySubject)

		_, err = svc.Create(ctx, tickets.CreateInput{TenantID: tc.Tenant.ID, UserID: tc.User.ID, Subject: "x"})
		assert.ErrorIs(t, err, tickets.ErrEmptyBody)

		_, err = svc.Create(ctx, tickets.CreateInput{TenantID: tc.Tenant.ID, UserID: tc.User.ID, Subject: "x", Body: "x", Priority: "P0"})
		assert.ErrorIs(t, err, tickets.ErrInvalidPriority)
	})
}

func TestService_ListPagination(t *testing.T) {
	svc, tc := setupService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	for i := 0; i < 25; i++ {
		_, err := svc.Create(ctx, tickets.CreateInput{
			TenantID: tc.Tenant.ID,
			UserID:   tc.User.ID,
			Subject:  "ticket",
			Body:     "body",
		})
		require.NoError(t, err)
	}

	var sizes []int
	var walked []uuid.UUID
	cursor := ""
	for {
		page, err := svc.List(ctx, tickets.ListParams{
			TenantID: tc.Tenant.ID,
			UserID:   tc.User.ID,
			Cursor:   cursor,
			Limit:    10,
		})
		require.NoError(t, err)
		sizes = append(sizes, len(page.Items))
		for _, item := range page.Items {
			walked = append(walked, item.ID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
		require.Less(t, len(sizes), 5, "pagination did not terminate")
	}

	assert.Equal(t, []int{10, 10, 5}, sizes)

	var all []models.Ticket
	require.NoError(t, tc.DB.Where("tenant_id = ?", tc.Tenant.ID).Order("created_at DESC, id DESC").Find(&all).Error)
	require.Len(t, walked, 25)
	seen := make(map[uuid.UUID]bool, len(walked))
	for i, id := range walked {
		assert.False(t, seen[id], "duplicate ticket %s", id)
		seen[id] = true
		assert.Equal(t, all[i].ID, id)
	}
}

func TestService_ListScoping(t *testing.T) {
	svc, tc := setupService(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	admin, _ := tc.NewMember(t, models.RoleAdmin)
	other, _ := tc.NewMember(t, models.RoleMember)
	testutil.CreateTestTicket(t, tc.DB, tc.Tenant, tc.User)
	testutil.CreateTestTicket(t, tc.DB, tc.Tenant, other)
	closed := testutil.CreateTestTicket(t, tc.DB, tc.Tenant, other)
	testutil.SetTicketStatus(t, tc.DB, closed, models.TicketStatusClosed)

	t.Run("member listing is forced to own tickets", func(t *testing.T) {
		page, err := svc.List(ctx, tickets.ListParams{TenantID: tc.Tenant.ID, UserID: tc.User.ID, Mine: false})
		require.NoError(t, err)
		assert.True(t, page.Mine)
		require.Len(t, page.Items, 1)
		assert.Equal(t, tc.User.ID, page.Items[0].CreatedBy)
	})

	t.Run("admin sees every ticket", func(t *testing.T) {
		page, err := svc.List(ctx, tickets.ListParams{TenantID: tc.Tenant.ID, UserID: admin.ID})
		require.NoError(t, err)
		assert.False(t, page.Mine)
		assert.Len(t, page.Items, 3)
	})

	t.Run("admin may ask for own tickets", func(t *testing.T) {
		page, err := svc.List(ctx, tickets.ListParams{TenantID: tc.Tenant.ID, UserID: admin.ID, Mine: true})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})

	t.Run("status filter", func(t *testing.T) {
		page, err := svc.List(ctx, tickets.ListParams{TenantID: tc.Tenant.ID, UserID: admin.ID, Status: models.TicketStatusClosed})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, closed.ID, page.Items[0].ID)

		_, err = svc.List(ctx, tickets.ListParams{TenantID: tc.Tenant.ID, UserID: admin.ID, Status: "LOST"})
		assert.ErrorIs(t, err, tickets.ErrInvalidStatus)
	})

	t.Run("label sort serves the first page only", func(t *testing.T) {
		page, err := svc.List(ctx, tickets.ListParams{TenantID: tc.Tenant.ID, UserID: admin.ID, Sort: "priority", Limit: 2})
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.Empty(t, page.NextCursor)
	})

	t.Run("forged cursor is rejected", func(t *testing.T) {
		_, err := svc.List(ctx, tickets.ListParams{TenantID: tc.Tenant.ID, UserID: admin.ID, Cursor: "garbage"})
		assert.ErrorIs(t, err, pager.ErrInvalidCursor)
	})

	t.Run("unknown sort is rejected", func(t *testing.T) {
		_, err := svc.List(ctx, tickets.ListParams{TenantID: tc.Tenant.ID, UserID: admin.ID, Sort: "random"})
		assert.ErrorIs(t, err, pager.ErrUnknownSort)
	})
}
