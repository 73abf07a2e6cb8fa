package tickets_test

import (
	"testing"

	"github.com/hugh/ticketdesk/internal/database/models"
	"github.com/hugh/ticketdesk/internal/tenancy"
	"github.com/hugh/ticketdesk/internal/testutil"
	"github.com/hugh/ticketdesk/internal/tickets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessGuard_CanAccessTicket(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	guard := tickets.NewAccessGuard(tc.DB, tenancy.NewStoreResolver(tenancy.NewStore(tc.DB)))
	admin, _ := tc.NewMember(t, models.RoleAdmin)
	other, _ := tc.NewMember(t, models.RoleMember)
	stranger := testutil.CreateTestUser(t, tc.DB, "elsewhere.test")
	ticket := testutil.CreateTestTicket(t, tc.DB, tc.Tenant, tc.User)

	tests := []struct {
		name         string
		user         *models.User
		elevated     bool
		wantErr      error
		wantRole     models.Role
		wantElevated bool
	}{
		{"creator member", tc.User, false, nil, models.RoleMember, false},
		{"other member", other, false, tickets.ErrNotFound, "", false},
		{"tenant admin", admin, false, nil, models.RoleAdmin, false},
		{"stranger", stranger, false, tickets.ErrNotFound, "", false},
		{"elevated stranger", stranger, true, nil, models.RoleAdmin, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grant, err := guard.CanAccessTicket(ctx, ticket.ID, tt.user.ID, tt.elevated)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, grant)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, grant.Role)
			assert.Equal(t, tt.wantElevated, grant.Elevated)
			assert.Equal(t, ticket.ID, grant.Ticket.ID)
		})
	}
}

func TestAccessGuard_OperationsTicketsAreNotSynthesized(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	guard := tickets.NewAccessGuard(tc.DB, tenancy.NewStoreResolver(tenancy.NewStore(tc.DB)))
	ops := testutil.CreateOperationsTenant(t, tc.DB)
	author := testutil.CreateTestUser(t, tc.DB, "support.test")
	testutil.AddMember(t, tc.DB, ops, author, models.RoleMember)
	internal := testutil.CreateTestTicket(t, tc.DB, ops, author)

	// Elevation covers customer tenants only.
	_, err := guard.CanAccessTicket(ctx, internal.ID, tc.User.ID, true)
	assert.ErrorIs(t, err, tickets.ErrNotFound)

	_, err = guard.CanAccessTicket(ctx, internal.ID, author.ID, false)
	assert.NoError(t, err)
}

func TestAccessGuard_CanReply(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	guard := tickets.NewAccessGuard(tc.DB, tenancy.NewStoreResolver(tenancy.NewStore(tc.DB)))
	other, _ := tc.NewMember(t, models.RoleMember)
	ticket := testutil.CreateTestTicket(t, tc.DB, tc.Tenant, tc.User)
	testutil.SetTicketStatus(t, tc.DB, ticket, models.TicketStatusClosed)

	_, err := guard.CanReply(ctx, ticket.ID, tc.User.ID, false)
	assert.ErrorIs(t, err, tickets.ErrTicketClosed)

	// Read denial wins over the closed gate.
	_, err = guard.CanReply(ctx, ticket.ID, other.ID, false)
	assert.ErrorIs(t, err, tickets.ErrNotFound)

	grant, err := guard.CanReply(ctx, ticket.ID, other.ID, true)
	require.NoError(t, err)
	assert.True(t, grant.Privileged())
}
