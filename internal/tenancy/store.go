package tenancy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/ticketdesk/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrNotMember      = errors.New("not a member of this tenant")
)

// Store is the tenant and membership query layer.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a store bound to an open transaction.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

func (s *Store) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("loading tenant: %w", err)
	}
	return &tenant, nil
}

// FindMembership returns the explicit membership row, or ErrNotMember.
func (s *Store) FindMembership(ctx context.Context, tenantID, userID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("loading membership: %w", err)
	}
	return &m, nil
}

// ListMemberships returns the user's explicit memberships with their tenants.
func (s *Store) ListMemberships(ctx context.Context, userID uuid.UUID) ([]models.Membership, error) {
	var memberships []models.Membership
	if err := s.db.WithContext(ctx).
		Preload("Tenant").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	return memberships, nil
}

// ListTenantMembers returns a tenant's explicit memberships with their users.
func (s *Store) ListTenantMembers(ctx context.Context, tenantID uuid.UUID) ([]models.Membership, error) {
	var memberships []models.Membership
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Order("user_id ASC").
		Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("listing tenant members: %w", err)
	}
	return memberships, nil
}

// HasOperationsAdmin reports whether the user holds ADMIN in the operations tenant.
func (s *Store) HasOperationsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Membership{}).
		Joins("JOIN tenants ON tenants.id = memberships.tenant_id").
		Where("memberships.user_id = ? AND memberships.role = ? AND tenants.kind = ?",
			userID, models.RoleAdmin, models.TenantKindOperations).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking operations membership: %w", err)
	}
	return count > 0, nil
}

// EnsureCustomerTenant finds the customer tenant for domain, creating it when
// absent. Concurrent signups from the same domain converge on one row.
func (s *Store) EnsureCustomerTenant(ctx context.Context, domain string) (*models.Tenant, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, errors.New("customer tenant requires a domain")
	}

	tenant := models.Tenant{
		Kind:      models.TenantKindCustomer,
		Domain:    &domain,
		Name:      domain,
		CreatedAt: models.Now(),
	}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&tenant).Error; err != nil {
		return nil, fmt.Errorf("creating tenant: %w", err)
	}

	var existing models.Tenant
	if err := s.db.WithContext(ctx).
		Where("kind = ? AND domain = ?", models.TenantKindCustomer, domain).
		First(&existing).Error; err != nil {
		return nil, fmt.Errorf("loading tenant: %w", err)
	}
	return &existing, nil
}

// EnsureOperationsTenant returns the singleton operations tenant, creating it
// on first use.
func (s *Store) EnsureOperationsTenant(ctx context.Context) (*models.Tenant, error) {
	find := func() (*models.Tenant, error) {
		var tenant models.Tenant
		err := s.db.WithContext(ctx).
			Where("kind = ?", models.TenantKindOperations).
			Order("created_at ASC").
			First(&tenant).Error
		if err != nil {
			return nil, err
		}
		return &tenant, nil
	}

	tenant, err := find()
	if err == nil {
		return tenant, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("loading operations tenant: %w", err)
	}

	created := models.Tenant{
		Kind:      models.TenantKindOperations,
		Name:      "Operations",
		CreatedAt: models.Now(),
	}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&created).Error; err != nil {
		return nil, fmt.Errorf("creating operations tenant: %w", err)
	}

	tenant, err = find()
	if err != nil {
		return nil, fmt.Errorf("loading operations tenant: %w", err)
	}
	return tenant, nil
}

// Grant creates the membership or overwrites the role of an existing one.
func (s *Store) Grant(ctx context.Context, tenantID, userID uuid.UUID, role models.Role) error {
	if !ValidRole(role) {
		return fmt.Errorf("invalid role %q", role)
	}
	m := models.Membership{
		TenantID:  tenantID,
		UserID:    userID,
		Role:      role,
		CreatedAt: models.Now(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role"}),
		}).
		Create(&m).Error
	if err != nil {
		return fmt.Errorf("granting membership: %w", err)
	}
	return nil
}
