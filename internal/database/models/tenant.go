package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TenantKind string

const (
	TenantKindCustomer   TenantKind = "CUSTOMER"
	TenantKindOperations TenantKind = "OPERATIONS"
)

// Tenant is a workspace. Customer tenants are keyed by email domain; the
// operations tenant is a singleton without a domain.
type Tenant struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Kind      TenantKind `gorm:"not null;index" json:"kind"`
	Domain    *string    `gorm:"uniqueIndex" json:"domain,omitempty"`
	Name      string     `gorm:"not null" json:"name"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`

	Memberships []Membership `gorm:"foreignKey:TenantID" json:"-"`
}

func (Tenant) TableName() string {
	return "tenants"
}

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (t *Tenant) IsCustomer() bool {
	return t.Kind == TenantKindCustomer
}

type Role string

const (
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
)

// Membership is the (tenant, user, role) relation. The composite primary key
// allows at most one row per tenant and user.
type Membership struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"tenant_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	Role      Role      `gorm:"not null;default:'MEMBER'" json:"role"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`

	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	User   *User   `gorm:"foreignKey:UserID" json:"-"`
}

func (Membership) TableName() string {
	return "memberships"
}
