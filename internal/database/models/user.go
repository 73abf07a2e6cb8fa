package models

type User struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Name         string `json:"name"`

	// IsSupportAgent is set at signup for allow-listed email domains. It is
	// display-only: authorization reads the operations-tenant membership instead.
	IsSupportAgent bool `gorm:"not null;default:false" json:"is_support_agent"`

	Memberships []Membership `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}
