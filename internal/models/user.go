package models

import "time"

// User represents the user model in the database
type User struct {
	Base
	FamilyID    uint       `gorm:"not null;index" json:"family_id"`
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"not null" json:"-"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	Family Family `gorm:"foreignKey:FamilyID" json:"family,omitempty"`
}
