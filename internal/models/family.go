package models

// Family groups users that share one budget. Every domain record is scoped
// to a family; lookups across family boundaries behave as not-found.
type Family struct {
	Base
	Name  string `gorm:"not null" json:"name"`
	Users []User `gorm:"foreignKey:FamilyID" json:"users,omitempty"`
}
