package models

// BankAccount is a linked account that bank sync feeds transactions into.
// The provider integration itself lives outside this service; only the
// reference data needed to scope transactions is kept here.
type BankAccount struct {
	Base
	FamilyID    uint   `gorm:"not null;index" json:"family_id"`
	Name        string `gorm:"not null" json:"name"`
	Institution string `json:"institution"`
	Mask        string `gorm:"size:8" json:"mask"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	Transactions []Transaction `gorm:"foreignKey:BankAccountID" json:"transactions,omitempty"`
}
