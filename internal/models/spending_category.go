package models

// SpendingCategory represents a family-scoped spending category.
type SpendingCategory struct {
	Base
	FamilyID uint   `gorm:"not null;index" json:"family_id"`
	Name     string `gorm:"not null" json:"name"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	Transactions []Transaction `gorm:"foreignKey:SpendingCategoryID" json:"transactions,omitempty"`
	Payments     []Payment     `gorm:"foreignKey:SpendingCategoryID" json:"payments,omitempty"`
}
