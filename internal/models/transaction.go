package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents an observed bank transaction supplied by bank
// sync. Amounts are signed the way the provider reports them: negative
// for money leaving the account.
type Transaction struct {
	Base
	FamilyID         uint            `gorm:"not null;uniqueIndex:idx_txn_family_external" json:"family_id"`
	BankAccountID    uint            `gorm:"not null;index" json:"bank_account_id"`
	ExternalID       string          `gorm:"not null;uniqueIndex:idx_txn_family_external" json:"external_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Date             time.Time       `gorm:"not null" json:"date"`
	Description      string          `json:"description"`
	MerchantName     string          `json:"merchant_name"`
	Pending          bool            `gorm:"default:false" json:"pending"`
	ProviderCategory string          `json:"provider_category"`

	SpendingCategoryID *uint   `json:"spending_category_id,omitempty"`
	CategoryConfidence float64 `gorm:"default:0" json:"category_confidence"`
	UserCategorized    bool    `gorm:"default:false" json:"user_categorized"`

	// Set when the transaction has been linked to a scheduled payment.
	PaymentID *uint `json:"payment_id,omitempty"`

	BankAccount      *BankAccount      `gorm:"foreignKey:BankAccountID" json:"bank_account,omitempty"`
	SpendingCategory *SpendingCategory `gorm:"foreignKey:SpendingCategoryID" json:"spending_category,omitempty"`
	Payment          *Payment          `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
}
