package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle state of a scheduled payment.
type PaymentStatus string

const (
	PaymentStatusScheduled PaymentStatus = "scheduled"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Payment represents a scheduled payment the family plans to fund.
// AttributedAmount is maintained by the attribution service and always
// satisfies 0 <= attributed <= amount.
type Payment struct {
	Base
	FamilyID           uint            `gorm:"not null;index" json:"family_id"`
	Payee              string          `gorm:"not null" json:"payee"`
	Amount             decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	DueDate            time.Time       `gorm:"not null" json:"due_date"`
	Status             PaymentStatus   `gorm:"not null;default:scheduled" json:"status"`
	AttributedAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"attributed_amount"`
	SpendingCategoryID *uint           `json:"spending_category_id,omitempty"`

	SpendingCategory *SpendingCategory    `gorm:"foreignKey:SpendingCategoryID" json:"spending_category,omitempty"`
	Attributions     []PaymentAttribution `gorm:"foreignKey:PaymentID" json:"attributions,omitempty"`
}

// RemainingCapacity is the unattributed portion of the payment's amount.
func (p *Payment) RemainingCapacity() decimal.Decimal {
	return p.Amount.Sub(p.AttributedAmount)
}
