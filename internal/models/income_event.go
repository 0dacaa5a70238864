package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// IncomeEventStatus represents the lifecycle state of an income event.
// Status is independent of attribution: scheduled income may already be
// attributed to payments before it is received.
type IncomeEventStatus string

const (
	IncomeEventStatusScheduled IncomeEventStatus = "scheduled"
	IncomeEventStatusReceived  IncomeEventStatus = "received"
	IncomeEventStatusCancelled IncomeEventStatus = "cancelled"
)

// IncomeEvent represents expected income. AllocatedAmount and
// RemainingAmount are maintained by the attribution service and always
// satisfy allocated + remaining = amount, both non-negative.
type IncomeEvent struct {
	Base
	FamilyID        uint              `gorm:"not null;index" json:"family_id"`
	Source          string            `gorm:"not null" json:"source"`
	Amount          decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"amount"`
	ScheduledDate   time.Time         `gorm:"not null" json:"scheduled_date"`
	Status          IncomeEventStatus `gorm:"not null;default:scheduled" json:"status"`
	AllocatedAmount decimal.Decimal   `gorm:"type:decimal(12,2);not null;default:0" json:"allocated_amount"`
	RemainingAmount decimal.Decimal   `gorm:"type:decimal(12,2);not null;default:0" json:"remaining_amount"`
	ReceivedAt      *time.Time        `json:"received_at,omitempty"`

	Attributions []PaymentAttribution `gorm:"foreignKey:IncomeEventID" json:"attributions,omitempty"`
}
