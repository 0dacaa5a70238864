package models

import "github.com/shopspring/decimal"

// AttributionType distinguishes user-created attributions from ones the
// auto-distribute operation created.
type AttributionType string

const (
	AttributionTypeManual    AttributionType = "manual"
	AttributionTypeAutomatic AttributionType = "automatic"
)

// PaymentAttribution is the weighted M:N link recording how much of a
// payment is funded by a specific income event. Amount is always positive
// and rounded to cents, and the sum over either side never exceeds that
// side's amount.
type PaymentAttribution struct {
	Base
	PaymentID       uint            `gorm:"not null;index" json:"payment_id"`
	IncomeEventID   uint            `gorm:"not null;index" json:"income_event_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	AttributionType AttributionType `gorm:"not null;default:manual" json:"attribution_type"`
	CreatedBy       string          `json:"created_by"`

	Payment     *Payment     `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
	IncomeEvent *IncomeEvent `gorm:"foreignKey:IncomeEventID" json:"income_event,omitempty"`
}
