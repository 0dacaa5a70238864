package services

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/money"
)

// attributionService maintains the income-to-payment attribution ledger.
// Capacity validation and the write always happen inside one database
// transaction, and the aggregates on both sides, the payment's attributed
// amount and the income event's allocated amount, are updated with a
// guarded compare-and-swap so two racing calls cannot both pass validation
// against a stale value.
type attributionService struct {
	db *gorm.DB
}

// NewAttributionService creates a new AttributionServicer.
func NewAttributionService(db *gorm.DB) AttributionServicer {
	return &attributionService{db: db}
}

// CreateAttribution allocates part of an income event to a payment.
// The amount is rounded to cents before any capacity check.
func (s *attributionService) CreateAttribution(
	familyID, paymentID, incomeEventID uint,
	amount decimal.Decimal,
	attrType models.AttributionType,
	createdBy string,
) (*models.PaymentAttribution, error) {
	amount = money.RoundCents(amount)
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "attribution amount must be greater than zero")
	}
	if err := validateAttributionType(attrType); err != nil {
		return nil, err
	}

	var created *models.PaymentAttribution
	err := s.db.Transaction(func(tx *gorm.DB) error {
		payment, err := s.payment(tx, familyID, paymentID)
		if err != nil {
			return err
		}
		if payment.Status == models.PaymentStatusCancelled {
			return apperrors.ErrPaymentCancelled
		}

		income, err := s.incomeEvent(tx, familyID, incomeEventID)
		if err != nil {
			return err
		}
		if income.Status == models.IncomeEventStatusCancelled {
			return apperrors.ErrIncomeEventCancelled
		}

		paymentRemaining := payment.Amount.Sub(payment.AttributedAmount)
		if amount.GreaterThan(paymentRemaining) {
			return apperrors.CapacityError(apperrors.ErrPaymentCapacityExceeded, paymentRemaining, amount)
		}
		if amount.GreaterThan(income.RemainingAmount) {
			return apperrors.CapacityError(apperrors.ErrIncomeCapacityExceeded, income.RemainingAmount, amount)
		}

		attr := &models.PaymentAttribution{
			PaymentID:       payment.ID,
			IncomeEventID:   income.ID,
			Amount:          amount,
			AttributionType: attrType,
			CreatedBy:       createdBy,
		}
		if err := tx.Create(attr).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := s.applyPaymentAggregates(tx, payment, payment.AttributedAmount.Add(amount)); err != nil {
			return err
		}
		if err := s.applyIncomeAggregates(tx, income, income.AllocatedAmount.Add(amount)); err != nil {
			return err
		}

		created = attr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateAttribution changes an attribution's amount and/or type. Capacity
// is recomputed as (current total - old amount + new amount) against each
// side's cap, so a pure decrease always succeeds even at full capacity.
// Returns an audit record with the previous and new values.
func (s *attributionService) UpdateAttribution(
	familyID, attributionID uint,
	newAmount *decimal.Decimal,
	newType *models.AttributionType,
) (*AttributionAudit, error) {
	if newAmount == nil && newType == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "nothing to update")
	}
	if newType != nil {
		if err := validateAttributionType(*newType); err != nil {
			return nil, err
		}
	}

	var audit *AttributionAudit
	err := s.db.Transaction(func(tx *gorm.DB) error {
		attr, err := s.attribution(tx, familyID, attributionID)
		if err != nil {
			return err
		}

		payment, err := s.payment(tx, familyID, attr.PaymentID)
		if err != nil {
			return err
		}
		income, err := s.incomeEvent(tx, familyID, attr.IncomeEventID)
		if err != nil {
			return err
		}

		prevAmount := attr.Amount
		prevType := attr.AttributionType

		amount := prevAmount
		if newAmount != nil {
			amount = money.RoundCents(*newAmount)
			if !amount.IsPositive() {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "attribution amount must be greater than zero")
			}

			paymentTotal := payment.AttributedAmount.Sub(prevAmount).Add(amount)
			if paymentTotal.GreaterThan(payment.Amount) {
				available := payment.Amount.Sub(payment.AttributedAmount.Sub(prevAmount))
				return apperrors.CapacityError(apperrors.ErrPaymentCapacityExceeded, available, amount)
			}

			incomeTotal := income.AllocatedAmount.Sub(prevAmount).Add(amount)
			if incomeTotal.GreaterThan(income.Amount) {
				available := income.Amount.Sub(income.AllocatedAmount.Sub(prevAmount))
				return apperrors.CapacityError(apperrors.ErrIncomeCapacityExceeded, available, amount)
			}
		}

		attrType := prevType
		if newType != nil {
			attrType = *newType
		}

		updates := map[string]interface{}{
			"amount":           amount,
			"attribution_type": attrType,
		}
		if err := tx.Model(attr).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if !amount.Equal(prevAmount) {
			newAttributed := payment.AttributedAmount.Sub(prevAmount).Add(amount)
			if err := s.applyPaymentAggregates(tx, payment, newAttributed); err != nil {
				return err
			}
			newAllocated := income.AllocatedAmount.Sub(prevAmount).Add(amount)
			if err := s.applyIncomeAggregates(tx, income, newAllocated); err != nil {
				return err
			}
		}

		attr.Amount = amount
		attr.AttributionType = attrType
		audit = &AttributionAudit{
			AttributionID:  attr.ID,
			PreviousAmount: prevAmount,
			NewAmount:      amount,
			PreviousType:   prevType,
			NewType:        attrType,
			Attribution:    attr,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return audit, nil
}

// DeleteAttribution removes an attribution and releases capacity on both
// the payment and the income event.
func (s *attributionService) DeleteAttribution(familyID, attributionID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		attr, err := s.attribution(tx, familyID, attributionID)
		if err != nil {
			return err
		}
		return s.deleteLocked(tx, familyID, attr)
	})
}

// DeleteIncomeAttribution removes an attribution addressed through its
// income event, rejecting the call when the attribution belongs to a
// different income event.
func (s *attributionService) DeleteIncomeAttribution(familyID, incomeEventID, attributionID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.incomeEvent(tx, familyID, incomeEventID); err != nil {
			return err
		}
		attr, err := s.attribution(tx, familyID, attributionID)
		if err != nil {
			return err
		}
		if attr.IncomeEventID != incomeEventID {
			return apperrors.ErrAttributionConflict
		}
		return s.deleteLocked(tx, familyID, attr)
	})
}

func (s *attributionService) deleteLocked(tx *gorm.DB, familyID uint, attr *models.PaymentAttribution) error {
	payment, err := s.payment(tx, familyID, attr.PaymentID)
	if err != nil {
		return err
	}
	income, err := s.incomeEvent(tx, familyID, attr.IncomeEventID)
	if err != nil {
		return err
	}

	if err := tx.Delete(attr).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.applyPaymentAggregates(tx, payment, payment.AttributedAmount.Sub(attr.Amount)); err != nil {
		return err
	}
	return s.applyIncomeAggregates(tx, income, income.AllocatedAmount.Sub(attr.Amount))
}

// AutoDistribute allocates an income event's remaining amount across the
// candidate payments. When the candidates' remaining capacities fit within
// the remaining amount each is funded in full; otherwise the remaining
// amount is split proportionally to each candidate's capacity, rounded to
// cents. Residual cent drift from rounding is assigned to the last
// allocation, capped at that payment's capacity.
func (s *attributionService) AutoDistribute(
	familyID, incomeEventID uint,
	paymentIDs []uint,
	createdBy string,
) ([]models.PaymentAttribution, error) {
	if len(paymentIDs) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "at least one candidate payment is required")
	}

	var created []models.PaymentAttribution
	err := s.db.Transaction(func(tx *gorm.DB) error {
		income, err := s.incomeEvent(tx, familyID, incomeEventID)
		if err != nil {
			return err
		}
		if income.Status == models.IncomeEventStatusCancelled {
			return apperrors.ErrIncomeEventCancelled
		}
		if !income.RemainingAmount.IsPositive() {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "income event has no remaining amount to distribute")
		}

		var candidates []*models.Payment
		var capacities []decimal.Decimal
		for _, paymentID := range paymentIDs {
			payment, err := s.payment(tx, familyID, paymentID)
			if err != nil {
				return err
			}
			if payment.Status == models.PaymentStatusCancelled {
				return apperrors.ErrPaymentCancelled
			}
			capacity := payment.Amount.Sub(payment.AttributedAmount)
			if !capacity.IsPositive() {
				continue
			}
			candidates = append(candidates, payment)
			capacities = append(capacities, capacity)
		}
		if len(candidates) == 0 {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "candidate payments have no remaining capacity")
		}

		totalNeed := money.Sum(capacities...)
		var shares []decimal.Decimal
		if totalNeed.LessThanOrEqual(income.RemainingAmount) {
			shares = capacities
		} else {
			shares = money.ProportionalShares(income.RemainingAmount, capacities)
			// The residual cent lands on the last share; never let it
			// push that payment past its capacity.
			for i := range shares {
				if shares[i].GreaterThan(capacities[i]) {
					shares[i] = capacities[i]
				}
			}
		}

		allocated := decimal.Zero
		for i, payment := range candidates {
			if !shares[i].IsPositive() {
				continue
			}
			attr := models.PaymentAttribution{
				PaymentID:       payment.ID,
				IncomeEventID:   income.ID,
				Amount:          shares[i],
				AttributionType: models.AttributionTypeAutomatic,
				CreatedBy:       createdBy,
			}
			if err := tx.Create(&attr).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if err := s.applyPaymentAggregates(tx, payment, payment.AttributedAmount.Add(shares[i])); err != nil {
				return err
			}
			created = append(created, attr)
			allocated = allocated.Add(shares[i])
		}
		if len(created) == 0 {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "remaining amount is too small to distribute")
		}

		return s.applyIncomeAggregates(tx, income, income.AllocatedAmount.Add(allocated))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// applyIncomeAggregates writes the income event's allocated/remaining pair
// guarded by the allocated amount read at the start of the transaction.
// Zero rows affected means a concurrent writer got there first; the caller's
// transaction rolls back and the client retries.
func (s *attributionService) applyIncomeAggregates(tx *gorm.DB, income *models.IncomeEvent, newAllocated decimal.Decimal) error {
	newAllocated = money.RoundCents(newAllocated)
	newRemaining := income.Amount.Sub(newAllocated)
	if newAllocated.IsNegative() || newRemaining.IsNegative() {
		return apperrors.CapacityError(apperrors.ErrIncomeCapacityExceeded, income.RemainingAmount, newAllocated)
	}

	res := tx.Model(&models.IncomeEvent{}).
		Where("id = ? AND allocated_amount = ?", income.ID, income.AllocatedAmount).
		Updates(map[string]interface{}{
			"allocated_amount": newAllocated,
			"remaining_amount": newRemaining,
		})
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrConcurrentModification
	}

	income.AllocatedAmount = newAllocated
	income.RemainingAmount = newRemaining
	return nil
}

// applyPaymentAggregates writes the payment's attributed amount guarded by
// the value read at the start of the transaction, mirroring the income
// side. Zero rows affected means a concurrent writer got there first; the
// caller's transaction rolls back and the client retries.
func (s *attributionService) applyPaymentAggregates(tx *gorm.DB, payment *models.Payment, newAttributed decimal.Decimal) error {
	newAttributed = money.RoundCents(newAttributed)
	if newAttributed.IsNegative() || newAttributed.GreaterThan(payment.Amount) {
		available := payment.Amount.Sub(payment.AttributedAmount)
		return apperrors.CapacityError(apperrors.ErrPaymentCapacityExceeded, available, newAttributed)
	}

	res := tx.Model(&models.Payment{}).
		Where("id = ? AND attributed_amount = ?", payment.ID, payment.AttributedAmount).
		Update("attributed_amount", newAttributed)
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrConcurrentModification
	}

	payment.AttributedAmount = newAttributed
	return nil
}

func (s *attributionService) payment(tx *gorm.DB, familyID, paymentID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := tx.Where("id = ? AND family_id = ?", paymentID, familyID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &payment, nil
}

func (s *attributionService) incomeEvent(tx *gorm.DB, familyID, incomeEventID uint) (*models.IncomeEvent, error) {
	var income models.IncomeEvent
	if err := tx.Where("id = ? AND family_id = ?", incomeEventID, familyID).First(&income).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrIncomeEventNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &income, nil
}

// attribution loads an attribution, scoping it to the family through its
// payment so cross-family IDs behave as not-found.
func (s *attributionService) attribution(tx *gorm.DB, familyID, attributionID uint) (*models.PaymentAttribution, error) {
	var attr models.PaymentAttribution
	err := tx.
		Joins("JOIN payments ON payments.id = payment_attributions.payment_id").
		Where("payment_attributions.id = ? AND payments.family_id = ?", attributionID, familyID).
		First(&attr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAttributionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &attr, nil
}

func validateAttributionType(t models.AttributionType) error {
	switch t {
	case models.AttributionTypeManual, models.AttributionTypeAutomatic:
		return nil
	}
	return apperrors.ErrInvalidAttributionType
}
