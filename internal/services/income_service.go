package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/money"
	"famledger/internal/pagination"
)

// incomeService handles the income-event lifecycle. Status transitions are
// independent of attribution: attributing income never changes its status,
// and receiving income never changes its attributions.
type incomeService struct {
	db *gorm.DB
}

// NewIncomeService creates a new IncomeServicer.
func NewIncomeService(db *gorm.DB) IncomeServicer {
	return &incomeService{db: db}
}

// CreateIncomeEvent creates a new scheduled income event with nothing allocated.
func (s *incomeService) CreateIncomeEvent(familyID uint, source string, amount decimal.Decimal, scheduledDate time.Time) (*models.IncomeEvent, error) {
	if source == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "income source is required")
	}
	amount = money.RoundCents(amount)
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "income amount must be greater than zero")
	}
	if scheduledDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "scheduled date is required")
	}

	income := &models.IncomeEvent{
		FamilyID:        familyID,
		Source:          source,
		Amount:          amount,
		ScheduledDate:   scheduledDate,
		Status:          models.IncomeEventStatusScheduled,
		AllocatedAmount: decimal.Zero,
		RemainingAmount: amount,
	}
	if err := s.db.Create(income).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return income, nil
}

// GetFamilyIncomeEvents returns a paginated list of income events with an
// optional status filter.
func (s *incomeService) GetFamilyIncomeEvents(familyID uint, page pagination.PageRequest, status *models.IncomeEventStatus) (*pagination.PageResponse[models.IncomeEvent], error) {
	page.Defaults()

	base := s.db.Model(&models.IncomeEvent{}).Where("family_id = ?", familyID)
	if status != nil {
		base = base.Where("status = ?", *status)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var incomes []models.IncomeEvent
	if err := base.Preload("Attributions").Scopes(pagination.Paginate(page)).
		Order("scheduled_date ASC").
		Find(&incomes).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(incomes, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetIncomeEventByID returns an income event with its attributions if it
// belongs to the family.
func (s *incomeService) GetIncomeEventByID(familyID, incomeEventID uint) (*models.IncomeEvent, error) {
	var income models.IncomeEvent
	err := s.db.Preload("Attributions").
		Where("id = ? AND family_id = ?", incomeEventID, familyID).
		First(&income).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrIncomeEventNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &income, nil
}

// UpdateIncomeEvent updates an income event's fields. The amount may never
// drop below what is already allocated; raising it extends the remaining
// amount accordingly.
func (s *incomeService) UpdateIncomeEvent(familyID, incomeEventID uint, source string, amount *decimal.Decimal, scheduledDate *time.Time) (*models.IncomeEvent, error) {
	income, err := s.GetIncomeEventByID(familyID, incomeEventID)
	if err != nil {
		return nil, err
	}
	if income.Status == models.IncomeEventStatusCancelled {
		return nil, apperrors.ErrIncomeEventCancelled
	}

	updates := make(map[string]interface{})
	if source != "" {
		updates["source"] = source
	}
	if amount != nil {
		newAmount := money.RoundCents(*amount)
		if !newAmount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "income amount must be greater than zero")
		}
		if newAmount.LessThan(income.AllocatedAmount) {
			return nil, apperrors.CapacityError(apperrors.ErrIncomeCapacityExceeded, income.AllocatedAmount, newAmount)
		}
		updates["amount"] = newAmount
		updates["remaining_amount"] = newAmount.Sub(income.AllocatedAmount)
	}
	if scheduledDate != nil {
		updates["scheduled_date"] = *scheduledDate
	}

	if len(updates) > 0 {
		if err := s.db.Model(income).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return income, nil
}

// MarkReceived transitions a scheduled income event to received.
func (s *incomeService) MarkReceived(familyID, incomeEventID uint) (*models.IncomeEvent, error) {
	income, err := s.GetIncomeEventByID(familyID, incomeEventID)
	if err != nil {
		return nil, err
	}
	if income.Status != models.IncomeEventStatusScheduled {
		return nil, apperrors.ErrInvalidIncomeStatus
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":      models.IncomeEventStatusReceived,
		"received_at": &now,
	}
	if err := s.db.Model(income).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return income, nil
}

// CancelIncomeEvent cancels an income event that has no allocations.
// Events with attributions must have them released first, so payments are
// never left funded by cancelled income.
func (s *incomeService) CancelIncomeEvent(familyID, incomeEventID uint) error {
	income, err := s.GetIncomeEventByID(familyID, incomeEventID)
	if err != nil {
		return err
	}
	if income.Status == models.IncomeEventStatusCancelled {
		return apperrors.ErrIncomeEventCancelled
	}
	if income.AllocatedAmount.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidIncomeStatus, "income event has attributions; delete them before cancelling")
	}

	if err := s.db.Model(income).Update("status", models.IncomeEventStatusCancelled).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
