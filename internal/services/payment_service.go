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

// paymentService handles the payment lifecycle around the attribution core.
type paymentService struct {
	db *gorm.DB
}

// NewPaymentService creates a new PaymentServicer.
func NewPaymentService(db *gorm.DB) PaymentServicer {
	return &paymentService{db: db}
}

// CreatePayment creates a new scheduled payment.
func (s *paymentService) CreatePayment(familyID uint, payee string, amount decimal.Decimal, dueDate time.Time, categoryID *uint) (*models.Payment, error) {
	if payee == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "payee is required")
	}
	amount = money.RoundCents(amount)
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "payment amount must be greater than zero")
	}
	if dueDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "due date is required")
	}

	if categoryID != nil {
		if err := s.checkCategory(familyID, *categoryID); err != nil {
			return nil, err
		}
	}

	payment := &models.Payment{
		FamilyID:           familyID,
		Payee:              payee,
		Amount:             amount,
		DueDate:            dueDate,
		Status:             models.PaymentStatusScheduled,
		SpendingCategoryID: categoryID,
	}
	if err := s.db.Create(payment).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return payment, nil
}

// GetFamilyPayments returns a paginated list of payments with an optional status filter.
func (s *paymentService) GetFamilyPayments(familyID uint, page pagination.PageRequest, status *models.PaymentStatus) (*pagination.PageResponse[models.Payment], error) {
	page.Defaults()

	base := s.db.Model(&models.Payment{}).Where("family_id = ?", familyID)
	if status != nil {
		base = base.Where("status = ?", *status)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var payments []models.Payment
	if err := base.Preload("Attributions").Scopes(pagination.Paginate(page)).
		Order("due_date ASC").
		Find(&payments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(payments, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetPaymentByID returns a payment with its attributions if it belongs to the family.
func (s *paymentService) GetPaymentByID(familyID, paymentID uint) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Preload("Attributions").Preload("SpendingCategory").
		Where("id = ? AND family_id = ?", paymentID, familyID).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &payment, nil
}

// GetPaymentCapacity reports the payment's amount, attributed total, and
// remaining capacity.
func (s *paymentService) GetPaymentCapacity(familyID, paymentID uint) (*PaymentCapacity, error) {
	payment, err := s.GetPaymentByID(familyID, paymentID)
	if err != nil {
		return nil, err
	}

	return &PaymentCapacity{
		PaymentID:         payment.ID,
		Amount:            payment.Amount,
		AttributedAmount:  payment.AttributedAmount,
		RemainingCapacity: payment.RemainingCapacity(),
	}, nil
}

// UpdatePayment updates a payment's fields. The amount may never drop
// below what is already attributed to the payment.
func (s *paymentService) UpdatePayment(familyID, paymentID uint, payee string, amount *decimal.Decimal, dueDate *time.Time, categoryID *uint) (*models.Payment, error) {
	payment, err := s.GetPaymentByID(familyID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentStatusCancelled {
		return nil, apperrors.ErrPaymentCancelled
	}

	updates := make(map[string]interface{})
	if payee != "" {
		updates["payee"] = payee
	}
	if amount != nil {
		newAmount := money.RoundCents(*amount)
		if !newAmount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "payment amount must be greater than zero")
		}
		if newAmount.LessThan(payment.AttributedAmount) {
			return nil, apperrors.CapacityError(apperrors.ErrPaymentCapacityExceeded, payment.AttributedAmount, newAmount)
		}
		updates["amount"] = newAmount
	}
	if dueDate != nil {
		updates["due_date"] = *dueDate
	}
	if categoryID != nil {
		if err := s.checkCategory(familyID, *categoryID); err != nil {
			return nil, err
		}
		updates["spending_category_id"] = *categoryID
	}

	if len(updates) > 0 {
		if err := s.db.Model(payment).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return payment, nil
}

// MarkPaid transitions a scheduled payment to paid.
func (s *paymentService) MarkPaid(familyID, paymentID uint) (*models.Payment, error) {
	payment, err := s.GetPaymentByID(familyID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusScheduled {
		return nil, apperrors.ErrInvalidPaymentStatus
	}

	if err := s.db.Model(payment).Update("status", models.PaymentStatusPaid).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return payment, nil
}

// CancelPayment cancels a payment that has no attributions. Payments with
// attributions must have them released first so income capacity is never
// stranded on a cancelled payment.
func (s *paymentService) CancelPayment(familyID, paymentID uint) error {
	payment, err := s.GetPaymentByID(familyID, paymentID)
	if err != nil {
		return err
	}
	if payment.Status == models.PaymentStatusCancelled {
		return apperrors.ErrPaymentCancelled
	}
	if payment.AttributedAmount.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidPaymentStatus, "payment has attributions; delete them before cancelling")
	}

	if err := s.db.Model(payment).Update("status", models.PaymentStatusCancelled).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *paymentService) checkCategory(familyID, categoryID uint) error {
	var count int64
	err := s.db.Model(&models.SpendingCategory{}).
		Where("id = ? AND family_id = ?", categoryID, familyID).
		Count(&count).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrCategoryNotFound
	}
	return nil
}
