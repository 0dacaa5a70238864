package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/money"
	"famledger/internal/pagination"
)

// transactionService handles bank-feed transaction ingestion and the
// user-facing transaction operations.
type transactionService struct {
	db             *gorm.DB
	categorization CategorizationServicer
	matching       MatchingServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, categorization CategorizationServicer, matching MatchingServicer) TransactionServicer {
	return &transactionService{
		db:             db,
		categorization: categorization,
		matching:       matching,
	}
}

// IngestTransactions stores a batch of raw feed records, deduplicating on
// external ID. Each new transaction is run through the categorization
// engine: suggestions at or above the auto-apply threshold are written
// with their confidence; weaker suggestions only record the confidence
// and leave the category unset for the user to confirm.
func (s *transactionService) IngestTransactions(familyID uint, records []TransactionFeedRecord) (*SyncResult, error) {
	if len(records) == 0 {
		return &SyncResult{}, nil
	}

	var categories []models.SpendingCategory
	if err := s.db.Where("family_id = ? AND is_active = ?", familyID, true).Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &SyncResult{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, record := range records {
			if record.Date.IsZero() {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction date is required")
			}

			var count int64
			if err := tx.Model(&models.BankAccount{}).
				Where("id = ? AND family_id = ?", record.BankAccountID, familyID).
				Count(&count).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if count == 0 {
				return apperrors.ErrBankAccountNotFound
			}

			externalID := record.ExternalID
			if externalID == "" {
				externalID = uuid.New().String()
			} else {
				var existing int64
				if err := tx.Model(&models.Transaction{}).
					Where("family_id = ? AND external_id = ?", familyID, externalID).
					Count(&existing).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
				if existing > 0 {
					result.Skipped++
					continue
				}
			}

			txn := &models.Transaction{
				FamilyID:         familyID,
				BankAccountID:    record.BankAccountID,
				ExternalID:       externalID,
				Amount:           money.RoundCents(record.Amount),
				Date:             record.Date,
				Description:      record.Description,
				MerchantName:     record.MerchantName,
				Pending:          record.Pending,
				ProviderCategory: record.ProviderCategory,
			}

			if suggestion := s.categorization.CategorizeTransaction(txn, categories); suggestion != nil {
				txn.CategoryConfidence = suggestion.Confidence
				if suggestion.Confidence >= autoApplyThreshold {
					txn.SpendingCategoryID = &suggestion.CategoryID
					result.AutoCategorized++
				}
			}

			if err := tx.Create(txn).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetFamilyTransactions retrieves a paginated, filtered list of the
// family's transactions.
func (s *transactionService) GetFamilyTransactions(familyID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("family_id = ?", familyID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.CategoryID != nil {
		q = q.Where("spending_category_id = ?", *f.CategoryID)
	}
	if f.BankAccountID != nil {
		q = q.Where("bank_account_id = ?", *f.BankAccountID)
	}
	if f.Uncategorized {
		q = q.Where("spending_category_id IS NULL")
	}
	if f.Unlinked {
		q = q.Where("payment_id IS NULL")
	}
	return q
}

// GetTransactionByID retrieves a transaction by ID for the family.
func (s *transactionService) GetTransactionByID(familyID, transactionID uint) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.db.Where("id = ? AND family_id = ?", transactionID, familyID).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &txn, nil
}

// SetUserCategory records an explicit user categorization: confidence
// becomes 1 and the category is pinned against automatic overwrite.
func (s *transactionService) SetUserCategory(familyID, transactionID, categoryID uint) (*models.Transaction, error) {
	txn, err := s.GetTransactionByID(familyID, transactionID)
	if err != nil {
		return nil, err
	}

	var count int64
	err = s.db.Model(&models.SpendingCategory{}).
		Where("id = ? AND family_id = ? AND is_active = ?", categoryID, familyID, true).
		Count(&count).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return nil, apperrors.ErrCategoryNotFound
	}

	updates := map[string]interface{}{
		"spending_category_id": categoryID,
		"category_confidence":  1.0,
		"user_categorized":     true,
	}
	if err := s.db.Model(txn).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return txn, nil
}

// LinkToPayment applies an accepted match proposal: the transaction is
// linked to the payment and a scheduled payment is marked paid. Linking is
// idempotent for the same payment and conflicts for a different one.
func (s *transactionService) LinkToPayment(familyID, transactionID, paymentID uint) (*models.Transaction, error) {
	txn, err := s.GetTransactionByID(familyID, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.PaymentID != nil {
		if *txn.PaymentID == paymentID {
			return txn, nil
		}
		return nil, apperrors.ErrTransactionAlreadyLinked
	}

	var payment models.Payment
	if err := s.db.Where("id = ? AND family_id = ?", paymentID, familyID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if payment.Status == models.PaymentStatusCancelled {
		return nil, apperrors.ErrPaymentCancelled
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(txn).Update("payment_id", paymentID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if payment.Status == models.PaymentStatusScheduled {
			if err := tx.Model(&payment).Update("status", models.PaymentStatusPaid).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// ProposeMatches runs the matching engine over the family's unlinked,
// non-pending transactions and scheduled payments. The proposals are
// advisory; nothing is written.
func (s *transactionService) ProposeMatches(familyID uint, amountTolerance decimal.Decimal, dateToleranceDays int) ([]MatchProposal, error) {
	var transactions []models.Transaction
	err := s.db.
		Where("family_id = ? AND payment_id IS NULL AND pending = ?", familyID, false).
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var payments []models.Payment
	err = s.db.
		Where("family_id = ? AND status = ?", familyID, models.PaymentStatusScheduled).
		Find(&payments).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.matching.MatchTransactionsToPayments(transactions, payments, amountTolerance, dateToleranceDays)
}
