package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/pagination"
)

// BankAccountServicer defines the contract for linked bank accounts.
type BankAccountServicer interface {
	CreateBankAccount(familyID uint, name, institution, mask string) (*models.BankAccount, error)
	GetFamilyBankAccounts(familyID uint, page pagination.PageRequest) (*pagination.PageResponse[models.BankAccount], error)
	GetBankAccountByID(familyID, accountID uint) (*models.BankAccount, error)
}

// bankAccountService keeps the reference data bank sync scopes
// transactions to; the provider integration lives outside this service.
type bankAccountService struct {
	db *gorm.DB
}

// NewBankAccountService creates a new BankAccountServicer.
func NewBankAccountService(db *gorm.DB) BankAccountServicer {
	return &bankAccountService{db: db}
}

// CreateBankAccount registers a linked account for the family.
func (s *bankAccountService) CreateBankAccount(familyID uint, name, institution, mask string) (*models.BankAccount, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}

	account := &models.BankAccount{
		FamilyID:    familyID,
		Name:        name,
		Institution: institution,
		Mask:        mask,
		IsActive:    true,
	}
	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return account, nil
}

// GetFamilyBankAccounts returns a paginated list of the family's accounts.
func (s *bankAccountService) GetFamilyBankAccounts(familyID uint, page pagination.PageRequest) (*pagination.PageResponse[models.BankAccount], error) {
	page.Defaults()

	base := s.db.Model(&models.BankAccount{}).Where("family_id = ?", familyID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.BankAccount
	if err := base.Scopes(pagination.Paginate(page)).Order("name ASC").Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetBankAccountByID returns an account by ID if it belongs to the family.
func (s *bankAccountService) GetBankAccountByID(familyID, accountID uint) (*models.BankAccount, error) {
	var account models.BankAccount
	if err := s.db.Where("id = ? AND family_id = ?", accountID, familyID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBankAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}
