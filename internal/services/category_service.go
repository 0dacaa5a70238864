package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/pagination"
)

// categoryService handles spending-category business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a new spending category for the family.
func (s *categoryService) CreateCategory(familyID uint, name string) (*models.SpendingCategory, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	category := &models.SpendingCategory{
		FamilyID: familyID,
		Name:     name,
		IsActive: true,
	}
	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return category, nil
}

// GetFamilyCategories returns a paginated list of the family's categories.
func (s *categoryService) GetFamilyCategories(familyID uint, page pagination.PageRequest, activeOnly bool) (*pagination.PageResponse[models.SpendingCategory], error) {
	page.Defaults()

	base := s.db.Model(&models.SpendingCategory{}).Where("family_id = ?", familyID)
	if activeOnly {
		base = base.Where("is_active = ?", true)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var categories []models.SpendingCategory
	if err := base.Scopes(pagination.Paginate(page)).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(categories, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// ListActiveCategories returns all of the family's active categories.
// It is the lookup the categorization and matching flows run against.
func (s *categoryService) ListActiveCategories(familyID uint) ([]models.SpendingCategory, error) {
	var categories []models.SpendingCategory
	err := s.db.Where("family_id = ? AND is_active = ?", familyID, true).Order("name ASC").Find(&categories).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// GetCategoryByID returns a category by ID if it belongs to the family.
func (s *categoryService) GetCategoryByID(familyID, categoryID uint) (*models.SpendingCategory, error) {
	var category models.SpendingCategory
	if err := s.db.Where("id = ? AND family_id = ?", categoryID, familyID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// UpdateCategory updates a category's name and/or active flag.
func (s *categoryService) UpdateCategory(familyID, categoryID uint, name string, isActive *bool) (*models.SpendingCategory, error) {
	category, err := s.GetCategoryByID(familyID, categoryID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if isActive != nil {
		updates["is_active"] = *isActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(category).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return category, nil
}

// DeleteCategory soft-deletes a category that no transaction references.
func (s *categoryService) DeleteCategory(familyID, categoryID uint) error {
	category, err := s.GetCategoryByID(familyID, categoryID)
	if err != nil {
		return err
	}

	var count int64
	if err := s.db.Model(&models.Transaction{}).Where("spending_category_id = ?", categoryID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrCategoryInUse
	}

	if err := s.db.Delete(category).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
