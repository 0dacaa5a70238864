package services

import (
	"sort"
	"strings"

	"gorm.io/gorm"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/rules"
)

const (
	// Minimum confidence for an automatic category write.
	autoApplyThreshold = 0.7
	// Minimum per-transaction confidence counted by the frequency heuristic.
	suggestionThreshold = 0.5
	// Minimum transactions hitting a category before it is surfaced.
	suggestionMinHits = 2
	// Confidence assigned to provider-category fallback matches.
	providerFallbackConfidence = 0.6
)

// categorizationService assigns spending categories to transactions using
// an explicit keyword rule set with a provider-category fallback. "No
// match" is a normal empty result, never an error, and a category the user
// set explicitly is never reassigned.
type categorizationService struct {
	db      *gorm.DB
	ruleSet *rules.RuleSet
}

// NewCategorizationService creates a new CategorizationServicer using the
// given rule set. Pass rules.Default() for the stock table.
func NewCategorizationService(db *gorm.DB, ruleSet *rules.RuleSet) CategorizationServicer {
	return &categorizationService{db: db, ruleSet: ruleSet}
}

// CategorizeTransaction scores the rule table against the transaction's
// description and merchant name and returns the best suggestion whose
// target category exists in the given active category list, or nil when
// nothing matches. Transactions the user categorized are left alone.
func (s *categorizationService) CategorizeTransaction(txn *models.Transaction, categories []models.SpendingCategory) *CategorySuggestion {
	if txn == nil || txn.UserCategorized {
		return nil
	}

	text := strings.ToLower(txn.Description + " " + txn.MerchantName)

	var best *CategorySuggestion
	for _, rule := range s.ruleSet.Rules() {
		matched := 0
		for _, keyword := range rule.Keywords {
			if strings.Contains(text, keyword) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}

		score := float64(matched) / float64(len(rule.Keywords)) * rule.Weight
		if best != nil && score <= best.Confidence {
			continue
		}

		category := resolveCategory(rule.CategoryPattern, categories)
		if category == nil {
			continue
		}
		best = &CategorySuggestion{
			CategoryID:   category.ID,
			CategoryName: category.Name,
			Confidence:   score,
			Source:       "rule",
		}
	}
	if best != nil {
		return best
	}

	// Fall back to the bank provider's category hint at fixed confidence.
	pattern, ok := s.ruleSet.FallbackPattern(txn.ProviderCategory)
	if !ok {
		return nil
	}
	category := resolveCategory(pattern, categories)
	if category == nil {
		return nil
	}
	return &CategorySuggestion{
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Confidence:   providerFallbackConfidence,
		Source:       "provider",
	}
}

// ApplyCategoryRules runs the engine over the family's transactions and
// writes a category only when the suggestion's confidence is at least 0.7,
// and only onto transactions the user has not categorized. An empty
// transactionIDs slice means all of the family's uncategorized
// transactions. Returns the number of transactions updated. The operation
// is idempotent: a second pass over the same set changes nothing.
func (s *categorizationService) ApplyCategoryRules(familyID uint, transactionIDs []uint) (int, error) {
	categories, err := s.activeCategories(familyID)
	if err != nil {
		return 0, err
	}

	q := s.db.Where("family_id = ? AND user_categorized = ?", familyID, false)
	if len(transactionIDs) > 0 {
		q = q.Where("id IN ?", transactionIDs)
	}
	var transactions []models.Transaction
	if err := q.Find(&transactions).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	applied := 0
	for i := range transactions {
		txn := &transactions[i]
		suggestion := s.CategorizeTransaction(txn, categories)
		if suggestion == nil || suggestion.Confidence < autoApplyThreshold {
			continue
		}
		if txn.SpendingCategoryID != nil && *txn.SpendingCategoryID == suggestion.CategoryID &&
			txn.CategoryConfidence == suggestion.Confidence {
			continue
		}

		// The guard is re-checked in the WHERE clause so a user pin that
		// races this pass still wins.
		res := s.db.Model(&models.Transaction{}).
			Where("id = ? AND user_categorized = ?", txn.ID, false).
			Updates(map[string]interface{}{
				"spending_category_id": suggestion.CategoryID,
				"category_confidence":  suggestion.Confidence,
			})
		if res.Error != nil {
			return applied, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected > 0 {
			applied++
		}
	}
	return applied, nil
}

// GenerateCategorySuggestions aggregates, over the family's uncategorized
// transactions, how many map to each category with confidence >= 0.5. A
// category is surfaced only when hit by at least two transactions, with
// reported confidence min(hits/10, 1.0).
func (s *categorizationService) GenerateCategorySuggestions(familyID uint) ([]CategoryFrequency, error) {
	categories, err := s.activeCategories(familyID)
	if err != nil {
		return nil, err
	}

	var transactions []models.Transaction
	err = s.db.
		Where("family_id = ? AND user_categorized = ? AND spending_category_id IS NULL", familyID, false).
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	hits := make(map[uint]int)
	names := make(map[uint]string)
	for i := range transactions {
		suggestion := s.CategorizeTransaction(&transactions[i], categories)
		if suggestion == nil || suggestion.Confidence < suggestionThreshold {
			continue
		}
		hits[suggestion.CategoryID]++
		names[suggestion.CategoryID] = suggestion.CategoryName
	}

	result := make([]CategoryFrequency, 0, len(hits))
	for categoryID, count := range hits {
		if count < suggestionMinHits {
			continue
		}
		confidence := float64(count) / 10
		if confidence > 1 {
			confidence = 1
		}
		result = append(result, CategoryFrequency{
			CategoryID:       categoryID,
			CategoryName:     names[categoryID],
			TransactionCount: count,
			Confidence:       confidence,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TransactionCount != result[j].TransactionCount {
			return result[i].TransactionCount > result[j].TransactionCount
		}
		return result[i].CategoryID < result[j].CategoryID
	})
	return result, nil
}

func (s *categorizationService) activeCategories(familyID uint) ([]models.SpendingCategory, error) {
	var categories []models.SpendingCategory
	err := s.db.Where("family_id = ? AND is_active = ?", familyID, true).Find(&categories).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// resolveCategory finds the first active category whose name contains the
// rule's target pattern, case-insensitively.
func resolveCategory(pattern string, categories []models.SpendingCategory) *models.SpendingCategory {
	for i := range categories {
		c := &categories[i]
		if !c.IsActive {
			continue
		}
		if strings.Contains(strings.ToLower(c.Name), pattern) {
			return c
		}
	}
	return nil
}
