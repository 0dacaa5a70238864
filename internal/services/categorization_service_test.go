package services

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"famledger/internal/models"
	"famledger/internal/rules"
	"famledger/internal/testutil"
)

func reloadTransaction(t *testing.T, db *gorm.DB, id uint) *models.Transaction {
	t.Helper()
	var txn models.Transaction
	if err := db.First(&txn, id).Error; err != nil {
		t.Fatalf("failed to reload transaction: %v", err)
	}
	return &txn
}

func TestCategorizeTransaction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategorizationService(db, rules.Default())
	family := testutil.CreateTestFamily(t, db)
	groceries := testutil.CreateTestCategory(t, db, family.ID, "Groceries")
	testutil.CreateTestCategory(t, db, family.ID, "Dining Out")

	categories := func() []models.SpendingCategory {
		var cats []models.SpendingCategory
		if err := db.Where("family_id = ?", family.ID).Find(&cats).Error; err != nil {
			t.Fatalf("failed to load categories: %v", err)
		}
		return cats
	}

	t.Run("full_keyword_match_scores_full_weight", func(t *testing.T) {
		txn := &models.Transaction{Description: "grocery market food supermarket"}
		suggestion := svc.CategorizeTransaction(txn, categories())
		if suggestion == nil {
			t.Fatal("expected a suggestion")
		}
		if suggestion.CategoryID != groceries.ID {
			t.Errorf("expected category %d, got %d", groceries.ID, suggestion.CategoryID)
		}
		assertConfidence(t, 0.9, suggestion.Confidence)
		if suggestion.Source != "rule" {
			t.Errorf("expected rule source, got %q", suggestion.Source)
		}
	})

	t.Run("partial_keyword_match_scales_score", func(t *testing.T) {
		// Three of four keywords at weight 0.9 scores 0.675.
		txn := &models.Transaction{Description: "grocery market food"}
		suggestion := svc.CategorizeTransaction(txn, categories())
		if suggestion == nil {
			t.Fatal("expected a suggestion")
		}
		assertConfidence(t, 0.675, suggestion.Confidence)
	})

	t.Run("merchant_name_included_in_match_text", func(t *testing.T) {
		txn := &models.Transaction{Description: "card purchase", MerchantName: "Corner Supermarket"}
		suggestion := svc.CategorizeTransaction(txn, categories())
		if suggestion == nil {
			t.Fatal("expected a suggestion")
		}
		if suggestion.CategoryID != groceries.ID {
			t.Errorf("expected groceries, got %q", suggestion.CategoryName)
		}
	})

	t.Run("user_categorized_returns_nil", func(t *testing.T) {
		txn := &models.Transaction{Description: "grocery market food supermarket", UserCategorized: true}
		if s := svc.CategorizeTransaction(txn, categories()); s != nil {
			t.Fatalf("expected nil, got %+v", s)
		}
	})

	t.Run("no_match_returns_nil", func(t *testing.T) {
		txn := &models.Transaction{Description: "wire transfer reference 998877"}
		if s := svc.CategorizeTransaction(txn, categories()); s != nil {
			t.Fatalf("expected nil, got %+v", s)
		}
	})

	t.Run("rule_without_resolvable_category_is_skipped", func(t *testing.T) {
		// No health category exists for this family.
		txn := &models.Transaction{Description: "pharmacy doctor dental clinic hospital"}
		if s := svc.CategorizeTransaction(txn, categories()); s != nil {
			t.Fatalf("expected nil, got %+v", s)
		}
	})

	t.Run("provider_fallback_at_fixed_confidence", func(t *testing.T) {
		txn := &models.Transaction{Description: "pos purchase 443", ProviderCategory: "Food and Drink"}
		suggestion := svc.CategorizeTransaction(txn, categories())
		if suggestion == nil {
			t.Fatal("expected a suggestion")
		}
		if suggestion.CategoryName != "Dining Out" {
			t.Errorf("expected dining category, got %q", suggestion.CategoryName)
		}
		assertConfidence(t, 0.6, suggestion.Confidence)
		if suggestion.Source != "provider" {
			t.Errorf("expected provider source, got %q", suggestion.Source)
		}
	})

	t.Run("rule_match_beats_provider_fallback", func(t *testing.T) {
		txn := &models.Transaction{Description: "grocery market food supermarket", ProviderCategory: "Food and Drink"}
		suggestion := svc.CategorizeTransaction(txn, categories())
		if suggestion == nil || suggestion.Source != "rule" {
			t.Fatalf("expected rule suggestion, got %+v", suggestion)
		}
	})
}

func TestApplyCategoryRules(t *testing.T) {
	day := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("writes_at_or_above_threshold_only", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategorizationService(db, rules.Default())
		family := testutil.CreateTestFamily(t, db)
		account := testutil.CreateTestBankAccount(t, db, family.ID)
		groceries := testutil.CreateTestCategory(t, db, family.ID, "Groceries")

		strong := testutil.CreateTestTransaction(t, db, family.ID, account.ID, "grocery market food supermarket", "", "-54.20", day)
		// Scores 0.675, just below the write threshold.
		weak := testutil.CreateTestTransaction(t, db, family.ID, account.ID, "grocery market food", "", "-12.80", day)

		applied, err := svc.ApplyCategoryRules(family.ID, nil)
		testutil.AssertNoError(t, err)
		if applied != 1 {
			t.Fatalf("expected 1 applied, got %d", applied)
		}

		got := reloadTransaction(t, db, strong.ID)
		if got.SpendingCategoryID == nil || *got.SpendingCategoryID != groceries.ID {
			t.Errorf("expected category %d on strong match, got %v", groceries.ID, got.SpendingCategoryID)
		}
		assertConfidence(t, 0.9, got.CategoryConfidence)

		got = reloadTransaction(t, db, weak.ID)
		if got.SpendingCategoryID != nil {
			t.Errorf("below-threshold match must not write, got category %d", *got.SpendingCategoryID)
		}
		if got.CategoryConfidence != 0 {
			t.Errorf("below-threshold match must not record confidence, got %f", got.CategoryConfidence)
		}
	})

	t.Run("never_overwrites_user_categorization", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategorizationService(db, rules.Default())
		family := testutil.CreateTestFamily(t, db)
		account := testutil.CreateTestBankAccount(t, db, family.ID)
		testutil.CreateTestCategory(t, db, family.ID, "Groceries")
		pinned := testutil.CreateTestCategory(t, db, family.ID, "Household")

		txn := testutil.CreateTestTransaction(t, db, family.ID, account.ID, "grocery market food supermarket", "", "-54.20", day)
		err := db.Model(txn).Updates(map[string]interface{}{
			"spending_category_id": pinned.ID,
			"category_confidence":  1.0,
			"user_categorized":     true,
		}).Error
		if err != nil {
			t.Fatalf("failed to pin category: %v", err)
		}

		applied, err := svc.ApplyCategoryRules(family.ID, nil)
		testutil.AssertNoError(t, err)
		if applied != 0 {
			t.Fatalf("expected 0 applied, got %d", applied)
		}

		got := reloadTransaction(t, db, txn.ID)
		if got.SpendingCategoryID == nil || *got.SpendingCategoryID != pinned.ID {
			t.Errorf("user category was overwritten: %v", got.SpendingCategoryID)
		}
	})

	t.Run("idempotent_second_pass", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategorizationService(db, rules.Default())
		family := testutil.CreateTestFamily(t, db)
		account := testutil.CreateTestBankAccount(t, db, family.ID)
		testutil.CreateTestCategory(t, db, family.ID, "Groceries")
		testutil.CreateTestTransaction(t, db, family.ID, account.ID, "grocery market food supermarket", "", "-54.20", day)

		applied, err := svc.ApplyCategoryRules(family.ID, nil)
		testutil.AssertNoError(t, err)
		if applied != 1 {
			t.Fatalf("expected 1 applied on first pass, got %d", applied)
		}

		applied, err = svc.ApplyCategoryRules(family.ID, nil)
		testutil.AssertNoError(t, err)
		if applied != 0 {
			t.Fatalf("expected 0 applied on second pass, got %d", applied)
		}
	})

	t.Run("scopes_to_requested_transactions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategorizationService(db, rules.Default())
		family := testutil.CreateTestFamily(t, db)
		account := testutil.CreateTestBankAccount(t, db, family.ID)
		testutil.CreateTestCategory(t, db, family.ID, "Groceries")

		wanted := testutil.CreateTestTransaction(t, db, family.ID, account.ID, "grocery market food supermarket", "", "-54.20", day)
		other := testutil.CreateTestTransaction(t, db, family.ID, account.ID, "grocery market food supermarket", "", "-33.10", day)

		applied, err := svc.ApplyCategoryRules(family.ID, []uint{wanted.ID})
		testutil.AssertNoError(t, err)
		if applied != 1 {
			t.Fatalf("expected 1 applied, got %d", applied)
		}
		if got := reloadTransaction(t, db, other.ID); got.SpendingCategoryID != nil {
			t.Errorf("out-of-scope transaction was categorized")
		}
	})
}

func TestGenerateCategorySuggestions(t *testing.T) {
	day := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategorizationService(db, rules.Default())
	family := testutil.CreateTestFamily(t, db)
	account := testutil.CreateTestBankAccount(t, db, family.ID)
	groceries := testutil.CreateTestCategory(t, db, family.ID, "Groceries")
	testutil.CreateTestCategory(t, db, family.ID, "Dining Out")

	// Three grocery hits above the counting threshold.
	for i := 0; i < 3; i++ {
		testutil.CreateTestTransaction(t, db, family.ID, account.ID, "grocery market food supermarket", "", "-20.00", day.AddDate(0, 0, i))
	}
	// A single dining hit stays below the minimum.
	testutil.CreateTestTransaction(t, db, family.ID, account.ID, "pizza restaurant cafe coffee burger", "", "-18.00", day)
	// Noise that matches nothing.
	testutil.CreateTestTransaction(t, db, family.ID, account.ID, "atm withdrawal", "", "-100.00", day)

	suggestions, err := svc.GenerateCategorySuggestions(family.ID)
	testutil.AssertNoError(t, err)

	if len(suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(suggestions))
	}
	s := suggestions[0]
	if s.CategoryID != groceries.ID {
		t.Errorf("expected groceries %d, got %d", groceries.ID, s.CategoryID)
	}
	if s.TransactionCount != 3 {
		t.Errorf("expected 3 transactions, got %d", s.TransactionCount)
	}
	assertConfidence(t, 0.3, s.Confidence)
}
