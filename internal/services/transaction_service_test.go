package services

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/rules"
	"famledger/internal/testutil"
)

func newTransactionService(db *gorm.DB) TransactionServicer {
	return NewTransactionService(db, NewCategorizationService(db, rules.Default()), NewMatchingService())
}

func feedRecord(t *testing.T, accountID uint, externalID, description, merchant, amount string, date time.Time) TransactionFeedRecord {
	t.Helper()
	return TransactionFeedRecord{
		ExternalID:    externalID,
		BankAccountID: accountID,
		Amount:        testutil.Amount(t, amount),
		Date:          date,
		Description:   description,
		MerchantName:  merchant,
	}
}

func TestIngestTransactions(t *testing.T) {
	day := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("creates_and_deduplicates", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTransactionService(db)
		family := testutil.CreateTestFamily(t, db)
		account := testutil.CreateTestBankAccount(t, db, family.ID)

		records := []TransactionFeedRecord{
			feedRecord(t, account.ID, "ext-1", "atm withdrawal", "", "-100.00", day),
			feedRecord(t, account.ID, "ext-2", "atm withdrawal", "", "-40.00", day),
		}
		result, err := svc.IngestTransactions(family.ID, records)
		testutil.AssertNoError(t, err)
		if result.Created != 2 || result.Skipped != 0 {
			t.Fatalf("expected 2 created, got %+v", result)
		}

		// Replaying the same batch skips everything.
		result, err = svc.IngestTransactions(family.ID, records)
		testutil.AssertNoError(t, err)
		if result.Created != 0 || result.Skipped != 2 {
			t.Fatalf("expected 2 skipped on replay, got %+v", result)
		}
	})

	t.Run("empty_external_id_never_deduplicates", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTransactionService(db)
		family := testutil.CreateTestFamily(t, db)
		account := testutil.CreateTestBankAccount(t, db, family.ID)

		records := []TransactionFeedRecord{
			feedRecord(t, account.ID, "", "manual entry", "", "-10.00", day),
		}
		for i := 0; i < 2; i++ {
			result, err := svc.IngestTransactions(family.ID, records)
			testutil.AssertNoError(t, err)
			if result.Created != 1 {
				t.Fatalf("expected 1 created on pass %d, got %+v", i, result)
			}
		}
	})

	t.Run("auto_categorizes_at_threshold", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTransactionService(db)
		family := testutil.CreateTestFamily(t, db)
		account := testutil.CreateTestBankAccount(t, db, family.ID)
		groceries := testutil.CreateTestCategory(t, db, family.ID, "Groceries")

		records := []TransactionFeedRecord{
			feedRecord(t, account.ID, "ext-strong", "grocery market food supermarket", "", "-54.20", day),
			feedRecord(t, account.ID, "ext-weak", "grocery market food", "", "-12.80", day),
		}
		result, err := svc.IngestTransactions(family.ID, records)
		testutil.AssertNoError(t, err)
		if result.Created != 2 || result.AutoCategorized != 1 {
			t.Fatalf("expected 2 created 1 auto-categorized, got %+v", result)
		}

		var strong models.Transaction
		testutil.AssertNoError(t, db.Where("external_id = ?", "ext-strong").First(&strong).Error)
		if strong.SpendingCategoryID == nil || *strong.SpendingCategoryID != groceries.ID {
			t.Errorf("expected auto-applied category, got %v", strong.SpendingCategoryID)
		}
		assertConfidence(t, 0.9, strong.CategoryConfidence)

		var weak models.Transaction
		testutil.AssertNoError(t, db.Where("external_id = ?", "ext-weak").First(&weak).Error)
		if weak.SpendingCategoryID != nil {
			t.Error("below-threshold suggestion must not set the category")
		}
		assertConfidence(t, 0.675, weak.CategoryConfidence)
	})

	t.Run("foreign_bank_account_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTransactionService(db)
		family := testutil.CreateTestFamily(t, db)
		other := testutil.CreateTestFamily(t, db)
		foreign := testutil.CreateTestBankAccount(t, db, other.ID)

		_, err := svc.IngestTransactions(family.ID, []TransactionFeedRecord{
			feedRecord(t, foreign.ID, "ext-1", "purchase", "", "-10.00", day),
		})
		testutil.AssertAppError(t, err, "BANK_ACCOUNT_NOT_FOUND")
	})

	t.Run("empty_batch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTransactionService(db)
		family := testutil.CreateTestFamily(t, db)

		result, err := svc.IngestTransactions(family.ID, nil)
		testutil.AssertNoError(t, err)
		if result.Created != 0 || result.Skipped != 0 {
			t.Fatalf("expected empty result, got %+v", result)
		}
	})
}

func TestGetFamilyTransactions(t *testing.T) {
	day := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTransactionService(db)
	family := testutil.CreateTestFamily(t, db)
	account := testutil.CreateTestBankAccount(t, db, family.ID)
	category := testutil.CreateTestCategory(t, db, family.ID, "Groceries")

	categorized := testutil.CreateTestTransaction(t, db, family.ID, account.ID, "weekly shop", "", "-54.20", day)
	testutil.AssertNoError(t, db.Model(categorized).Update("spending_category_id", category.ID).Error)
	testutil.CreateTestTransaction(t, db, family.ID, account.ID, "atm withdrawal", "", "-100.00", day.AddDate(0, 0, 5))

	t.Run("category_filter", func(t *testing.T) {
		res, err := svc.GetFamilyTransactions(family.ID, pagination.PageRequest{}, TransactionFilter{CategoryID: &category.ID})
		testutil.AssertNoError(t, err)
		if res.TotalItems != 1 {
			t.Fatalf("expected 1 transaction, got %d", res.TotalItems)
		}
	})

	t.Run("uncategorized_filter", func(t *testing.T) {
		res, err := svc.GetFamilyTransactions(family.ID, pagination.PageRequest{}, TransactionFilter{Uncategorized: true})
		testutil.AssertNoError(t, err)
		if res.TotalItems != 1 {
			t.Fatalf("expected 1 uncategorized transaction, got %d", res.TotalItems)
		}
	})

	t.Run("date_window", func(t *testing.T) {
		to := day.AddDate(0, 0, 1)
		res, err := svc.GetFamilyTransactions(family.ID, pagination.PageRequest{}, TransactionFilter{ToDate: &to})
		testutil.AssertNoError(t, err)
		if res.TotalItems != 1 {
			t.Fatalf("expected 1 transaction in window, got %d", res.TotalItems)
		}
	})
}

func TestSetUserCategory(t *testing.T) {
	day := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTransactionService(db)
	family := testutil.CreateTestFamily(t, db)
	account := testutil.CreateTestBankAccount(t, db, family.ID)
	category := testutil.CreateTestCategory(t, db, family.ID, "Groceries")
	txn := testutil.CreateTestTransaction(t, db, family.ID, account.ID, "weekly shop", "", "-54.20", day)

	t.Run("pins_the_category", func(t *testing.T) {
		_, err := svc.SetUserCategory(family.ID, txn.ID, category.ID)
		testutil.AssertNoError(t, err)

		got := reloadTransaction(t, db, txn.ID)
		if got.SpendingCategoryID == nil || *got.SpendingCategoryID != category.ID {
			t.Fatalf("expected category %d, got %v", category.ID, got.SpendingCategoryID)
		}
		if !got.UserCategorized {
			t.Error("expected user_categorized to be set")
		}
		assertConfidence(t, 1.0, got.CategoryConfidence)
	})

	t.Run("inactive_category_rejected", func(t *testing.T) {
		inactive := testutil.CreateTestCategory(t, db, family.ID, "Retired")
		testutil.AssertNoError(t, db.Model(inactive).Update("is_active", false).Error)

		_, err := svc.SetUserCategory(family.ID, txn.ID, inactive.ID)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("unknown_transaction", func(t *testing.T) {
		_, err := svc.SetUserCategory(family.ID, 99999, category.ID)
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})
}

func TestLinkToPayment(t *testing.T) {
	day := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTransactionService(db)
	family := testutil.CreateTestFamily(t, db)
	account := testutil.CreateTestBankAccount(t, db, family.ID)
	payment := testutil.CreateTestPayment(t, db, family.ID, "Acme Power", "120.00", day)
	otherPayment := testutil.CreateTestPayment(t, db, family.ID, "City Water", "45.50", day)
	txn := testutil.CreateTestTransaction(t, db, family.ID, account.ID, "acme power bill", "Acme Power", "-120.00", day)

	t.Run("links_and_marks_paid", func(t *testing.T) {
		_, err := svc.LinkToPayment(family.ID, txn.ID, payment.ID)
		testutil.AssertNoError(t, err)

		got := reloadTransaction(t, db, txn.ID)
		if got.PaymentID == nil || *got.PaymentID != payment.ID {
			t.Fatalf("expected link to payment %d, got %v", payment.ID, got.PaymentID)
		}

		var reloaded models.Payment
		testutil.AssertNoError(t, db.First(&reloaded, payment.ID).Error)
		if reloaded.Status != models.PaymentStatusPaid {
			t.Errorf("expected payment marked paid, got %s", reloaded.Status)
		}
	})

	t.Run("same_payment_is_idempotent", func(t *testing.T) {
		_, err := svc.LinkToPayment(family.ID, txn.ID, payment.ID)
		testutil.AssertNoError(t, err)
	})

	t.Run("different_payment_conflicts", func(t *testing.T) {
		_, err := svc.LinkToPayment(family.ID, txn.ID, otherPayment.ID)
		testutil.AssertAppError(t, err, "TRANSACTION_ALREADY_LINKED")
	})
}

func TestProposeMatches(t *testing.T) {
	day := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTransactionService(db)
	family := testutil.CreateTestFamily(t, db)
	account := testutil.CreateTestBankAccount(t, db, family.ID)
	payment := testutil.CreateTestPayment(t, db, family.ID, "Acme Power", "120.00", day)

	matchable := testutil.CreateTestTransaction(t, db, family.ID, account.ID, "acme power bill", "Acme Power", "-120.00", day)
	pending := testutil.CreateTestTransaction(t, db, family.ID, account.ID, "acme power bill", "Acme Power", "-120.00", day)
	testutil.AssertNoError(t, db.Model(pending).Update("pending", true).Error)

	proposals, err := svc.ProposeMatches(family.ID, DefaultAmountTolerance, DefaultDateToleranceDays)
	testutil.AssertNoError(t, err)

	if len(proposals) != 1 {
		t.Fatalf("expected 1 proposal, got %d", len(proposals))
	}
	if proposals[0].TransactionID != matchable.ID || proposals[0].PaymentID != payment.ID {
		t.Errorf("unexpected proposal %+v", proposals[0])
	}
	assertConfidence(t, 1.0, proposals[0].Confidence)

	// Proposing is read-only.
	got := reloadTransaction(t, db, matchable.ID)
	if got.PaymentID != nil {
		t.Error("proposing a match must not link the transaction")
	}
}
