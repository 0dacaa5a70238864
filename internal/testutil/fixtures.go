package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"famledger/internal/models"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Amount parses a decimal amount string, failing the test on bad input.
func Amount(t *testing.T, s string) decimal.Decimal {
	t.Helper()

	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid amount %q: %v", s, err)
	}
	return d
}

// CreateTestFamily creates a family with a unique name.
func CreateTestFamily(t *testing.T, db *gorm.DB) *models.Family {
	t.Helper()

	family := &models.Family{Name: fmt.Sprintf("Test Family %d", nextID())}
	if err := db.Create(family).Error; err != nil {
		t.Fatalf("failed to create test family: %v", err)
	}
	return family
}

// CreateTestUser creates a user in the given family with a hashed password
// and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB, familyID uint) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		FamilyID: familyID,
		Email:    fmt.Sprintf("user%d@test.com", nextID()),
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestBankAccount creates an active bank account for the family.
func CreateTestBankAccount(t *testing.T, db *gorm.DB, familyID uint) *models.BankAccount {
	t.Helper()

	account := &models.BankAccount{
		FamilyID:    familyID,
		Name:        fmt.Sprintf("Test Account %d", nextID()),
		Institution: "Test Bank",
		Mask:        "1234",
		IsActive:    true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test bank account: %v", err)
	}
	return account
}

// CreateTestCategory creates an active spending category with the given name.
func CreateTestCategory(t *testing.T, db *gorm.DB, familyID uint, name string) *models.SpendingCategory {
	t.Helper()

	category := &models.SpendingCategory{
		FamilyID: familyID,
		Name:     name,
		IsActive: true,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestPayment creates a scheduled payment with the given amount.
func CreateTestPayment(t *testing.T, db *gorm.DB, familyID uint, payee, amount string, dueDate time.Time) *models.Payment {
	t.Helper()

	payment := &models.Payment{
		FamilyID:         familyID,
		Payee:            payee,
		Amount:           Amount(t, amount),
		DueDate:          dueDate,
		Status:           models.PaymentStatusScheduled,
		AttributedAmount: decimal.Zero,
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("failed to create test payment: %v", err)
	}
	return payment
}

// CreateTestIncomeEvent creates a scheduled income event with nothing allocated.
func CreateTestIncomeEvent(t *testing.T, db *gorm.DB, familyID uint, amount string, scheduledDate time.Time) *models.IncomeEvent {
	t.Helper()

	amt := Amount(t, amount)
	income := &models.IncomeEvent{
		FamilyID:        familyID,
		Source:          fmt.Sprintf("Test Income %d", nextID()),
		Amount:          amt,
		ScheduledDate:   scheduledDate,
		Status:          models.IncomeEventStatusScheduled,
		AllocatedAmount: decimal.Zero,
		RemainingAmount: amt,
	}
	if err := db.Create(income).Error; err != nil {
		t.Fatalf("failed to create test income event: %v", err)
	}
	return income
}

// CreateTestTransaction creates a bank transaction with the given fields.
func CreateTestTransaction(t *testing.T, db *gorm.DB, familyID, accountID uint, description, merchant, amount string, date time.Time) *models.Transaction {
	t.Helper()

	txn := &models.Transaction{
		FamilyID:      familyID,
		BankAccountID: accountID,
		ExternalID:    fmt.Sprintf("ext-%d", nextID()),
		Amount:        Amount(t, amount),
		Date:          date,
		Description:   description,
		MerchantName:  merchant,
	}
	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return txn
}
