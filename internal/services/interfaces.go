package services

import (
	"time"

	"github.com/shopspring/decimal"

	"famledger/internal/models"
	"famledger/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	RegisterFamily(familyName, email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	AttemptLogin(email, password string) (*models.User, error)
}

// CategoryServicer defines the contract for spending-category business logic.
type CategoryServicer interface {
	CreateCategory(familyID uint, name string) (*models.SpendingCategory, error)
	GetFamilyCategories(familyID uint, page pagination.PageRequest, activeOnly bool) (*pagination.PageResponse[models.SpendingCategory], error)
	ListActiveCategories(familyID uint) ([]models.SpendingCategory, error)
	GetCategoryByID(familyID, categoryID uint) (*models.SpendingCategory, error)
	UpdateCategory(familyID, categoryID uint, name string, isActive *bool) (*models.SpendingCategory, error)
	DeleteCategory(familyID, categoryID uint) error
}

// PaymentCapacity reports a payment's funding position.
type PaymentCapacity struct {
	PaymentID         uint            `json:"payment_id"`
	Amount            decimal.Decimal `json:"amount"`
	AttributedAmount  decimal.Decimal `json:"attributed_amount"`
	RemainingCapacity decimal.Decimal `json:"remaining_capacity"`
}

// PaymentServicer defines the contract for payment lifecycle logic.
type PaymentServicer interface {
	CreatePayment(familyID uint, payee string, amount decimal.Decimal, dueDate time.Time, categoryID *uint) (*models.Payment, error)
	GetFamilyPayments(familyID uint, page pagination.PageRequest, status *models.PaymentStatus) (*pagination.PageResponse[models.Payment], error)
	GetPaymentByID(familyID, paymentID uint) (*models.Payment, error)
	GetPaymentCapacity(familyID, paymentID uint) (*PaymentCapacity, error)
	UpdatePayment(familyID, paymentID uint, payee string, amount *decimal.Decimal, dueDate *time.Time, categoryID *uint) (*models.Payment, error)
	MarkPaid(familyID, paymentID uint) (*models.Payment, error)
	CancelPayment(familyID, paymentID uint) error
}

// IncomeServicer defines the contract for income-event lifecycle logic.
type IncomeServicer interface {
	CreateIncomeEvent(familyID uint, source string, amount decimal.Decimal, scheduledDate time.Time) (*models.IncomeEvent, error)
	GetFamilyIncomeEvents(familyID uint, page pagination.PageRequest, status *models.IncomeEventStatus) (*pagination.PageResponse[models.IncomeEvent], error)
	GetIncomeEventByID(familyID, incomeEventID uint) (*models.IncomeEvent, error)
	UpdateIncomeEvent(familyID, incomeEventID uint, source string, amount *decimal.Decimal, scheduledDate *time.Time) (*models.IncomeEvent, error)
	MarkReceived(familyID, incomeEventID uint) (*models.IncomeEvent, error)
	CancelIncomeEvent(familyID, incomeEventID uint) error
}

// AttributionAudit records the before/after state of an attribution update.
type AttributionAudit struct {
	AttributionID  uint                       `json:"attribution_id"`
	PreviousAmount decimal.Decimal            `json:"previous_amount"`
	NewAmount      decimal.Decimal            `json:"new_amount"`
	PreviousType   models.AttributionType     `json:"previous_type"`
	NewType        models.AttributionType     `json:"new_type"`
	Attribution    *models.PaymentAttribution `json:"attribution"`
}

// AttributionServicer defines the contract for the income-to-payment
// attribution ledger. Every mutating call validates capacity and writes
// within one database transaction.
type AttributionServicer interface {
	CreateAttribution(familyID, paymentID, incomeEventID uint, amount decimal.Decimal, attrType models.AttributionType, createdBy string) (*models.PaymentAttribution, error)
	UpdateAttribution(familyID, attributionID uint, newAmount *decimal.Decimal, newType *models.AttributionType) (*AttributionAudit, error)
	DeleteAttribution(familyID, attributionID uint) error
	DeleteIncomeAttribution(familyID, incomeEventID, attributionID uint) error
	AutoDistribute(familyID, incomeEventID uint, paymentIDs []uint, createdBy string) ([]models.PaymentAttribution, error)
}

// MatchProposal is an advisory link between an observed transaction and a
// scheduled payment. Confidence is in [0,1]; Reason is human-readable and
// carries no numeric contract.
type MatchProposal struct {
	TransactionID uint    `json:"transaction_id"`
	PaymentID     uint    `json:"payment_id"`
	Confidence    float64 `json:"confidence"`
	Reason        string  `json:"reason"`
}

// MatchingServicer defines the contract for the transaction-to-payment
// matching engine. Pure: it never mutates inputs or persisted state.
type MatchingServicer interface {
	MatchTransactionsToPayments(transactions []models.Transaction, payments []models.Payment, amountTolerance decimal.Decimal, dateToleranceDays int) ([]MatchProposal, error)
}

// CategorySuggestion is the outcome of categorizing one transaction.
type CategorySuggestion struct {
	CategoryID   uint    `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Confidence   float64 `json:"confidence"`
	Source       string  `json:"source"` // "rule" or "provider"
}

// CategoryFrequency aggregates how many transactions in a set map to a
// category; its Confidence is a frequency heuristic independent of the
// per-transaction rule confidence.
type CategoryFrequency struct {
	CategoryID       uint    `json:"category_id"`
	CategoryName     string  `json:"category_name"`
	TransactionCount int     `json:"transaction_count"`
	Confidence       float64 `json:"confidence"`
}

// CategorizationServicer defines the contract for the rule-based
// categorization engine.
type CategorizationServicer interface {
	CategorizeTransaction(txn *models.Transaction, categories []models.SpendingCategory) *CategorySuggestion
	ApplyCategoryRules(familyID uint, transactionIDs []uint) (int, error)
	GenerateCategorySuggestions(familyID uint) ([]CategoryFrequency, error)
}

// TransactionFeedRecord is one raw record from bank sync.
type TransactionFeedRecord struct {
	ExternalID       string          `json:"external_id"`
	BankAccountID    uint            `json:"bank_account_id"`
	Amount           decimal.Decimal `json:"amount"`
	Date             time.Time       `json:"date"`
	Description      string          `json:"description"`
	MerchantName     string          `json:"merchant_name"`
	Pending          bool            `json:"pending"`
	ProviderCategory string          `json:"provider_category"`
}

// SyncResult summarizes one ingestion batch.
type SyncResult struct {
	Created         int `json:"created"`
	Skipped         int `json:"skipped"`
	AutoCategorized int `json:"auto_categorized"`
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate      *time.Time
	ToDate        *time.Time
	CategoryID    *uint
	BankAccountID *uint
	Uncategorized bool
	Unlinked      bool
}

// TransactionServicer defines the contract for transaction ingestion and
// user-facing transaction operations.
type TransactionServicer interface {
	IngestTransactions(familyID uint, records []TransactionFeedRecord) (*SyncResult, error)
	GetFamilyTransactions(familyID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(familyID, transactionID uint) (*models.Transaction, error)
	SetUserCategory(familyID, transactionID, categoryID uint) (*models.Transaction, error)
	LinkToPayment(familyID, transactionID, paymentID uint) (*models.Transaction, error)
	ProposeMatches(familyID uint, amountTolerance decimal.Decimal, dateToleranceDays int) ([]MatchProposal, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}
