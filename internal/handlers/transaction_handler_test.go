package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/services"
)

// --- mock transaction service ---

type mockTransactionService struct {
	ingestTransactionsFn func(familyID uint, records []services.TransactionFeedRecord) (*services.SyncResult, error)
	setUserCategoryFn    func(familyID, transactionID, categoryID uint) (*models.Transaction, error)
	linkToPaymentFn      func(familyID, transactionID, paymentID uint) (*models.Transaction, error)
	proposeMatchesFn     func(familyID uint, amountTolerance decimal.Decimal, dateToleranceDays int) ([]services.MatchProposal, error)
}

func (m *mockTransactionService) IngestTransactions(familyID uint, records []services.TransactionFeedRecord) (*services.SyncResult, error) {
	if m.ingestTransactionsFn != nil {
		return m.ingestTransactionsFn(familyID, records)
	}
	return &services.SyncResult{}, nil
}

func (m *mockTransactionService) GetFamilyTransactions(_ uint, page pagination.PageRequest, _ services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()
	resp := pagination.NewPageResponse([]models.Transaction{}, page.Page, page.PageSize, 0)
	return &resp, nil
}

func (m *mockTransactionService) GetTransactionByID(_, _ uint) (*models.Transaction, error) {
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) SetUserCategory(familyID, transactionID, categoryID uint) (*models.Transaction, error) {
	if m.setUserCategoryFn != nil {
		return m.setUserCategoryFn(familyID, transactionID, categoryID)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) LinkToPayment(familyID, transactionID, paymentID uint) (*models.Transaction, error) {
	if m.linkToPaymentFn != nil {
		return m.linkToPaymentFn(familyID, transactionID, paymentID)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) ProposeMatches(familyID uint, amountTolerance decimal.Decimal, dateToleranceDays int) ([]services.MatchProposal, error) {
	if m.proposeMatchesFn != nil {
		return m.proposeMatchesFn(familyID, amountTolerance, dateToleranceDays)
	}
	return nil, nil
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

type mockCategorizationService struct {
	applyCategoryRulesFn func(familyID uint, transactionIDs []uint) (int, error)
}

func (m *mockCategorizationService) CategorizeTransaction(_ *models.Transaction, _ []models.SpendingCategory) *services.CategorySuggestion {
	return nil
}

func (m *mockCategorizationService) ApplyCategoryRules(familyID uint, transactionIDs []uint) (int, error) {
	if m.applyCategoryRulesFn != nil {
		return m.applyCategoryRulesFn(familyID, transactionIDs)
	}
	return 0, nil
}

func (m *mockCategorizationService) GenerateCategorySuggestions(_ uint) ([]services.CategoryFrequency, error) {
	return nil, nil
}

var _ services.CategorizationServicer = (*mockCategorizationService)(nil)

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectAuth(1, 1))
	auth.POST("/transactions/sync", handler.SyncTransactions)
	auth.GET("/transactions", handler.GetTransactions)
	auth.GET("/transactions/:id", handler.GetTransaction)
	auth.PUT("/transactions/:id/category", handler.SetCategory)
	auth.POST("/transactions/:id/link", handler.LinkPayment)
	auth.POST("/transactions/match", handler.ProposeMatches)
	auth.POST("/transactions/apply-category-rules", handler.ApplyCategoryRules)
	auth.GET("/transactions/category-suggestions", handler.GetCategorySuggestions)
	return r
}

func newTransactionHandler(txnSvc services.TransactionServicer, catSvc services.CategorizationServicer) *TransactionHandler {
	return NewTransactionHandler(txnSvc, catSvc, &mockAuditService{})
}

func TestTransactionHandler_SyncTransactions(t *testing.T) {
	t.Run("returns 200 with the sync result", func(t *testing.T) {
		svc := &mockTransactionService{
			ingestTransactionsFn: func(familyID uint, records []services.TransactionFeedRecord) (*services.SyncResult, error) {
				if familyID != 1 {
					t.Errorf("expected family 1, got %d", familyID)
				}
				if len(records) != 1 {
					t.Errorf("expected 1 record, got %d", len(records))
				}
				return &services.SyncResult{Created: 1, AutoCategorized: 1}, nil
			},
		}
		handler := newTransactionHandler(svc, &mockCategorizationService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions/sync",
			`{"transactions":[{"external_id":"ext-1","bank_account_id":2,"amount":"-54.20","date":"2025-03-15T00:00:00Z","description":"grocery market"}]}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		syncResult := result["result"].(map[string]interface{})
		if syncResult["created"].(float64) != 1 {
			t.Errorf("expected 1 created, got %v", syncResult["created"])
		}
	})

	t.Run("returns 400 on empty batch", func(t *testing.T) {
		handler := newTransactionHandler(&mockTransactionService{}, &mockCategorizationService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions/sync", `{"transactions":[]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_SetCategory(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		svc := &mockTransactionService{
			setUserCategoryFn: func(_, transactionID, categoryID uint) (*models.Transaction, error) {
				txn := &models.Transaction{
					SpendingCategoryID: &categoryID,
					CategoryConfidence: 1,
					UserCategorized:    true,
				}
				txn.ID = transactionID
				return txn, nil
			},
		}
		handler := newTransactionHandler(svc, &mockCategorizationService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "PUT", "/transactions/4/category", `{"category_id":9}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		txn := result["transaction"].(map[string]interface{})
		if txn["user_categorized"] != true {
			t.Errorf("expected user_categorized true, got %v", txn["user_categorized"])
		}
	})

	t.Run("returns 404 on unknown category", func(t *testing.T) {
		svc := &mockTransactionService{
			setUserCategoryFn: func(_, _, _ uint) (*models.Transaction, error) {
				return nil, apperrors.ErrCategoryNotFound
			},
		}
		handler := newTransactionHandler(svc, &mockCategorizationService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "PUT", "/transactions/4/category", `{"category_id":999}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_LinkPayment(t *testing.T) {
	t.Run("returns 409 when already linked elsewhere", func(t *testing.T) {
		svc := &mockTransactionService{
			linkToPaymentFn: func(_, _, _ uint) (*models.Transaction, error) {
				return nil, apperrors.ErrTransactionAlreadyLinked
			},
		}
		handler := newTransactionHandler(svc, &mockCategorizationService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions/4/link", `{"payment_id":3}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_ALREADY_LINKED")
	})
}

func TestTransactionHandler_ProposeMatches(t *testing.T) {
	t.Run("passes tolerances from query", func(t *testing.T) {
		svc := &mockTransactionService{
			proposeMatchesFn: func(_ uint, amountTolerance decimal.Decimal, dateToleranceDays int) ([]services.MatchProposal, error) {
				if !amountTolerance.Equal(decimal.RequireFromString("0.05")) {
					t.Errorf("expected tolerance 0.05, got %s", amountTolerance)
				}
				if dateToleranceDays != 5 {
					t.Errorf("expected 5 days, got %d", dateToleranceDays)
				}
				return []services.MatchProposal{{TransactionID: 4, PaymentID: 3, Confidence: 1}}, nil
			},
		}
		handler := newTransactionHandler(svc, &mockCategorizationService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions/match?amount_tolerance=0.05&date_tolerance_days=5", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		proposals := result["proposals"].([]interface{})
		if len(proposals) != 1 {
			t.Fatalf("expected 1 proposal, got %d", len(proposals))
		}
	})

	t.Run("returns 400 when engine rejects tolerances", func(t *testing.T) {
		svc := &mockTransactionService{
			proposeMatchesFn: func(_ uint, _ decimal.Decimal, _ int) ([]services.MatchProposal, error) {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "date tolerance must not be negative")
			},
		}
		handler := newTransactionHandler(svc, &mockCategorizationService{})
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions/match?date_tolerance_days=-1", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_ApplyCategoryRules(t *testing.T) {
	t.Run("returns the applied count", func(t *testing.T) {
		svc := &mockCategorizationService{
			applyCategoryRulesFn: func(_ uint, transactionIDs []uint) (int, error) {
				if len(transactionIDs) != 0 {
					t.Errorf("expected empty scope, got %v", transactionIDs)
				}
				return 3, nil
			},
		}
		handler := newTransactionHandler(&mockTransactionService{}, svc)
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions/apply-category-rules", `{}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["applied"].(float64) != 3 {
			t.Errorf("expected 3 applied, got %v", result["applied"])
		}
	})
}
