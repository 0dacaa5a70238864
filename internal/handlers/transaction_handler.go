package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "famledger/internal/errors"
	"famledger/internal/pagination"
	"famledger/internal/services"
)

// TransactionHandler handles transaction ingestion, listing, categorization,
// and payment matching requests.
type TransactionHandler struct {
	transactionService    services.TransactionServicer
	categorizationService services.CategorizationServicer
	auditService          services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(
	transactionService services.TransactionServicer,
	categorizationService services.CategorizationServicer,
	auditService services.AuditServicer,
) *TransactionHandler {
	return &TransactionHandler{
		transactionService:    transactionService,
		categorizationService: categorizationService,
		auditService:          auditService,
	}
}

// SyncTransactionsRequest represents a batch of raw bank feed records.
type SyncTransactionsRequest struct {
	Transactions []services.TransactionFeedRecord `json:"transactions" binding:"required,min=1"`
}

// SetCategoryRequest represents the request payload for pinning a category.
type SetCategoryRequest struct {
	CategoryID uint `json:"category_id" binding:"required"`
}

// LinkPaymentRequest represents the request payload for applying a match.
type LinkPaymentRequest struct {
	PaymentID uint `json:"payment_id" binding:"required"`
}

// ApplyCategoryRulesRequest represents the request payload for a rule pass.
// An empty transaction list means all of the family's uncategorized
// transactions.
type ApplyCategoryRulesRequest struct {
	TransactionIDs []uint `json:"transaction_ids"`
}

// SyncTransactions handles ingesting a batch of bank feed records.
func (h *TransactionHandler) SyncTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SyncTransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.transactionService.IngestTransactions(familyID, req.Transactions)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "SYNC_TRANSACTIONS", "transaction", 0, c.ClientIP(),
		map[string]interface{}{
			"created":          result.Created,
			"skipped":          result.Skipped,
			"auto_categorized": result.AutoCategorized,
		})

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// GetTransactions handles listing transactions with optional filters.
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.GetFamilyTransactions(familyID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	if v := c.Query("from_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "from_date must be RFC3339")
		}
		filter.FromDate = &t
	}
	if v := c.Query("to_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "to_date must be RFC3339")
		}
		filter.ToDate = &t
	}
	if v := c.Query("category_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid category_id")
		}
		u := uint(id)
		filter.CategoryID = &u
	}
	if v := c.Query("bank_account_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid bank_account_id")
		}
		u := uint(id)
		filter.BankAccountID = &u
	}
	filter.Uncategorized = c.Query("uncategorized") == "true"
	filter.Unlinked = c.Query("unlinked") == "true"

	return filter, nil
}

// GetTransaction handles retrieving a specific transaction.
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	txn, err := h.transactionService.GetTransactionByID(familyID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": txn})
}

// SetCategory handles a user pinning a category on a transaction.
func (h *TransactionHandler) SetCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SetCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	txn, err := h.transactionService.SetUserCategory(familyID, transactionID, req.CategoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "SET_TRANSACTION_CATEGORY", "transaction", transactionID, c.ClientIP(),
		map[string]interface{}{"category_id": req.CategoryID})

	c.JSON(http.StatusOK, gin.H{"transaction": txn})
}

// LinkPayment handles applying an accepted match proposal.
func (h *TransactionHandler) LinkPayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req LinkPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	txn, err := h.transactionService.LinkToPayment(familyID, transactionID, req.PaymentID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "LINK_TRANSACTION", "transaction", transactionID, c.ClientIP(),
		map[string]interface{}{"payment_id": req.PaymentID})

	c.JSON(http.StatusOK, gin.H{"transaction": txn})
}

// ProposeMatches handles computing advisory transaction-to-payment match
// proposals. Nothing is written; accepting a proposal is a separate call.
func (h *TransactionHandler) ProposeMatches(c *gin.Context) {
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	amountTolerance := services.DefaultAmountTolerance
	if v := c.Query("amount_tolerance"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid amount_tolerance"))
			return
		}
		amountTolerance = d
	}

	dateTolerance := services.DefaultDateToleranceDays
	if v := c.Query("date_tolerance_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid date_tolerance_days"))
			return
		}
		dateTolerance = n
	}

	proposals, err := h.transactionService.ProposeMatches(familyID, amountTolerance, dateTolerance)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}

// ApplyCategoryRules handles running the categorization engine over the
// family's transactions.
func (h *TransactionHandler) ApplyCategoryRules(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ApplyCategoryRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	applied, err := h.categorizationService.ApplyCategoryRules(familyID, req.TransactionIDs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "APPLY_CATEGORY_RULES", "transaction", 0, c.ClientIP(),
		map[string]interface{}{"applied": applied})

	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

// GetCategorySuggestions handles retrieving frequency-based category
// suggestions over the family's uncategorized transactions.
func (h *TransactionHandler) GetCategorySuggestions(c *gin.Context) {
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	suggestions, err := h.categorizationService.GenerateCategorySuggestions(familyID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}
