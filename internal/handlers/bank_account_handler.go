package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "famledger/internal/errors"
	"famledger/internal/pagination"
	"famledger/internal/services"
)

// BankAccountHandler handles linked bank account requests.
type BankAccountHandler struct {
	bankAccountService services.BankAccountServicer
}

// NewBankAccountHandler creates a new BankAccountHandler.
func NewBankAccountHandler(bankAccountService services.BankAccountServicer) *BankAccountHandler {
	return &BankAccountHandler{bankAccountService: bankAccountService}
}

// CreateBankAccountRequest represents the request payload for linking an account.
type CreateBankAccountRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Institution string `json:"institution" binding:"omitempty,max=100"`
	Mask        string `json:"mask" binding:"omitempty,max=10"`
}

// CreateBankAccount handles registering a linked account for the family.
func (h *BankAccountHandler) CreateBankAccount(c *gin.Context) {
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.bankAccountService.CreateBankAccount(familyID, req.Name, req.Institution, req.Mask)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"bank_account": account})
}

// GetBankAccounts handles listing the family's linked accounts.
func (h *BankAccountHandler) GetBankAccounts(c *gin.Context) {
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

	result, err := h.bankAccountService.GetFamilyBankAccounts(familyID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetBankAccount handles retrieving a specific linked account.
func (h *BankAccountHandler) GetBankAccount(c *gin.Context) {
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.bankAccountService.GetBankAccountByID(familyID, accountID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bank_account": account})
}
