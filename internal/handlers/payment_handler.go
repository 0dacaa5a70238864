package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/services"
)

// PaymentHandler handles payment lifecycle requests.
type PaymentHandler struct {
	paymentService services.PaymentServicer
	auditService   services.AuditServicer
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService services.PaymentServicer, auditService services.AuditServicer) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, auditService: auditService}
}

// CreatePaymentRequest represents the request payload for creating a payment.
type CreatePaymentRequest struct {
	Payee      string          `json:"payee" binding:"required,min=1,max=200"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	DueDate    time.Time       `json:"due_date" binding:"required"`
	CategoryID *uint           `json:"category_id"`
}

// ListPaymentsRequest holds the query parameters for listing payments.
type ListPaymentsRequest struct {
	pagination.PageRequest
	Status string `form:"status" binding:"omitempty,payment_status"`
}

// UpdatePaymentRequest represents the request payload for updating a payment.
type UpdatePaymentRequest struct {
	Payee      string           `json:"payee" binding:"omitempty,min=1,max=200"`
	Amount     *decimal.Decimal `json:"amount"`
	DueDate    *time.Time       `json:"due_date"`
	CategoryID *uint            `json:"category_id"`
}

// CreatePayment handles the creation of a new scheduled payment.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
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

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	payment, err := h.paymentService.CreatePayment(familyID, req.Payee, req.Amount, req.DueDate, req.CategoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_PAYMENT", "payment", payment.ID, c.ClientIP(),
		map[string]interface{}{"payee": req.Payee, "amount": req.Amount.String()})

	c.JSON(http.StatusCreated, gin.H{"payment": payment})
}

// GetPayments handles listing payments with an optional status filter.
func (h *PaymentHandler) GetPayments(c *gin.Context) {
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ListPaymentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var status *models.PaymentStatus
	if req.Status != "" {
		s := models.PaymentStatus(req.Status)
		status = &s
	}

	result, err := h.paymentService.GetFamilyPayments(familyID, req.PageRequest, status)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetPayment handles retrieving a payment with its attributions and
// remaining capacity.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	paymentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	payment, err := h.paymentService.GetPaymentByID(familyID, paymentID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment":            payment,
		"remaining_capacity": payment.RemainingCapacity(),
	})
}

// GetPaymentCapacity handles retrieving a payment's funding position.
func (h *PaymentHandler) GetPaymentCapacity(c *gin.Context) {
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	paymentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	capacity, err := h.paymentService.GetPaymentCapacity(familyID, paymentID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"capacity": capacity})
}

// UpdatePayment handles updating an existing payment.
func (h *PaymentHandler) UpdatePayment(c *gin.Context) {
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

	paymentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	payment, err := h.paymentService.UpdatePayment(familyID, paymentID, req.Payee, req.Amount, req.DueDate, req.CategoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_PAYMENT", "payment", paymentID, c.ClientIP(),
		map[string]interface{}{"payee": req.Payee})

	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

// MarkPaid handles transitioning a scheduled payment to paid.
func (h *PaymentHandler) MarkPaid(c *gin.Context) {
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

	paymentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	payment, err := h.paymentService.MarkPaid(familyID, paymentID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "MARK_PAYMENT_PAID", "payment", paymentID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

// CancelPayment handles cancelling a payment with no attributions.
func (h *PaymentHandler) CancelPayment(c *gin.Context) {
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

	paymentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.paymentService.CancelPayment(familyID, paymentID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CANCEL_PAYMENT", "payment", paymentID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Payment cancelled successfully"})
}
