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

// IncomeHandler handles income-event requests, including auto-distribution.
type IncomeHandler struct {
	incomeService      services.IncomeServicer
	attributionService services.AttributionServicer
	auditService       services.AuditServicer
}

// NewIncomeHandler creates a new IncomeHandler.
func NewIncomeHandler(incomeService services.IncomeServicer, attributionService services.AttributionServicer, auditService services.AuditServicer) *IncomeHandler {
	return &IncomeHandler{
		incomeService:      incomeService,
		attributionService: attributionService,
		auditService:       auditService,
	}
}

// CreateIncomeEventRequest represents the request payload for creating an income event.
type CreateIncomeEventRequest struct {
	Source        string          `json:"source" binding:"required,min=1,max=200"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	ScheduledDate time.Time       `json:"scheduled_date" binding:"required"`
}

// ListIncomeEventsRequest holds the query parameters for listing income events.
type ListIncomeEventsRequest struct {
	pagination.PageRequest
	Status string `form:"status" binding:"omitempty,income_status"`
}

// UpdateIncomeEventRequest represents the request payload for updating an income event.
type UpdateIncomeEventRequest struct {
	Source        string           `json:"source" binding:"omitempty,min=1,max=200"`
	Amount        *decimal.Decimal `json:"amount"`
	ScheduledDate *time.Time       `json:"scheduled_date"`
}

// AutoDistributeRequest represents the request payload for auto-distribution.
type AutoDistributeRequest struct {
	PaymentIDs []uint `json:"payment_ids" binding:"required,min=1"`
}

// CreateIncomeEvent handles the creation of a new income event.
func (h *IncomeHandler) CreateIncomeEvent(c *gin.Context) {
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

	var req CreateIncomeEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	income, err := h.incomeService.CreateIncomeEvent(familyID, req.Source, req.Amount, req.ScheduledDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_INCOME_EVENT", "income_event", income.ID, c.ClientIP(),
		map[string]interface{}{"source": req.Source, "amount": req.Amount.String()})

	c.JSON(http.StatusCreated, gin.H{"income_event": income})
}

// GetIncomeEvents handles listing income events with an optional status filter.
func (h *IncomeHandler) GetIncomeEvents(c *gin.Context) {
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ListIncomeEventsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var status *models.IncomeEventStatus
	if req.Status != "" {
		s := models.IncomeEventStatus(req.Status)
		status = &s
	}

	result, err := h.incomeService.GetFamilyIncomeEvents(familyID, req.PageRequest, status)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetIncomeEvent handles retrieving an income event with its attributions.
func (h *IncomeHandler) GetIncomeEvent(c *gin.Context) {
	familyID, err := getFamilyID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	incomeEventID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	income, err := h.incomeService.GetIncomeEventByID(familyID, incomeEventID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"income_event": income})
}

// UpdateIncomeEvent handles updating an existing income event.
func (h *IncomeHandler) UpdateIncomeEvent(c *gin.Context) {
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

	incomeEventID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateIncomeEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	income, err := h.incomeService.UpdateIncomeEvent(familyID, incomeEventID, req.Source, req.Amount, req.ScheduledDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_INCOME_EVENT", "income_event", incomeEventID, c.ClientIP(),
		map[string]interface{}{"source": req.Source})

	c.JSON(http.StatusOK, gin.H{"income_event": income})
}

// MarkReceived handles transitioning a scheduled income event to received.
func (h *IncomeHandler) MarkReceived(c *gin.Context) {
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

	incomeEventID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	income, err := h.incomeService.MarkReceived(familyID, incomeEventID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "MARK_INCOME_RECEIVED", "income_event", incomeEventID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"income_event": income})
}

// CancelIncomeEvent handles cancelling an income event with no allocations.
func (h *IncomeHandler) CancelIncomeEvent(c *gin.Context) {
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

	incomeEventID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.incomeService.CancelIncomeEvent(familyID, incomeEventID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CANCEL_INCOME_EVENT", "income_event", incomeEventID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Income event cancelled successfully"})
}

// AutoDistribute handles distributing an income event's remaining amount
// across candidate payments.
func (h *IncomeHandler) AutoDistribute(c *gin.Context) {
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

	incomeEventID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AutoDistributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := getUserRef(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	attributions, err := h.attributionService.AutoDistribute(familyID, incomeEventID, req.PaymentIDs, user)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "AUTO_DISTRIBUTE_INCOME", "income_event", incomeEventID, c.ClientIP(),
		map[string]interface{}{"payment_ids": req.PaymentIDs, "attributions": len(attributions)})

	c.JSON(http.StatusCreated, gin.H{"attributions": attributions})
}

// DeleteIncomeAttribution handles removing an attribution addressed through
// its income event.
func (h *IncomeHandler) DeleteIncomeAttribution(c *gin.Context) {
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

	incomeEventID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	attributionID, err := parsePathID(c, "attributionId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.attributionService.DeleteIncomeAttribution(familyID, incomeEventID, attributionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_ATTRIBUTION", "payment_attribution", attributionID, c.ClientIP(),
		map[string]interface{}{"income_event_id": incomeEventID})

	c.JSON(http.StatusOK, gin.H{"message": "Attribution deleted successfully"})
}
