package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/services"
)

// AttributionHandler handles attribution ledger requests.
type AttributionHandler struct {
	attributionService services.AttributionServicer
	auditService       services.AuditServicer
}

// NewAttributionHandler creates a new AttributionHandler.
func NewAttributionHandler(attributionService services.AttributionServicer, auditService services.AuditServicer) *AttributionHandler {
	return &AttributionHandler{attributionService: attributionService, auditService: auditService}
}

// CreateAttributionRequest represents the request payload for creating an attribution.
type CreateAttributionRequest struct {
	PaymentID       uint                   `json:"payment_id" binding:"required"`
	IncomeEventID   uint                   `json:"income_event_id" binding:"required"`
	Amount          decimal.Decimal        `json:"amount" binding:"required"`
	AttributionType models.AttributionType `json:"attribution_type" binding:"omitempty,attribution_type"`
}

// UpdateAttributionRequest represents the request payload for updating an attribution.
type UpdateAttributionRequest struct {
	Amount          *decimal.Decimal        `json:"amount"`
	AttributionType *models.AttributionType `json:"attribution_type" binding:"omitempty,attribution_type"`
}

// CreateAttribution handles allocating part of an income event to a payment.
func (h *AttributionHandler) CreateAttribution(c *gin.Context) {
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

	var req CreateAttributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	attrType := req.AttributionType
	if attrType == "" {
		attrType = models.AttributionTypeManual
	}

	user, err := getUserRef(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	attribution, err := h.attributionService.CreateAttribution(familyID, req.PaymentID, req.IncomeEventID, req.Amount, attrType, user)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_ATTRIBUTION", "payment_attribution", attribution.ID, c.ClientIP(),
		map[string]interface{}{
			"payment_id":      req.PaymentID,
			"income_event_id": req.IncomeEventID,
			"amount":          attribution.Amount.String(),
		})

	c.JSON(http.StatusCreated, gin.H{"attribution": attribution})
}

// UpdateAttribution handles changing an attribution's amount and/or type.
// The response includes the previous values for the audit trail.
func (h *AttributionHandler) UpdateAttribution(c *gin.Context) {
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

	attributionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateAttributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	audit, err := h.attributionService.UpdateAttribution(familyID, attributionID, req.Amount, req.AttributionType)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_ATTRIBUTION", "payment_attribution", attributionID, c.ClientIP(),
		map[string]interface{}{
			"previous_amount": audit.PreviousAmount.String(),
			"new_amount":      audit.NewAmount.String(),
			"previous_type":   audit.PreviousType,
			"new_type":        audit.NewType,
		})

	c.JSON(http.StatusOK, gin.H{
		"attribution":     audit.Attribution,
		"previous_amount": audit.PreviousAmount,
		"previous_type":   audit.PreviousType,
	})
}

// DeleteAttribution handles removing an attribution, releasing capacity on
// both the payment and the income event.
func (h *AttributionHandler) DeleteAttribution(c *gin.Context) {
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

	attributionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.attributionService.DeleteAttribution(familyID, attributionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_ATTRIBUTION", "payment_attribution", attributionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Attribution deleted successfully"})
}
