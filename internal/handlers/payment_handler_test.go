package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/services"
)

// --- mock payment service ---

type mockPaymentService struct {
	getFamilyPaymentsFn func(familyID uint, page pagination.PageRequest, status *models.PaymentStatus) (*pagination.PageResponse[models.Payment], error)
}

func (m *mockPaymentService) CreatePayment(_ uint, payee string, amount decimal.Decimal, dueDate time.Time, _ *uint) (*models.Payment, error) {
	return &models.Payment{Payee: payee, Amount: amount, DueDate: dueDate}, nil
}

func (m *mockPaymentService) GetFamilyPayments(familyID uint, page pagination.PageRequest, status *models.PaymentStatus) (*pagination.PageResponse[models.Payment], error) {
	if m.getFamilyPaymentsFn != nil {
		return m.getFamilyPaymentsFn(familyID, page, status)
	}
	page.Defaults()
	resp := pagination.NewPageResponse([]models.Payment{}, page.Page, page.PageSize, 0)
	return &resp, nil
}

func (m *mockPaymentService) GetPaymentByID(_, _ uint) (*models.Payment, error) {
	return &models.Payment{}, nil
}

func (m *mockPaymentService) GetPaymentCapacity(_, _ uint) (*services.PaymentCapacity, error) {
	return &services.PaymentCapacity{}, nil
}

func (m *mockPaymentService) UpdatePayment(_, _ uint, _ string, _ *decimal.Decimal, _ *time.Time, _ *uint) (*models.Payment, error) {
	return &models.Payment{}, nil
}

func (m *mockPaymentService) MarkPaid(_, _ uint) (*models.Payment, error) {
	return &models.Payment{}, nil
}

func (m *mockPaymentService) CancelPayment(_, _ uint) error {
	return nil
}

var _ services.PaymentServicer = (*mockPaymentService)(nil)

func setupPaymentRouter(handler *PaymentHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectAuth(1, 1))
	auth.GET("/payments", handler.GetPayments)
	return r
}

func TestPaymentHandler_GetPayments(t *testing.T) {
	t.Run("passes a valid status filter through", func(t *testing.T) {
		svc := &mockPaymentService{
			getFamilyPaymentsFn: func(familyID uint, page pagination.PageRequest, status *models.PaymentStatus) (*pagination.PageResponse[models.Payment], error) {
				if familyID != 1 {
					t.Errorf("expected family 1, got %d", familyID)
				}
				if status == nil || *status != models.PaymentStatusPaid {
					t.Errorf("expected paid status filter, got %v", status)
				}
				page.Defaults()
				resp := pagination.NewPageResponse([]models.Payment{}, page.Page, page.PageSize, 0)
				return &resp, nil
			},
		}
		handler := NewPaymentHandler(svc, &mockAuditService{})
		r := setupPaymentRouter(handler)

		rec := doRequest(r, "GET", "/payments?status=paid", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns 400 on an unknown status", func(t *testing.T) {
		called := false
		svc := &mockPaymentService{
			getFamilyPaymentsFn: func(_ uint, _ pagination.PageRequest, _ *models.PaymentStatus) (*pagination.PageResponse[models.Payment], error) {
				called = true
				return nil, nil
			},
		}
		handler := NewPaymentHandler(svc, &mockAuditService{})
		r := setupPaymentRouter(handler)

		rec := doRequest(r, "GET", "/payments?status=overdue", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		if called {
			t.Error("service must not be called on a rejected status")
		}
	})

	t.Run("omitted status means no filter", func(t *testing.T) {
		svc := &mockPaymentService{
			getFamilyPaymentsFn: func(_ uint, _ pagination.PageRequest, status *models.PaymentStatus) (*pagination.PageResponse[models.Payment], error) {
				if status != nil {
					t.Errorf("expected no status filter, got %v", *status)
				}
				resp := pagination.NewPageResponse([]models.Payment{}, 1, 20, 0)
				return &resp, nil
			},
		}
		handler := NewPaymentHandler(svc, &mockAuditService{})
		r := setupPaymentRouter(handler)

		rec := doRequest(r, "GET", "/payments", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}
