package gateway

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/example/supermart/pkg/checkout"
	"github.com/example/supermart/pkg/models"
)

func newBareGateway() *Gateway {
	gin.SetMode(gin.TestMode)
	return &Gateway{
		logger: zap.NewNop(),
		router: gin.New(),
	}
}

func TestIdentityMiddleware(t *testing.T) {
	g := newBareGateway()
	g.router.Use(g.identityMiddleware())
	g.router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": currentUserID(c)})
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid id", header: "7", wantStatus: http.StatusOK},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "zero id", header: "0", wantStatus: http.StatusUnauthorized},
		{name: "non-numeric id", header: "abc", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("X-User-ID", tt.header)
			}
			rec := httptest.NewRecorder()
			g.router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRenderError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "empty cart", err: checkout.ErrEmptyCart, wantStatus: http.StatusBadRequest},
		{name: "checkout in flight", err: checkout.ErrCheckoutInFlight, wantStatus: http.StatusConflict},
		{name: "no pending payment", err: checkout.ErrNoPendingPayment, wantStatus: http.StatusBadRequest},
		{
			name:       "cart depleted",
			err:        &checkout.CartDepletedError{Removed: []checkout.RemovedItem{{ProductID: models.ProductID(1)}}},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "payment not completed",
			err:        &checkout.PaymentNotCompletedError{Status: "DECLINED"},
			wantStatus: http.StatusPaymentRequired,
		},
		{
			name:       "partial order failure",
			err:        &checkout.PersistenceError{OrderID: 42, Step: "saving order items", Err: errors.New("boom")},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "no transaction for refund",
			err:        &checkout.NoTransactionFoundError{OrderID: 42},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "refund rejected by provider",
			err:        &checkout.RefundFailedError{Status: "PENDING"},
			wantStatus: http.StatusBadGateway,
		},
		{name: "unclassified error", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newBareGateway()
			g.router.GET("/fail", func(c *gin.Context) {
				g.renderError(c, tt.err)
			})

			req := httptest.NewRequest(http.MethodGet, "/fail", nil)
			rec := httptest.NewRecorder()
			g.router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
