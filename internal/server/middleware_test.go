package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edukita/kertas/internal/config"
	paymentsdomain "github.com/edukita/kertas/internal/payments/domain"
	"github.com/edukita/kertas/internal/principal"
)

func newTestEngine(s *Server, register func(*gin.Engine)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	register(engine)
	return engine
}

func TestPrincipalRequired(t *testing.T) {
	s := &Server{}
	var captured principal.Principal
	engine := newTestEngine(s, func(engine *gin.Engine) {
		engine.GET("/whoami", s.PrincipalRequired(), func(c *gin.Context) {
			p, ok := principal.FromContext(c.Request.Context())
			require.True(t, ok)
			captured = p
			c.JSON(http.StatusOK, gin.H{"data": "ok"})
		})
	})

	// No school header at all.
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Garbage school id.
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-School-ID", "not-a-number")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Garbage user id on a valid school.
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-School-ID", "123456789")
	req.Header.Set("X-User-ID", "garbage")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Full identity.
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-School-ID", "123456789")
	req.Header.Set("X-User-ID", "987654321")
	req.Header.Set("X-Actor-Role", "teacher")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(123456789), int64(captured.SchoolID))
	assert.Equal(t, int64(987654321), int64(captured.UserID))
	assert.Equal(t, principal.RoleTeacher, captured.Role)
}

func TestAdminSecretRequired(t *testing.T) {
	s := &Server{cfg: config.Config{AdminAPISecret: "operator-secret"}}
	engine := newTestEngine(s, func(engine *gin.Engine) {
		engine.GET("/admin/ping", s.AdminSecretRequired(), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"data": "pong"})
		})
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/ping", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("X-Admin-Secret", "wrong")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("X-Admin-Secret", "operator-secret")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminSurfaceDisabledWithoutSecret(t *testing.T) {
	s := &Server{cfg: config.Config{}}
	engine := newTestEngine(s, func(engine *gin.Engine) {
		engine.GET("/admin/ping", s.AdminSecretRequired(), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"data": "pong"})
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("X-Admin-Secret", "anything")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type mockPaymentsService struct {
	mock.Mock
}

func (m *mockPaymentsService) ListPackages(ctx context.Context) ([]paymentsdomain.PackageResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]paymentsdomain.PackageResponse), args.Error(1)
}

func (m *mockPaymentsService) StartPurchase(ctx context.Context, req paymentsdomain.PurchaseRequest) (*paymentsdomain.PurchaseResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentsdomain.PurchaseResponse), args.Error(1)
}

func (m *mockPaymentsService) ProcessEvent(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	args := m.Called(ctx, provider, payload, headers)
	return args.Error(0)
}

func TestPaymentWebhookAcknowledgesReplays(t *testing.T) {
	payments := new(mockPaymentsService)
	payments.On("ProcessEvent", mock.Anything, "manual", mock.Anything, mock.Anything).
		Return(paymentsdomain.ErrEventAlreadyProcessed)

	s := &Server{paymentsSvc: payments}
	engine := newTestEngine(s, func(engine *gin.Engine) {
		engine.POST("/api/payments/webhooks/:provider", s.HandlePaymentWebhook)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhooks/manual",
		strings.NewReader(`{"order_id":"1","status":"paid"}`))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	payments.AssertExpectations(t)
}

func TestPaymentWebhookRejectsBadSignature(t *testing.T) {
	payments := new(mockPaymentsService)
	payments.On("ProcessEvent", mock.Anything, "manual", mock.Anything, mock.Anything).
		Return(paymentsdomain.ErrInvalidSignature)

	s := &Server{paymentsSvc: payments}
	engine := newTestEngine(s, func(engine *gin.Engine) {
		engine.POST("/api/payments/webhooks/:provider", s.HandlePaymentWebhook)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhooks/manual",
		strings.NewReader(`{"order_id":"1","status":"paid"}`))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
