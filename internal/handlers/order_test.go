package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront-chat-service/internal/auth"
	"storefront-chat-service/internal/mocks"
	"storefront-chat-service/internal/models"
	"storefront-chat-service/internal/repositories"
	"storefront-chat-service/internal/telemetry"
)

type orderFixture struct {
	router    *gin.Engine
	orders    *mocks.OrderRepositoryMock
	notifier  *mocks.NotifierMock
	publisher *mocks.PublisherMock
}

func setupOrderRouter(ident auth.Identity) *orderFixture {
	gin.SetMode(gin.TestMode)

	fx := &orderFixture{
		orders:    new(mocks.OrderRepositoryMock),
		notifier:  new(mocks.NotifierMock),
		publisher: new(mocks.PublisherMock),
	}
	audit := telemetry.NewAuditEmitter(fx.publisher, "audit.chat", "storefront-chat-service", "test", zap.NewNop().Sugar())
	handler := NewOrderHandler(fx.orders, fx.notifier, audit)

	fx.router = gin.New()
	fx.router.Use(func(c *gin.Context) {
		c.Set("identity", ident)
		c.Next()
	})
	fx.router.POST("/orders", handler.CreateOrder)
	fx.router.PATCH("/orders/:order_id/status", handler.UpdateOrderStatus)
	return fx
}

func doJSONRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestCreateOrderNotifiesAdminsAndAudits(t *testing.T) {
	fx := setupOrderRouter(auth.Identity{UserID: "u1", Role: auth.RoleUser})
	order := models.Order{ID: "o1", UserID: "u1", Status: "PENDING", Total: 49.90, CreatedAt: time.Now().UTC()}
	fx.orders.On("CreateOrder", mock.Anything, "u1", 49.90).Return(order, nil)
	fx.notifier.On("OrderCreated", order).Once()
	fx.publisher.On("Publish", mock.Anything, "audit.chat", mock.Anything).Return(nil)

	w := doJSONRequest(fx.router, http.MethodPost, "/orders", `{"total": 49.90}`)

	require.Equal(t, http.StatusCreated, w.Code)
	var body struct {
		Order models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "o1", body.Order.ID)
	assert.Equal(t, "PENDING", body.Order.Status)
	fx.notifier.AssertExpectations(t)
	fx.publisher.AssertExpectations(t)
}

func TestCreateOrderRejectsNonPositiveTotal(t *testing.T) {
	fx := setupOrderRouter(auth.Identity{UserID: "u1", Role: auth.RoleUser})

	w := doJSONRequest(fx.router, http.MethodPost, "/orders", `{"total": 0}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	fx.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateOrderStatusForbiddenForUser(t *testing.T) {
	fx := setupOrderRouter(auth.Identity{UserID: "u1", Role: auth.RoleUser})

	w := doJSONRequest(fx.router, http.MethodPatch, "/orders/o1/status", `{"status": "SHIPPED"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	fx.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateOrderStatusNotFound(t *testing.T) {
	fx := setupOrderRouter(auth.Identity{UserID: "a1", Role: auth.RoleSuperAdmin})
	fx.orders.On("UpdateStatus", mock.Anything, "missing", "SHIPPED").
		Return(nil, repositories.ErrOrderNotFound)

	w := doJSONRequest(fx.router, http.MethodPatch, "/orders/missing/status", `{"status": "SHIPPED"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	fx.notifier.AssertNotCalled(t, "OrderStatusChanged", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateOrderStatusNotifiesOwner(t *testing.T) {
	fx := setupOrderRouter(auth.Identity{UserID: "a1", Role: auth.RoleSuperAdmin})
	order := models.Order{ID: "o1", UserID: "u1", Status: "SHIPPED", Total: 49.90}
	fx.orders.On("UpdateStatus", mock.Anything, "o1", "SHIPPED").Return(order, nil)
	fx.notifier.On("OrderStatusChanged", "o1", "u1", "SHIPPED").Once()
	fx.publisher.On("Publish", mock.Anything, "audit.chat", mock.Anything).Return(nil)

	w := doJSONRequest(fx.router, http.MethodPatch, "/orders/o1/status", `{"status": "SHIPPED"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Order models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "SHIPPED", body.Order.Status)
	fx.notifier.AssertExpectations(t)
}

func TestUpdateOrderStatusRejectsMissingStatus(t *testing.T) {
	fx := setupOrderRouter(auth.Identity{UserID: "a1", Role: auth.RoleSuperAdmin})

	w := doJSONRequest(fx.router, http.MethodPatch, "/orders/o1/status", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	fx.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}
