package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-chat-service/internal/auth"
	"storefront-chat-service/internal/middleware"
	"storefront-chat-service/internal/models"
	"storefront-chat-service/internal/repositories"
	"storefront-chat-service/internal/telemetry"
)

// OrderNotifier pushes order events to connected clients.
type OrderNotifier interface {
	OrderCreated(order models.Order)
	OrderStatusChanged(orderID, userID, newStatus string)
}

// OrderHandler is the thin order collaborator: it owns just enough of the
// order lifecycle to feed the notifier.
type OrderHandler struct {
	orders   repositories.OrderRepository
	notifier OrderNotifier
	audit    *telemetry.AuditEmitter
}

// NewOrderHandler builds an OrderHandler.
func NewOrderHandler(orders repositories.OrderRepository, notifier OrderNotifier, audit *telemetry.AuditEmitter) *OrderHandler {
	return &OrderHandler{orders: orders, notifier: notifier, audit: audit}
}

// CreateOrder records an order for the caller and announces it to the
// admin broadcast group.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		Total float64 `json:"total" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), ident.UserID, req.Total)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create order"})
		return
	}

	h.notifier.OrderCreated(order)
	h.audit.Emit(c.Request.Context(), "INFO", "order created", requestIDFromContext(c), &order.UserID)

	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// UpdateOrderStatus transitions an order and pushes the change to the
// owning user's room if they are connected. Admin only.
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if ident.Role != auth.RoleSuperAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "only admins can update order status"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("order_id"), req.Status)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update order"})
		return
	}

	h.notifier.OrderStatusChanged(order.ID, order.UserID, order.Status)
	h.audit.Emit(c.Request.Context(), "INFO", "order status updated to "+order.Status, requestIDFromContext(c), &ident.UserID)

	c.JSON(http.StatusOK, gin.H{"order": order})
}
