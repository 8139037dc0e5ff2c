package notifier

import (
	"time"

	"go.uber.org/zap"

	"storefront-chat-service/internal/models"
	"storefront-chat-service/internal/observability"
	"storefront-chat-service/internal/ws"
)

// Router is the slice of the channel router the notifier needs.
type Router interface {
	EmitToRoom(room, event string, data any)
}

// Presence answers whether a target user is reachable.
type Presence interface {
	IsOnline(userID string) bool
}

// Notifier pushes order lifecycle events into the channel router. Delivery
// is fire and forget: an offline target is a no-op, not an error, and the
// event is never queued for later.
type Notifier struct {
	router   Router
	presence Presence
	log      *zap.SugaredLogger
}

// New constructs a Notifier.
func New(router Router, presence Presence, log *zap.SugaredLogger) *Notifier {
	return &Notifier{router: router, presence: presence, log: log}
}

// OrderCreated announces a freshly placed order to the admin broadcast group.
func (n *Notifier) OrderCreated(order models.Order) {
	n.router.EmitToRoom(ws.AdminRoom, models.EventNewOrder, models.NewOrderPayload{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Total:     order.Total,
		CreatedAt: order.CreatedAt.Format(time.RFC3339),
	})
	observability.IncOrderEvent(models.EventNewOrder, "emitted")
}

// OrderStatusChanged tells the owning user about a status transition, if
// they are connected right now.
func (n *Notifier) OrderStatusChanged(orderID, userID, newStatus string) {
	if !n.presence.IsOnline(userID) {
		n.log.Debugw("order status push skipped, user offline", "order_id", orderID, "user_id", userID)
		observability.IncOrderEvent(models.EventOrderStatusUpdated, "dropped_offline")
		return
	}

	n.router.EmitToRoom(ws.UserRoom(userID), models.EventOrderStatusUpdated, models.OrderStatusPayload{
		OrderID:   orderID,
		NewStatus: newStatus,
	})
	observability.IncOrderEvent(models.EventOrderStatusUpdated, "emitted")
}
