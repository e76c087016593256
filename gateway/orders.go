package gateway

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/supermart/pkg/models"
)

// createOrder runs the plain checkout against the caller's cart.
func (g *Gateway) createOrder(c *gin.Context) {
	userID := currentUserID(c)

	result, err := g.service.CreateOrder(c.Request.Context(), userID)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type orderSummary struct {
	models.Order
	Payment *models.Transaction `json:"payment,omitempty"`
}

// listOrders returns the caller's orders, newest first, each annotated with
// the latest payment transaction when one exists.
func (g *Gateway) listOrders(c *gin.Context) {
	userID := currentUserID(c)
	ctx := c.Request.Context()

	orders, err := g.orders.GetByUser(ctx, userID)
	if err != nil {
		g.renderError(c, err)
		return
	}

	summaries := make([]orderSummary, 0, len(orders))
	if len(orders) == 0 {
		c.JSON(http.StatusOK, gin.H{"orders": summaries, "total": 0})
		return
	}

	orderIDs := make([]uint64, 0, len(orders))
	for _, o := range orders {
		orderIDs = append(orderIDs, o.ID)
	}
	payments, err := g.transactions.LatestByOrderIDs(ctx, orderIDs)
	if err != nil {
		// Orders still render without payment detail.
		g.logger.Warn("failed to load payment info for orders", zap.Error(err))
		payments = nil
	}

	for _, o := range orders {
		summary := orderSummary{Order: o}
		if tx, ok := payments[o.ID]; ok {
			payment := tx
			summary.Payment = &payment
		}
		summaries = append(summaries, summary)
	}
	c.JSON(http.StatusOK, gin.H{"orders": summaries, "total": len(summaries)})
}

// getOrder returns one order header with its line items joined against the
// catalog for current product names and prices.
func (g *Gateway) getOrder(c *gin.Context) {
	userID := currentUserID(c)

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	ctx := c.Request.Context()
	order, err := g.orders.GetByID(ctx, orderID)
	if err != nil {
		g.renderError(c, err)
		return
	}
	if order.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "order belongs to another user"})
		return
	}

	items, err := g.orders.GetItems(ctx, orderID)
	if err != nil {
		g.renderError(c, err)
		return
	}

	payment, err := g.transactions.LatestByOrderID(ctx, orderID)
	if err != nil {
		g.logger.Warn("failed to load payment info for order",
			zap.Uint64("order_id", orderID),
			zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"order":   order,
		"items":   items,
		"payment": payment,
	})
}

// getOrderAudit exposes the order's audit trail for support tooling.
func (g *Gateway) getOrderAudit(c *gin.Context) {
	userID := currentUserID(c)

	if g.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit trail is not available"})
		return
	}

	orderID := c.Param("id")
	parsed, err := strconv.ParseUint(orderID, 10, 64)
	if err != nil || parsed == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	ctx := c.Request.Context()
	order, err := g.orders.GetByID(ctx, parsed)
	if err != nil {
		g.renderError(c, err)
		return
	}
	if order.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "order belongs to another user"})
		return
	}

	logs, err := g.audit.GetAuditLogs(ctx, orderID, 50)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
