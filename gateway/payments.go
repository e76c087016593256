package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/supermart/pkg/checkout"
	"github.com/example/supermart/pkg/payment/nets"
)

type capturePayPalRequest struct {
	Address string `json:"address"`
}

type issueNetsQRRequest struct {
	Address string `json:"address"`
}

type refundRequest struct {
	Reason string   `json:"reason" binding:"required"`
	Amount *float64 `json:"amount"`
}

// createPayPalOrder opens a capture-intent order with the provider for the
// current cart total and returns its ID for the frontend approval step.
func (g *Gateway) createPayPalOrder(c *gin.Context) {
	userID := currentUserID(c)

	providerOrderID, amount, err := g.service.CreateCardOrder(c.Request.Context(), userID)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"provider_order_id": providerOrderID,
		"amount":            amount,
	})
}

// capturePayPalOrder captures the approved provider order and finalizes the
// local order on a completed capture.
func (g *Gateway) capturePayPalOrder(c *gin.Context) {
	userID := currentUserID(c)

	providerOrderID := c.Param("providerOrderId")
	if providerOrderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provider order id is required"})
		return
	}

	var req capturePayPalRequest
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := g.service.CaptureCardPayment(c.Request.Context(), userID, providerOrderID, req.Address)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// issueNetsQR requests a payment QR code for the current cart total.
func (g *Gateway) issueNetsQR(c *gin.Context) {
	userID := currentUserID(c)

	var req issueNetsQRRequest
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	issue, err := g.service.IssueNetsQR(c.Request.Context(), userID, req.Address)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, issue)
}

// streamNetsStatus polls the provider for the caller's pending QR payment
// and streams every poll result as a server-sent event. On confirmation the
// order is finalized inline and the terminal event carries its ID.
func (g *Gateway) streamNetsStatus(c *gin.Context) {
	userID := currentUserID(c)
	ctx := c.Request.Context()

	pending, err := g.cache.GetPendingQRPayment(ctx, userID)
	if err != nil {
		g.renderError(c, err)
		return
	}
	if pending == nil || pending.RetrievalRef == "" {
		g.renderError(c, checkout.ErrNoPendingPayment)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	emit := func(v interface{}) {
		payload, err := json.Marshal(v)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
		c.Writer.Flush()
	}

	state := g.poller.Poll(ctx, pending.RetrievalRef, emit)
	if state != nets.StateConfirmed {
		g.logger.Info("QR payment polling ended without confirmation",
			zap.Uint64("user_id", uint64(userID)),
			zap.String("state", string(state)))
		return
	}

	// The provider has the money at this point. Finalize on a context
	// detached from the request so a client disconnect cannot abort the
	// order writes; the pending marker stays set until the writes land, so
	// a dropped client can still re-drive through completeNetsPayment.
	result, err := g.service.CompleteNetsPayment(context.WithoutCancel(ctx), userID)
	if err != nil {
		g.logger.Error("failed to finalize confirmed QR payment",
			zap.Uint64("user_id", uint64(userID)),
			zap.Error(err))
		emit(gin.H{
			"success": false,
			"error":   "payment confirmed but the order could not be saved, please contact support",
		})
		return
	}
	emit(gin.H{
		"success":           true,
		"order_id":          result.OrderID,
		"failed_decrements": result.FailedDecrements,
	})
}

// completeNetsPayment finalizes the caller's pending QR payment outside the
// status stream. It is the recovery path for a client that lost the stream
// after the provider confirmed: as long as the pending marker is alive the
// confirmed payment can still be turned into an order.
func (g *Gateway) completeNetsPayment(c *gin.Context) {
	userID := currentUserID(c)

	result, err := g.service.CompleteNetsPayment(c.Request.Context(), userID)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":           true,
		"order_id":          result.OrderID,
		"total":             result.Total,
		"failed_decrements": result.FailedDecrements,
	})
}

// refundOrder refunds an order's latest capture through the card provider.
func (g *Gateway) refundOrder(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("orderId"), 10, 64)
	if err != nil || orderID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req refundRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := g.service.RefundOrder(c.Request.Context(), orderID, req.Reason, req.Amount); err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
