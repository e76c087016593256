package checkout

import (
	"context"
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/example/supermart/pkg/events"
	"github.com/example/supermart/pkg/models"
	"github.com/example/supermart/pkg/repository"
)

// RefundOrder refunds the latest capture recorded for the order through the
// card provider, marks the transaction REFUNDED and restores the stock the
// order consumed. A nil amount refunds the full capture.
func (s *Service) RefundOrder(ctx context.Context, orderID uint64, reason string, amount *float64) error {
	tx, err := s.transactions.LatestByOrderID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to look up transaction: %w", err)
	}
	if tx == nil || tx.CaptureID == nil || *tx.CaptureID == "" {
		return &NoTransactionFoundError{OrderID: orderID}
	}
	if tx.Status == models.TxStatusRefunded {
		return &RefundFailedError{Detail: fmt.Sprintf("order %d is already refunded", orderID)}
	}

	result, err := s.card.RefundCapture(ctx, *tx.CaptureID, amount)
	if err != nil {
		return &RefundFailedError{Detail: err.Error()}
	}
	if result.Status != models.TxStatusCompleted {
		return &RefundFailedError{Status: result.Status}
	}

	if err := s.transactions.UpdateStatusByOrderID(ctx, orderID, models.TxStatusRefunded, &reason); err != nil {
		return &PersistenceError{OrderID: orderID, Step: "marking transaction refunded", Err: err}
	}

	s.restoreStock(ctx, orderID)

	if s.publisher != nil {
		evt := map[string]interface{}{
			"order_id":  orderID,
			"refund_id": result.ID,
			"reason":    reason,
		}
		go func() {
			if err := s.publisher.Publish(context.Background(), events.OrderRefunded, evt); err != nil {
				s.logger.Error("failed to publish order refunded event",
					zap.Uint64("order_id", orderID),
					zap.Error(err))
			}
		}()
	}
	if s.audit != nil {
		entry := &repository.AuditLog{
			Action:   "refund_order",
			EntityID: strconv.FormatUint(orderID, 10),
			Data: bson.M{
				"refund_id": result.ID,
				"reason":    reason,
			},
		}
		go func() {
			if err := s.audit.CreateAuditLog(context.Background(), entry); err != nil {
				s.logger.Error("failed to write refund audit log",
					zap.Uint64("order_id", orderID),
					zap.Error(err))
			}
		}()
	}

	s.logger.Info("order refunded",
		zap.Uint64("order_id", orderID),
		zap.String("refund_id", result.ID))
	return nil
}

// restoreStock puts the order's quantities back on the shelf. The refund is
// already confirmed provider-side, so failures here are logged, not raised.
func (s *Service) restoreStock(ctx context.Context, orderID uint64) {
	items, err := s.orders.GetItems(ctx, orderID)
	if err != nil {
		s.logger.Error("failed to load order items for stock restore",
			zap.Uint64("order_id", orderID),
			zap.Error(err))
		return
	}
	for _, item := range items {
		if err := s.products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("failed to restore stock",
				zap.Uint64("order_id", orderID),
				zap.Uint64("product_id", uint64(item.ProductID)),
				zap.Error(err))
		}
	}
}
