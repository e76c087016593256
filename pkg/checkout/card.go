package checkout

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/example/supermart/pkg/models"
	"github.com/example/supermart/pkg/payment/paypal"
)

// CreateCardOrder validates the cart and opens a capture-intent order with
// the card provider. Nothing is written locally; the local order appears
// only once the capture completes.
func (s *Service) CreateCardOrder(ctx context.Context, userID models.UserID) (string, float64, error) {
	items, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return "", 0, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(items) == 0 {
		return "", 0, ErrEmptyCart
	}

	total := cartTotal(items)
	if total <= 0 {
		return "", 0, ErrInvalidAmount
	}

	providerOrderID, err := s.card.CreateOrder(ctx, total)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create provider order: %w", err)
	}

	s.logger.Info("card payment order created",
		zap.Uint64("user_id", uint64(userID)),
		zap.String("provider_order_id", providerOrderID),
		zap.Float64("amount", total))
	return providerOrderID, total, nil
}

// CaptureCardPayment captures the approved provider order and, only on a
// COMPLETED capture, persists the local order, transaction and items, then
// settles stock and the cart. The live cart remains the source of truth for
// the order lines and total.
func (s *Service) CaptureCardPayment(ctx context.Context, userID models.UserID, providerOrderID, address string) (*Result, error) {
	ok, err := s.session.AcquireCheckoutLock(ctx, userID, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire checkout lock: %w", err)
	}
	if !ok {
		return nil, ErrCheckoutInFlight
	}
	defer s.releaseLock(userID)

	result, err := s.card.CaptureOrder(ctx, providerOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to capture payment: %w", err)
	}
	if result.Status != models.TxStatusCompleted {
		return nil, &PaymentNotCompletedError{Status: result.Status}
	}
	capture, ok := result.FirstCapture()
	if !ok {
		return nil, fmt.Errorf("capture response for provider order %s contains no captures", providerOrderID)
	}

	items, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	total := cartTotal(items)
	addr := s.resolveAddress(ctx, userID, address)

	order := &models.Order{
		UserID:    userID,
		Total:     total,
		Address:   addr,
		CreatedAt: time.Now(),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	tx := cardTransaction(order.ID, total, result, capture)
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, &PersistenceError{OrderID: order.ID, Step: "recording transaction", Err: err}
	}

	details := orderDetails(order.ID, items, addr)
	if err := s.orders.AddItems(ctx, order.ID, details); err != nil {
		return nil, &PersistenceError{OrderID: order.ID, Step: "saving order items", Err: err}
	}

	failed := s.decrementStock(ctx, details)

	productIDs := make([]models.ProductID, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}
	if err := s.carts.RemoveBulk(ctx, userID, productIDs); err != nil {
		s.logger.Error("failed to clear cart after card payment",
			zap.Uint64("user_id", uint64(userID)),
			zap.Uint64("order_id", order.ID),
			zap.Error(err))
	}
	s.invalidateCartCache(ctx, userID)

	s.afterOrderPlaced(order, failed, "paypal")

	return &Result{OrderID: order.ID, Total: total, FailedDecrements: failed}, nil
}

// cardTransaction maps a provider capture onto the transaction record. The
// provider's own amount and timestamp win when they parse; the status is
// stored verbatim.
func cardTransaction(orderID uint64, total float64, result *paypal.OrderResult, capture *paypal.Capture) *models.Transaction {
	amount := total
	if v, err := strconv.ParseFloat(capture.Amount.Value, 64); err == nil && v > 0 {
		amount = v
	}
	capturedAt := time.Now()
	if t, err := time.Parse(time.RFC3339, capture.CreateTime); err == nil {
		capturedAt = t
	}

	captureID := capture.ID
	return &models.Transaction{
		OrderID:    orderID,
		CaptureID:  &captureID,
		PayerID:    result.Payer.PayerID,
		PayerEmail: result.Payer.EmailAddress,
		Amount:     amount,
		Currency:   capture.Amount.CurrencyCode,
		Status:     result.Status,
		Time:       capturedAt,
	}
}
