package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/supermart/pkg/models"
	"github.com/example/supermart/pkg/repository"
)

// QRIssue is the outcome of a successful QR issuance: the code to render
// and the retrieval reference the status poller tracks.
type QRIssue struct {
	Amount        float64 `json:"amount"`
	QRCodeBase64  string  `json:"qr_code"`
	RetrievalRef  string  `json:"txn_retrieval_ref"`
	NetworkStatus int     `json:"network_status"`
}

// IssueNetsQR requests a payment QR code for the current cart total and
// stores a pending-payment marker so the confirmation step knows the amount
// and address the code was issued against.
func (s *Service) IssueNetsQR(ctx context.Context, userID models.UserID, address string) (*QRIssue, error) {
	items, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	total := cartTotal(items)
	if total <= 0 {
		return nil, ErrInvalidAmount
	}

	resp, err := s.qr.Request(ctx, total)
	if err != nil {
		return nil, fmt.Errorf("failed to request QR code: %w", err)
	}

	data := resp.Result.Data
	if data.ResponseCode != "00" || data.TxnStatus != 1 || data.QRCode == "" {
		code := data.ResponseCode
		if code == "" {
			code = "N.A."
		}
		return nil, &QRRequestError{
			ResponseCode:  code,
			NetworkStatus: data.NetworkStatus,
			Instruction:   data.Instruction,
			ErrorMessage:  data.ErrorMessage,
		}
	}

	pending := &repository.PendingQRPayment{
		Amount:       total,
		RetrievalRef: data.TxnRetrievalRef,
		Address:      strings.TrimSpace(address),
	}
	if err := s.session.SetPendingQRPayment(ctx, userID, pending); err != nil {
		return nil, fmt.Errorf("failed to store pending QR payment: %w", err)
	}

	s.logger.Info("QR code issued",
		zap.Uint64("user_id", uint64(userID)),
		zap.String("txn_retrieval_ref", data.TxnRetrievalRef),
		zap.Float64("amount", total))
	return &QRIssue{
		Amount:        total,
		QRCodeBase64:  data.QRCode,
		RetrievalRef:  data.TxnRetrievalRef,
		NetworkStatus: data.NetworkStatus,
	}, nil
}

// CompleteNetsPayment finalizes a QR payment the poller confirmed: the
// pending marker supplies the paid amount and address, the live cart
// supplies the lines. Decrement failures downgrade the transaction status
// to COMPLETED_WITH_WARNINGS rather than failing the order.
func (s *Service) CompleteNetsPayment(ctx context.Context, userID models.UserID) (*Result, error) {
	ok, err := s.session.AcquireCheckoutLock(ctx, userID, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire checkout lock: %w", err)
	}
	if !ok {
		return nil, ErrCheckoutInFlight
	}
	defer s.releaseLock(userID)

	pending, err := s.session.GetPendingQRPayment(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending QR payment: %w", err)
	}
	if pending == nil || pending.Amount <= 0 {
		return nil, ErrNoPendingPayment
	}

	items, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	addr := s.resolveAddress(ctx, userID, pending.Address)

	order := &models.Order{
		UserID:    userID,
		Total:     pending.Amount,
		Address:   addr,
		CreatedAt: time.Now(),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	details := orderDetails(order.ID, items, addr)
	if err := s.orders.AddItems(ctx, order.ID, details); err != nil {
		return nil, &PersistenceError{OrderID: order.ID, Step: "saving order items", Err: err}
	}

	failed := s.decrementStock(ctx, details)

	status := models.TxStatusCompleted
	if len(failed) > 0 {
		status = models.TxStatusCompletedWithWarnings
	}

	payerEmail := "unknown@customer.local"
	if user, err := s.users.GetByID(ctx, userID); err == nil && user.Email != "" {
		payerEmail = user.Email
	}

	var captureID *string
	if pending.RetrievalRef != "" {
		ref := pending.RetrievalRef
		captureID = &ref
	}
	tx := &models.Transaction{
		OrderID:    order.ID,
		CaptureID:  captureID,
		PayerID:    models.PayerIDNets,
		PayerEmail: payerEmail,
		Amount:     pending.Amount,
		Currency:   s.currency,
		Status:     status,
		Time:       time.Now(),
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, &PersistenceError{OrderID: order.ID, Step: "recording transaction", Err: err}
	}

	if err := s.carts.Clear(ctx, userID); err != nil {
		s.logger.Error("failed to clear cart after QR payment",
			zap.Uint64("user_id", uint64(userID)),
			zap.Uint64("order_id", order.ID),
			zap.Error(err))
	}
	if err := s.session.ClearPendingQRPayment(ctx, userID); err != nil {
		s.logger.Warn("failed to clear pending QR payment marker",
			zap.Uint64("user_id", uint64(userID)),
			zap.Error(err))
	}
	s.invalidateCartCache(ctx, userID)

	s.afterOrderPlaced(order, failed, "nets")

	return &Result{OrderID: order.ID, Total: pending.Amount, FailedDecrements: failed}, nil
}
