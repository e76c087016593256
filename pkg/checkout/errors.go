package checkout

import (
	"errors"
	"fmt"

	"github.com/example/supermart/pkg/models"
)

var (
	// ErrEmptyCart means there is nothing to order or pay for.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrCheckoutInFlight means another checkout for the same user holds the lock.
	ErrCheckoutInFlight = errors.New("another checkout is already in progress")

	// ErrInvalidAmount means the cart total is not positive, so no payment
	// order may be created with the provider.
	ErrInvalidAmount = errors.New("cart total must be greater than zero")

	// ErrNoPendingPayment means no QR payment marker exists for the user.
	ErrNoPendingPayment = errors.New("no pending QR payment for user")
)

// ProductNotFoundError reports a cart line referencing a product that no
// longer exists. The checkout aborts before any write.
type ProductNotFoundError struct {
	ProductID models.ProductID
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d referenced by cart no longer exists", e.ProductID)
}

// CartDepletedError reports that stock reconciliation left no orderable
// lines. The evictions and clamps it carries have already been persisted.
type CartDepletedError struct {
	Removed  []RemovedItem
	Adjusted []AdjustedItem
}

func (e *CartDepletedError) Error() string {
	return "no items left to order after stock reconciliation"
}

// PaymentNotCompletedError reports a provider capture or refund that
// finished in any status other than COMPLETED.
type PaymentNotCompletedError struct {
	Status string
}

func (e *PaymentNotCompletedError) Error() string {
	return fmt.Sprintf("payment was not completed, provider status %q", e.Status)
}

// PersistenceError reports a store write that failed after the order header
// was already durable. The order survives; the caller should surface the
// order ID so support can repair the remainder.
type PersistenceError struct {
	OrderID uint64
	Step    string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("order %d created but %s failed: %v", e.OrderID, e.Step, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NoTransactionFoundError reports a refund request against an order with no
// capture on record.
type NoTransactionFoundError struct {
	OrderID uint64
}

func (e *NoTransactionFoundError) Error() string {
	return fmt.Sprintf("no completed transaction found for order %d", e.OrderID)
}

// RefundFailedError reports a refund the provider rejected or left in a
// non-completed status.
type RefundFailedError struct {
	Status string
	Detail string
}

func (e *RefundFailedError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("refund was not completed, provider status %q", e.Status)
	}
	return fmt.Sprintf("refund failed: %s", e.Detail)
}

// QRRequestError reports a QR issuance the payment network declined.
type QRRequestError struct {
	ResponseCode  string
	NetworkStatus int
	Instruction   string
	ErrorMessage  string
}

func (e *QRRequestError) Error() string {
	msg := e.ErrorMessage
	if msg == "" {
		msg = e.Instruction
	}
	if msg == "" {
		msg = "QR code request declined"
	}
	return fmt.Sprintf("%s (response code %s)", msg, e.ResponseCode)
}
