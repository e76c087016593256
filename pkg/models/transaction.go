package models

import (
	"time"
)

const (
	TxStatusCompleted             = "COMPLETED"
	TxStatusCompletedWithWarnings = "COMPLETED_WITH_WARNINGS"
	TxStatusRefunded              = "REFUNDED"
)

// PayerIDNets marks a transaction as paid through the NETS QR flow, which has
// no per-capture payer identity.
const PayerIDNets = "NETS"

// Transaction records the payment-provider reconciliation for an order. The
// schema allows many rows per order; readers always take the latest.
type Transaction struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID      uint64    `gorm:"column:orderId;not null;index" json:"order_id"`
	CaptureID    *string   `gorm:"column:captureId;type:varchar(64)" json:"capture_id"`
	PayerID      string    `gorm:"column:payerId;type:varchar(64)" json:"payer_id"`
	PayerEmail   string    `gorm:"column:payerEmail;type:varchar(100)" json:"payer_email"`
	Amount       float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency     string    `gorm:"type:varchar(8);not null" json:"currency"`
	Status       string    `gorm:"type:varchar(32);not null" json:"status"`
	Time         time.Time `json:"time"`
	RefundReason *string   `gorm:"column:refundReason;type:varchar(255)" json:"refund_reason"`
}

func (Transaction) TableName() string {
	return "transactions"
}
