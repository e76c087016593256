package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/supermart/pkg/models"
	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("failed to record transaction for order %d: %w", tx.OrderID, err)
	}
	return nil
}

// LatestByOrderID returns the newest transaction for an order, or nil when
// the order has none.
func (r *TransactionRepository) LatestByOrderID(ctx context.Context, orderID uint64) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).
		Where("orderId = ?", orderID).
		Order("id DESC").
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load transaction for order %d: %w", orderID, err)
	}
	return &tx, nil
}

// LatestByOrderIDs returns the newest transaction per order id, for
// attaching payment info to order listings.
func (r *TransactionRepository) LatestByOrderIDs(ctx context.Context, orderIDs []uint64) (map[uint64]models.Transaction, error) {
	result := make(map[uint64]models.Transaction, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("id IN (?)", r.db.Model(&models.Transaction{}).
			Select("MAX(id)").
			Where("orderId IN ?", orderIDs).
			Group("orderId"),
		).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	for _, tx := range txs {
		result[tx.OrderID] = tx
	}
	return result, nil
}

// UpdateStatusByOrderID transitions every transaction row of an order to the
// given status, persisting the refund reason when one is supplied.
func (r *TransactionRepository) UpdateStatusByOrderID(ctx context.Context, orderID uint64, status string, refundReason *string) error {
	updates := map[string]interface{}{"status": status}
	if refundReason != nil {
		updates["refundReason"] = *refundReason
	}
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("orderId = ?", orderID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update transaction status for order %d: %w", orderID, err)
	}
	return nil
}
