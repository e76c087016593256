package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/supermart/pkg/models"
	"gorm.io/gorm"
)

// ErrCartLimitExceeded reports that an add was clamped to the per-product
// cap. The clamped line is persisted; the caller only needs the message.
var ErrCartLimitExceeded = errors.New("maximum units per product exceeded")

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) GetByUser(ctx context.Context, userID models.UserID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("userid = ?", userID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load cart for user %d: %w", userID, err)
	}
	return items, nil
}

// Add inserts a new cart line or tops up an existing one, clamping the
// resulting quantity at models.MaxCartLineQuantity. The unit price passed in
// becomes the line's price snapshot.
func (r *CartRepository) Add(ctx context.Context, userID models.UserID, productID models.ProductID, qty int, price float64) error {
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	var capped bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CartItem
		err := tx.Where("userid = ? AND productid = ?", userID, productID).First(&existing).Error
		switch {
		case err == nil:
			newQty := existing.Quantity + qty
			if newQty > models.MaxCartLineQuantity {
				newQty = models.MaxCartLineQuantity
				capped = true
			}
			return tx.Model(&models.CartItem{}).
				Where("id = ?", existing.ID).
				Updates(map[string]interface{}{
					"quantity": newQty,
					"price":    price,
					"total":    models.Round2(float64(newQty) * price),
				}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			if qty > models.MaxCartLineQuantity {
				qty = models.MaxCartLineQuantity
				capped = true
			}
			return tx.Create(&models.CartItem{
				UserID:    userID,
				ProductID: productID,
				Quantity:  qty,
				Price:     price,
				Total:     models.Round2(float64(qty) * price),
			}).Error
		default:
			return err
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	if capped {
		return ErrCartLimitExceeded
	}
	return nil
}

// UpdateQuantity overwrites a line's quantity and recomputes its total. Used
// by checkout reconciliation to clamp a line down to available stock.
func (r *CartRepository) UpdateQuantity(ctx context.Context, userID models.UserID, productID models.ProductID, qty int, price float64) error {
	err := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("userid = ? AND productid = ?", userID, productID).
		Updates(map[string]interface{}{
			"quantity": qty,
			"price":    price,
			"total":    models.Round2(float64(qty) * price),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update cart quantity: %w", err)
	}
	return nil
}

// Decrement lowers a line's quantity, flooring at zero, and deletes the line
// once it is empty.
func (r *CartRepository) Decrement(ctx context.Context, userID models.UserID, productID models.ProductID, amount int) error {
	if amount <= 0 {
		amount = 1
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Exec(
			"UPDATE cart_items SET quantity = GREATEST(quantity - ?, 0), total = GREATEST(quantity - ?, 0) * price WHERE userid = ? AND productid = ?",
			amount, amount, userID, productID,
		).Error
		if err != nil {
			return err
		}
		return tx.Where("userid = ? AND productid = ? AND quantity <= 0", userID, productID).
			Delete(&models.CartItem{}).Error
	})
}

func (r *CartRepository) Remove(ctx context.Context, userID models.UserID, productID models.ProductID) error {
	return r.db.WithContext(ctx).
		Where("userid = ? AND productid = ?", userID, productID).
		Delete(&models.CartItem{}).Error
}

// RemoveBulk deletes the given product lines from a user's cart. Payment
// completion uses it to remove exactly the lines that were paid for.
func (r *CartRepository) RemoveBulk(ctx context.Context, userID models.UserID, productIDs []models.ProductID) error {
	if len(productIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("userid = ? AND productid IN ?", userID, productIDs).
		Delete(&models.CartItem{}).Error
}

func (r *CartRepository) Clear(ctx context.Context, userID models.UserID) error {
	return r.db.WithContext(ctx).
		Where("userid = ?", userID).
		Delete(&models.CartItem{}).Error
}
