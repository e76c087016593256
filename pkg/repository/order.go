package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/supermart/pkg/models"
	"gorm.io/gorm"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order header. The store assigns the id; callers read it
// back from order.ID.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// AddItems batch-inserts the order lines for an existing order header.
func (r *OrderRepository) AddItems(ctx context.Context, orderID uint64, items []models.OrderDetail) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
		return fmt.Errorf("failed to insert order items for order %d: %w", orderID, err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id uint64) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	return &order, nil
}

func (r *OrderRepository) GetByUser(ctx context.Context, userID models.UserID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("userid = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for user %d: %w", userID, err)
	}
	return orders, nil
}

// GetItems returns an order's lines joined with the product catalog for
// display names and current unit prices.
func (r *OrderRepository) GetItems(ctx context.Context, orderID uint64) ([]models.OrderDetailRow, error) {
	var rows []models.OrderDetailRow
	err := r.db.WithContext(ctx).
		Table("order_details od").
		Select("od.*, p.product_name AS product_name, p.price AS unit_price").
		Joins("LEFT JOIN products p ON p.id = od.productid").
		Where("od.orderid = ?", orderID).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load items for order %d: %w", orderID, err)
	}
	return rows, nil
}
