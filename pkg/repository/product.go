package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/supermart/pkg/models"
	"gorm.io/gorm"
)

var ErrProductNotFound = errors.New("product not found")

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) GetByID(ctx context.Context, id models.ProductID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return &product, nil
}

func (r *ProductRepository) List(ctx context.Context, limit, offset int) ([]models.Product, int64, error) {
	var products []models.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Product{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]interface{}{
			"product_name": product.ProductName,
			"quantity":     product.Quantity,
			"price":        product.Price,
			"image":        product.Image,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id models.ProductID) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DecrementStock applies "decrement by qty only if quantity >= qty" as a
// single conditional UPDATE and returns the affected-row count. Zero rows
// means the stock was insufficient (or the product vanished) at commit time;
// the quantity column is never driven negative. This is the only write path
// that reduces stock.
func (r *ProductRepository) DecrementStock(ctx context.Context, id models.ProductID, qty int) (int64, error) {
	if qty <= 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND quantity >= ?", id, qty).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return 0, fmt.Errorf("failed to decrement stock for product %d: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

// IncrementStock restores stock after a refund. Restoration is not
// validation-gated.
func (r *ProductRepository) IncrementStock(ctx context.Context, id models.ProductID, qty int) error {
	if qty <= 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", qty))
	if res.Error != nil {
		return fmt.Errorf("failed to increment stock for product %d: %w", id, res.Error)
	}
	return nil
}
