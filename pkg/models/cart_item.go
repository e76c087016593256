package models

import (
	"time"
)

// MaxCartLineQuantity caps how many units of one product a single user may
// hold in their cart.
const MaxCartLineQuantity = 10

type CartItem struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    UserID    `gorm:"column:userid;not null;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID ProductID `gorm:"column:productid;not null;uniqueIndex:idx_cart_user_product" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Price     float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	Total     float64   `gorm:"type:decimal(10,2);not null" json:"total"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}
