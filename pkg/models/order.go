package models

import (
	"time"
)

// Order is the immutable order header. There is no update path: once a row
// exists the checkout succeeded past its durability boundary.
type Order struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    UserID    `gorm:"column:userid;not null;index" json:"user_id"`
	Total     float64   `gorm:"type:decimal(10,2);not null" json:"total"`
	Address   string    `gorm:"type:varchar(255)" json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderDetail struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint64    `gorm:"column:orderid;not null;index" json:"order_id"`
	ProductID ProductID `gorm:"column:productid;not null" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Price     float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	Total     float64   `gorm:"type:decimal(10,2);not null" json:"total"`
	Address   string    `gorm:"type:varchar(255)" json:"address"`
}

func (OrderDetail) TableName() string {
	return "order_details"
}

// OrderDetailRow is an order line joined with its product's current catalog
// entry for display.
type OrderDetailRow struct {
	OrderDetail
	ProductName string  `json:"product_name"`
	UnitPrice   float64 `json:"unit_price"`
}
