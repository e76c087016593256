package models

import (
	"math"
	"time"
)

type Product struct {
	ID          ProductID `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductName string    `gorm:"type:varchar(100);not null" json:"product_name"`
	Quantity    int       `gorm:"not null;default:0" json:"quantity"`
	Price       float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	Image       string    `gorm:"type:varchar(255)" json:"image"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// Round2 rounds a monetary amount to cents. All stored totals and every
// amount sent to a payment provider go through this.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
