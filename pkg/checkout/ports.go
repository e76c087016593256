package checkout

import (
	"context"
	"time"

	"github.com/example/supermart/pkg/models"
	"github.com/example/supermart/pkg/payment/nets"
	"github.com/example/supermart/pkg/payment/paypal"
	"github.com/example/supermart/pkg/repository"
)

// ProductStore is the inventory contract. DecrementStock must be a single
// atomic conditional update reporting affected rows; the orchestrator never
// reads-then-writes stock.
type ProductStore interface {
	GetByID(ctx context.Context, id models.ProductID) (*models.Product, error)
	DecrementStock(ctx context.Context, id models.ProductID, qty int) (int64, error)
	IncrementStock(ctx context.Context, id models.ProductID, qty int) error
}

type CartStore interface {
	GetByUser(ctx context.Context, userID models.UserID) ([]models.CartItem, error)
	UpdateQuantity(ctx context.Context, userID models.UserID, productID models.ProductID, qty int, price float64) error
	Remove(ctx context.Context, userID models.UserID, productID models.ProductID) error
	RemoveBulk(ctx context.Context, userID models.UserID, productIDs []models.ProductID) error
	Clear(ctx context.Context, userID models.UserID) error
}

type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	AddItems(ctx context.Context, orderID uint64, items []models.OrderDetail) error
	GetItems(ctx context.Context, orderID uint64) ([]models.OrderDetailRow, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	LatestByOrderID(ctx context.Context, orderID uint64) (*models.Transaction, error)
	UpdateStatusByOrderID(ctx context.Context, orderID uint64, status string, refundReason *string) error
}

type UserStore interface {
	GetByID(ctx context.Context, id models.UserID) (*models.User, error)
}

// SessionStore holds the ephemeral per-user state around a checkout: the
// single-flight lock, the cart snapshot cache, and the pending QR marker.
type SessionStore interface {
	AcquireCheckoutLock(ctx context.Context, userID models.UserID, ttl time.Duration) (bool, error)
	ReleaseCheckoutLock(ctx context.Context, userID models.UserID) error
	InvalidateCart(ctx context.Context, userID models.UserID) error
	SetPendingQRPayment(ctx context.Context, userID models.UserID, pending *repository.PendingQRPayment) error
	GetPendingQRPayment(ctx context.Context, userID models.UserID) (*repository.PendingQRPayment, error)
	ClearPendingQRPayment(ctx context.Context, userID models.UserID) error
}

// CardGateway is the card-network provider (create intent, capture, refund).
type CardGateway interface {
	CreateOrder(ctx context.Context, amount float64) (string, error)
	CaptureOrder(ctx context.Context, providerOrderID string) (*paypal.OrderResult, error)
	RefundCapture(ctx context.Context, captureID string, amount *float64) (*paypal.RefundResult, error)
}

// QRGateway issues QR codes; status polling goes through nets.Poller.
type QRGateway interface {
	Request(ctx context.Context, amountDollars float64) (*nets.Response, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, data interface{}) error
}

type AuditLogger interface {
	CreateAuditLog(ctx context.Context, log *repository.AuditLog) error
}

var (
	_ ProductStore     = (*repository.ProductRepository)(nil)
	_ CartStore        = (*repository.CartRepository)(nil)
	_ OrderStore       = (*repository.OrderRepository)(nil)
	_ TransactionStore = (*repository.TransactionRepository)(nil)
	_ UserStore        = (*repository.UserRepository)(nil)
	_ SessionStore     = (*repository.RedisRepository)(nil)
	_ CardGateway      = (*paypal.Client)(nil)
	_ QRGateway        = (*nets.Client)(nil)
)
