package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/example/supermart/pkg/events"
	"github.com/example/supermart/pkg/models"
	"github.com/example/supermart/pkg/repository"
)

const (
	defaultLockTTL  = 30 * time.Second
	defaultCurrency = "SGD"
)

// Service orchestrates checkout across the catalog, cart, order and
// transaction stores plus the payment providers. Everything it depends on
// comes in through Params so tests can substitute fakes.
type Service struct {
	products     ProductStore
	carts        CartStore
	orders       OrderStore
	transactions TransactionStore
	users        UserStore
	session      SessionStore
	card         CardGateway
	qr           QRGateway
	publisher    EventPublisher
	audit        AuditLogger
	logger       *zap.Logger
	lockTTL      time.Duration
	currency     string
}

type Params struct {
	Products     ProductStore
	Carts        CartStore
	Orders       OrderStore
	Transactions TransactionStore
	Users        UserStore
	Session      SessionStore
	Card         CardGateway
	QR           QRGateway
	Publisher    EventPublisher
	Audit        AuditLogger
	Logger       *zap.Logger
	LockTTL      time.Duration
	Currency     string
}

func NewService(p Params) *Service {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.LockTTL <= 0 {
		p.LockTTL = defaultLockTTL
	}
	if p.Currency == "" {
		p.Currency = defaultCurrency
	}
	return &Service{
		products:     p.Products,
		carts:        p.Carts,
		orders:       p.Orders,
		transactions: p.Transactions,
		users:        p.Users,
		session:      p.Session,
		card:         p.Card,
		qr:           p.QR,
		publisher:    p.Publisher,
		audit:        p.Audit,
		logger:       p.Logger,
		lockTTL:      p.LockTTL,
		currency:     p.Currency,
	}
}

// RemovedItem is a cart line evicted because the product ran out of stock.
type RemovedItem struct {
	ProductID models.ProductID `json:"product_id"`
	Name      string           `json:"name"`
}

// AdjustedItem is a cart line clamped down to the remaining stock.
type AdjustedItem struct {
	ProductID models.ProductID `json:"product_id"`
	Name      string           `json:"name"`
	Old       int              `json:"old"`
	Now       int              `json:"now"`
}

// FailedDecrement records a stock decrement that did not apply after the
// order was already durable. Reported as a warning, never a failure.
type FailedDecrement struct {
	ProductID models.ProductID `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Reason    string           `json:"reason"`
}

// Result is the outcome of a successful checkout.
type Result struct {
	OrderID          uint64            `json:"order_id"`
	Total            float64           `json:"total"`
	Removed          []RemovedItem     `json:"removed,omitempty"`
	Adjusted         []AdjustedItem    `json:"adjusted,omitempty"`
	FailedDecrements []FailedDecrement `json:"failed_decrements,omitempty"`
}

// CreateOrder runs the plain (no payment provider) checkout: reconcile the
// cart against live stock, persist the order and its lines, decrement stock
// and clear the cart. The order header is the durability boundary; failures
// after it are downgraded to warnings on the result.
func (s *Service) CreateOrder(ctx context.Context, userID models.UserID) (*Result, error) {
	ok, err := s.session.AcquireCheckoutLock(ctx, userID, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire checkout lock: %w", err)
	}
	if !ok {
		return nil, ErrCheckoutInFlight
	}
	defer s.releaseLock(userID)

	items, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	lines, removed, adjusted, err := s.reconcile(ctx, userID, items)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, &CartDepletedError{Removed: removed, Adjusted: adjusted}
	}

	total := cartTotal(lines)
	address := s.resolveAddress(ctx, userID, "")

	order := &models.Order{
		UserID:    userID,
		Total:     total,
		Address:   address,
		CreatedAt: time.Now(),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	details := orderDetails(order.ID, lines, address)
	if err := s.orders.AddItems(ctx, order.ID, details); err != nil {
		return nil, &PersistenceError{OrderID: order.ID, Step: "saving order items", Err: err}
	}

	failed := s.decrementStock(ctx, details)

	if err := s.carts.Clear(ctx, userID); err != nil {
		s.logger.Error("failed to clear cart after checkout",
			zap.Uint64("user_id", uint64(userID)),
			zap.Uint64("order_id", order.ID),
			zap.Error(err))
	}
	s.invalidateCartCache(ctx, userID)

	s.afterOrderPlaced(order, failed, "direct")

	return &Result{
		OrderID:          order.ID,
		Total:            total,
		Removed:          removed,
		Adjusted:         adjusted,
		FailedDecrements: failed,
	}, nil
}

// reconcile walks every cart line against live stock before any order write:
// lines whose product is out of stock are evicted, lines wanting more than
// the remaining stock are clamped. Both mutations are persisted to the cart
// so the user sees the same state on a retry.
func (s *Service) reconcile(ctx context.Context, userID models.UserID, items []models.CartItem) (lines []models.CartItem, removed []RemovedItem, adjusted []AdjustedItem, err error) {
	for _, item := range items {
		product, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil, nil, nil, &ProductNotFoundError{ProductID: item.ProductID}
			}
			return nil, nil, nil, fmt.Errorf("failed to check stock for product %d: %w", item.ProductID, err)
		}

		switch {
		case product.Quantity <= 0:
			if err := s.carts.Remove(ctx, userID, item.ProductID); err != nil {
				s.logger.Error("failed to evict out-of-stock cart line",
					zap.Uint64("user_id", uint64(userID)),
					zap.Uint64("product_id", uint64(item.ProductID)),
					zap.Error(err))
			}
			removed = append(removed, RemovedItem{ProductID: item.ProductID, Name: product.ProductName})

		case item.Quantity > product.Quantity:
			price := item.Price
			if price <= 0 {
				price = product.Price
			}
			if err := s.carts.UpdateQuantity(ctx, userID, item.ProductID, product.Quantity, price); err != nil {
				s.logger.Error("failed to clamp cart line to stock",
					zap.Uint64("user_id", uint64(userID)),
					zap.Uint64("product_id", uint64(item.ProductID)),
					zap.Error(err))
			}
			adjusted = append(adjusted, AdjustedItem{
				ProductID: item.ProductID,
				Name:      product.ProductName,
				Old:       item.Quantity,
				Now:       product.Quantity,
			})
			item.Quantity = product.Quantity
			item.Price = price
			item.Total = models.Round2(float64(product.Quantity) * price)
			lines = append(lines, item)

		default:
			lines = append(lines, item)
		}
	}
	return lines, removed, adjusted, nil
}

// decrementStock applies the atomic conditional decrement per line. A line
// that no longer has enough stock, or whose update errors, is collected as
// a warning; the order already exists and is never rolled back.
func (s *Service) decrementStock(ctx context.Context, details []models.OrderDetail) []FailedDecrement {
	var failed []FailedDecrement
	for _, d := range details {
		rows, err := s.products.DecrementStock(ctx, d.ProductID, d.Quantity)
		if err != nil {
			failed = append(failed, FailedDecrement{ProductID: d.ProductID, Quantity: d.Quantity, Reason: err.Error()})
			continue
		}
		if rows == 0 {
			failed = append(failed, FailedDecrement{ProductID: d.ProductID, Quantity: d.Quantity, Reason: "insufficient stock"})
		}
	}
	if len(failed) > 0 {
		s.logger.Warn("some stock decrements did not apply", zap.Int("count", len(failed)))
	}
	return failed
}

// resolveAddress prefers the address provided with the request, falling
// back to the user's profile address. An empty result is acceptable.
func (s *Service) resolveAddress(ctx context.Context, userID models.UserID, provided string) string {
	if addr := strings.TrimSpace(provided); addr != "" {
		return addr
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load user profile for shipping address",
			zap.Uint64("user_id", uint64(userID)),
			zap.Error(err))
		return ""
	}
	return user.Address
}

func (s *Service) releaseLock(userID models.UserID) {
	if err := s.session.ReleaseCheckoutLock(context.Background(), userID); err != nil {
		s.logger.Warn("failed to release checkout lock",
			zap.Uint64("user_id", uint64(userID)),
			zap.Error(err))
	}
}

func (s *Service) invalidateCartCache(ctx context.Context, userID models.UserID) {
	if err := s.session.InvalidateCart(ctx, userID); err != nil {
		s.logger.Warn("failed to invalidate cart cache",
			zap.Uint64("user_id", uint64(userID)),
			zap.Error(err))
	}
}

// afterOrderPlaced emits the order.created event and audit record off the
// request path. Both are best effort.
func (s *Service) afterOrderPlaced(order *models.Order, failed []FailedDecrement, method string) {
	if s.publisher != nil {
		evt := map[string]interface{}{
			"order_id":       order.ID,
			"user_id":        uint64(order.UserID),
			"total":          order.Total,
			"payment_method": method,
			"created_at":     order.CreatedAt,
		}
		go func() {
			if err := s.publisher.Publish(context.Background(), events.OrderCreated, evt); err != nil {
				s.logger.Error("failed to publish order created event",
					zap.Uint64("order_id", order.ID),
					zap.Error(err))
			}
		}()
	}
	if s.audit != nil {
		entry := &repository.AuditLog{
			Action:   "create_order",
			EntityID: strconv.FormatUint(order.ID, 10),
			Data: bson.M{
				"user_id":           uint64(order.UserID),
				"total":             order.Total,
				"payment_method":    method,
				"failed_decrements": len(failed),
			},
		}
		go func() {
			if err := s.audit.CreateAuditLog(context.Background(), entry); err != nil {
				s.logger.Error("failed to write order audit log",
					zap.Uint64("order_id", order.ID),
					zap.Error(err))
			}
		}()
	}
}

func cartTotal(items []models.CartItem) float64 {
	var total float64
	for _, item := range items {
		line := item.Total
		if line <= 0 {
			line = models.Round2(float64(item.Quantity) * item.Price)
		}
		total += line
	}
	return models.Round2(total)
}

func orderDetails(orderID uint64, lines []models.CartItem, address string) []models.OrderDetail {
	details := make([]models.OrderDetail, 0, len(lines))
	for _, line := range lines {
		total := line.Total
		if total <= 0 {
			total = models.Round2(float64(line.Quantity) * line.Price)
		}
		details = append(details, models.OrderDetail{
			OrderID:   orderID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
			Total:     total,
			Address:   address,
		})
	}
	return details
}
