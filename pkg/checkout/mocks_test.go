package checkout

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/example/supermart/pkg/models"
	"github.com/example/supermart/pkg/payment/nets"
	"github.com/example/supermart/pkg/payment/paypal"
	"github.com/example/supermart/pkg/repository"
)

type MockProductStore struct {
	mock.Mock
}

func (m *MockProductStore) GetByID(ctx context.Context, id models.ProductID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*models.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductStore) DecrementStock(ctx context.Context, id models.ProductID, qty int) (int64, error) {
	args := m.Called(ctx, id, qty)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductStore) IncrementStock(ctx context.Context, id models.ProductID, qty int) error {
	args := m.Called(ctx, id, qty)
	return args.Error(0)
}

type MockCartStore struct {
	mock.Mock
}

func (m *MockCartStore) GetByUser(ctx context.Context, userID models.UserID) ([]models.CartItem, error) {
	args := m.Called(ctx, userID)
	if items := args.Get(0); items != nil {
		return items.([]models.CartItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCartStore) UpdateQuantity(ctx context.Context, userID models.UserID, productID models.ProductID, qty int, price float64) error {
	args := m.Called(ctx, userID, productID, qty, price)
	return args.Error(0)
}

func (m *MockCartStore) Remove(ctx context.Context, userID models.UserID, productID models.ProductID) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

func (m *MockCartStore) RemoveBulk(ctx context.Context, userID models.UserID, productIDs []models.ProductID) error {
	args := m.Called(ctx, userID, productIDs)
	return args.Error(0)
}

func (m *MockCartStore) Clear(ctx context.Context, userID models.UserID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) Create(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderStore) AddItems(ctx context.Context, orderID uint64, items []models.OrderDetail) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *MockOrderStore) GetItems(ctx context.Context, orderID uint64) ([]models.OrderDetailRow, error) {
	args := m.Called(ctx, orderID)
	if rows := args.Get(0); rows != nil {
		return rows.([]models.OrderDetailRow), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockTransactionStore struct {
	mock.Mock
}

func (m *MockTransactionStore) Create(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionStore) LatestByOrderID(ctx context.Context, orderID uint64) (*models.Transaction, error) {
	args := m.Called(ctx, orderID)
	if tx := args.Get(0); tx != nil {
		return tx.(*models.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionStore) UpdateStatusByOrderID(ctx context.Context, orderID uint64, status string, refundReason *string) error {
	args := m.Called(ctx, orderID, status, refundReason)
	return args.Error(0)
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByID(ctx context.Context, id models.UserID) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) AcquireCheckoutLock(ctx context.Context, userID models.UserID, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, userID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionStore) ReleaseCheckoutLock(ctx context.Context, userID models.UserID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockSessionStore) InvalidateCart(ctx context.Context, userID models.UserID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockSessionStore) SetPendingQRPayment(ctx context.Context, userID models.UserID, pending *repository.PendingQRPayment) error {
	args := m.Called(ctx, userID, pending)
	return args.Error(0)
}

func (m *MockSessionStore) GetPendingQRPayment(ctx context.Context, userID models.UserID) (*repository.PendingQRPayment, error) {
	args := m.Called(ctx, userID)
	if p := args.Get(0); p != nil {
		return p.(*repository.PendingQRPayment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionStore) ClearPendingQRPayment(ctx context.Context, userID models.UserID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockCardGateway struct {
	mock.Mock
}

func (m *MockCardGateway) CreateOrder(ctx context.Context, amount float64) (string, error) {
	args := m.Called(ctx, amount)
	return args.String(0), args.Error(1)
}

func (m *MockCardGateway) CaptureOrder(ctx context.Context, providerOrderID string) (*paypal.OrderResult, error) {
	args := m.Called(ctx, providerOrderID)
	if r := args.Get(0); r != nil {
		return r.(*paypal.OrderResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCardGateway) RefundCapture(ctx context.Context, captureID string, amount *float64) (*paypal.RefundResult, error) {
	args := m.Called(ctx, captureID, amount)
	if r := args.Get(0); r != nil {
		return r.(*paypal.RefundResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockQRGateway struct {
	mock.Mock
}

func (m *MockQRGateway) Request(ctx context.Context, amountDollars float64) (*nets.Response, error) {
	args := m.Called(ctx, amountDollars)
	if r := args.Get(0); r != nil {
		return r.(*nets.Response), args.Error(1)
	}
	return nil, args.Error(1)
}

type testMocks struct {
	products     *MockProductStore
	carts        *MockCartStore
	orders       *MockOrderStore
	transactions *MockTransactionStore
	users        *MockUserStore
	session      *MockSessionStore
	card         *MockCardGateway
	qr           *MockQRGateway
}

func newTestService() (*Service, *testMocks) {
	m := &testMocks{
		products:     new(MockProductStore),
		carts:        new(MockCartStore),
		orders:       new(MockOrderStore),
		transactions: new(MockTransactionStore),
		users:        new(MockUserStore),
		session:      new(MockSessionStore),
		card:         new(MockCardGateway),
		qr:           new(MockQRGateway),
	}
	service := NewService(Params{
		Products:     m.products,
		Carts:        m.carts,
		Orders:       m.orders,
		Transactions: m.transactions,
		Users:        m.users,
		Session:      m.session,
		Card:         m.card,
		QR:           m.qr,
		Logger:       zap.NewNop(),
	})
	return service, m
}

// expectLock wires the happy-path lock acquire/release pair.
func (m *testMocks) expectLock(userID models.UserID) {
	m.session.On("AcquireCheckoutLock", mock.Anything, userID, mock.Anything).Return(true, nil)
	m.session.On("ReleaseCheckoutLock", mock.Anything, userID).Return(nil)
}
