package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/example/supermart/pkg/models"
	"github.com/example/supermart/pkg/repository"
)

const testUser = models.UserID(7)

func cartLine(productID uint64, qty int, price float64) models.CartItem {
	return models.CartItem{
		UserID:    testUser,
		ProductID: models.ProductID(productID),
		Quantity:  qty,
		Price:     price,
		Total:     models.Round2(float64(qty) * price),
	}
}

func stubProduct(id uint64, name string, stock int, price float64) *models.Product {
	return &models.Product{
		ID:          models.ProductID(id),
		ProductName: name,
		Quantity:    stock,
		Price:       price,
	}
}

func TestService_CreateOrder(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(m *testMocks)
		check      func(t *testing.T, result *Result, err error, m *testMocks)
	}{
		{
			name: "successful checkout",
			setupMocks: func(m *testMocks) {
				m.expectLock(testUser)
				m.carts.On("GetByUser", mock.Anything, testUser).Return([]models.CartItem{
					cartLine(1, 2, 10.50),
					cartLine(2, 1, 5.00),
				}, nil)
				m.products.On("GetByID", mock.Anything, models.ProductID(1)).Return(stubProduct(1, "Milk", 10, 10.50), nil)
				m.products.On("GetByID", mock.Anything, models.ProductID(2)).Return(stubProduct(2, "Bread", 4, 5.00), nil)
				m.users.On("GetByID", mock.Anything, testUser).Return(&models.User{Address: "10 Bayfront Ave"}, nil)
				m.orders.On("Create", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil).Run(func(args mock.Arguments) {
					args.Get(1).(*models.Order).ID = 42
				})
				m.orders.On("AddItems", mock.Anything, uint64(42), mock.AnythingOfType("[]models.OrderDetail")).Return(nil)
				m.products.On("DecrementStock", mock.Anything, models.ProductID(1), 2).Return(int64(1), nil)
				m.products.On("DecrementStock", mock.Anything, models.ProductID(2), 1).Return(int64(1), nil)
				m.carts.On("Clear", mock.Anything, testUser).Return(nil)
				m.session.On("InvalidateCart", mock.Anything, testUser).Return(nil)
			},
			check: func(t *testing.T, result *Result, err error, m *testMocks) {
				assert.NoError(t, err)
				assert.Equal(t, uint64(42), result.OrderID)
				assert.Equal(t, 26.00, result.Total)
				assert.Empty(t, result.Removed)
				assert.Empty(t, result.Adjusted)
				assert.Empty(t, result.FailedDecrements)
				// A plain checkout never records a payment transaction.
				m.transactions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			},
		},
		{
			name: "checkout already in flight",
			setupMocks: func(m *testMocks) {
				m.session.On("AcquireCheckoutLock", mock.Anything, testUser, mock.Anything).Return(false, nil)
			},
			check: func(t *testing.T, result *Result, err error, m *testMocks) {
				assert.ErrorIs(t, err, ErrCheckoutInFlight)
				assert.Nil(t, result)
				m.carts.AssertNotCalled(t, "GetByUser", mock.Anything, mock.Anything)
			},
		},
		{
			name: "empty cart",
			setupMocks: func(m *testMocks) {
				m.expectLock(testUser)
				m.carts.On("GetByUser", mock.Anything, testUser).Return([]models.CartItem{}, nil)
			},
			check: func(t *testing.T, result *Result, err error, m *testMocks) {
				assert.ErrorIs(t, err, ErrEmptyCart)
				assert.Nil(t, result)
			},
		},
		{
			name: "out-of-stock line evicted",
			setupMocks: func(m *testMocks) {
				m.expectLock(testUser)
				m.carts.On("GetByUser", mock.Anything, testUser).Return([]models.CartItem{
					cartLine(1, 2, 10.50),
					cartLine(2, 1, 5.00),
				}, nil)
				m.products.On("GetByID", mock.Anything, models.ProductID(1)).Return(stubProduct(1, "Milk", 0, 10.50), nil)
				m.products.On("GetByID", mock.Anything, models.ProductID(2)).Return(stubProduct(2, "Bread", 4, 5.00), nil)
				m.carts.On("Remove", mock.Anything, testUser, models.ProductID(1)).Return(nil)
				m.users.On("GetByID", mock.Anything, testUser).Return(&models.User{Address: "10 Bayfront Ave"}, nil)
				m.orders.On("Create", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil).Run(func(args mock.Arguments) {
					args.Get(1).(*models.Order).ID = 43
				})
				m.orders.On("AddItems", mock.Anything, uint64(43), mock.AnythingOfType("[]models.OrderDetail")).Return(nil)
				m.products.On("DecrementStock", mock.Anything, models.ProductID(2), 1).Return(int64(1), nil)
				m.carts.On("Clear", mock.Anything, testUser).Return(nil)
				m.session.On("InvalidateCart", mock.Anything, testUser).Return(nil)
			},
			check: func(t *testing.T, result *Result, err error, m *testMocks) {
				assert.NoError(t, err)
				assert.Equal(t, 5.00, result.Total)
				assert.Len(t, result.Removed, 1)
				assert.Equal(t, models.ProductID(1), result.Removed[0].ProductID)
				assert.Equal(t, "Milk", result.Removed[0].Name)
				m.products.AssertNotCalled(t, "DecrementStock", mock.Anything, models.ProductID(1), mock.Anything)
			},
		},
		{
			name: "over-stock line clamped",
			setupMocks: func(m *testMocks) {
				m.expectLock(testUser)
				m.carts.On("GetByUser", mock.Anything, testUser).Return([]models.CartItem{
					cartLine(1, 5, 10.00),
				}, nil)
				m.products.On("GetByID", mock.Anything, models.ProductID(1)).Return(stubProduct(1, "Milk", 3, 10.00), nil)
				m.carts.On("UpdateQuantity", mock.Anything, testUser, models.ProductID(1), 3, 10.00).Return(nil)
				m.users.On("GetByID", mock.Anything, testUser).Return(&models.User{Address: "10 Bayfront Ave"}, nil)
				m.orders.On("Create", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil).Run(func(args mock.Arguments) {
					args.Get(1).(*models.Order).ID = 44
				})
				m.orders.On("AddItems", mock.Anything, uint64(44), mock.AnythingOfType("[]models.OrderDetail")).Return(nil)
				m.products.On("DecrementStock", mock.Anything, models.ProductID(1), 3).Return(int64(1), nil)
				m.carts.On("Clear", mock.Anything, testUser).Return(nil)
				m.session.On("InvalidateCart", mock.Anything, testUser).Return(nil)
			},
			check: func(t *testing.T, result *Result, err error, m *testMocks) {
				assert.NoError(t, err)
				assert.Equal(t, 30.00, result.Total)
				assert.Len(t, result.Adjusted, 1)
				assert.Equal(t, 5, result.Adjusted[0].Old)
				assert.Equal(t, 3, result.Adjusted[0].Now)
			},
		},
		{
			name: "cart depleted after reconciliation",
			setupMocks: func(m *testMocks) {
				m.expectLock(testUser)
				m.carts.On("GetByUser", mock.Anything, testUser).Return([]models.CartItem{
					cartLine(1, 2, 10.50),
				}, nil)
				m.products.On("GetByID", mock.Anything, models.ProductID(1)).Return(stubProduct(1, "Milk", 0, 10.50), nil)
				m.carts.On("Remove", mock.Anything, testUser, models.ProductID(1)).Return(nil)
			},
			check: func(t *testing.T, result *Result, err error, m *testMocks) {
				var depleted *CartDepletedError
				assert.ErrorAs(t, err, &depleted)
				assert.Len(t, depleted.Removed, 1)
				assert.Nil(t, result)
				m.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			},
		},
		{
			name: "cart references deleted product",
			setupMocks: func(m *testMocks) {
				m.expectLock(testUser)
				m.carts.On("GetByUser", mock.Anything, testUser).Return([]models.CartItem{
					cartLine(99, 1, 4.00),
				}, nil)
				m.products.On("GetByID", mock.Anything, models.ProductID(99)).Return(nil, repository.ErrProductNotFound)
			},
			check: func(t *testing.T, result *Result, err error, m *testMocks) {
				var gone *ProductNotFoundError
				assert.ErrorAs(t, err, &gone)
				assert.Equal(t, models.ProductID(99), gone.ProductID)
				m.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			},
		},
		{
			name: "failed decrement reported as warning",
			setupMocks: func(m *testMocks) {
				m.expectLock(testUser)
				m.carts.On("GetByUser", mock.Anything, testUser).Return([]models.CartItem{
					cartLine(1, 2, 10.00),
				}, nil)
				m.products.On("GetByID", mock.Anything, models.ProductID(1)).Return(stubProduct(1, "Milk", 2, 10.00), nil)
				m.users.On("GetByID", mock.Anything, testUser).Return(&models.User{Address: "10 Bayfront Ave"}, nil)
				m.orders.On("Create", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil).Run(func(args mock.Arguments) {
					args.Get(1).(*models.Order).ID = 45
				})
				m.orders.On("AddItems", mock.Anything, uint64(45), mock.AnythingOfType("[]models.OrderDetail")).Return(nil)
				// A concurrent purchase drained the stock between reconcile and decrement.
				m.products.On("DecrementStock", mock.Anything, models.ProductID(1), 2).Return(int64(0), nil)
				m.carts.On("Clear", mock.Anything, testUser).Return(nil)
				m.session.On("InvalidateCart", mock.Anything, testUser).Return(nil)
			},
			check: func(t *testing.T, result *Result, err error, m *testMocks) {
				assert.NoError(t, err)
				assert.Equal(t, uint64(45), result.OrderID)
				assert.Len(t, result.FailedDecrements, 1)
				assert.Equal(t, "insufficient stock", result.FailedDecrements[0].Reason)
			},
		},
		{
			name: "order items save failure keeps the order",
			setupMocks: func(m *testMocks) {
				m.expectLock(testUser)
				m.carts.On("GetByUser", mock.Anything, testUser).Return([]models.CartItem{
					cartLine(1, 1, 10.00),
				}, nil)
				m.products.On("GetByID", mock.Anything, models.ProductID(1)).Return(stubProduct(1, "Milk", 5, 10.00), nil)
				m.users.On("GetByID", mock.Anything, testUser).Return(&models.User{Address: "10 Bayfront Ave"}, nil)
				m.orders.On("Create", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil).Run(func(args mock.Arguments) {
					args.Get(1).(*models.Order).ID = 46
				})
				m.orders.On("AddItems", mock.Anything, uint64(46), mock.AnythingOfType("[]models.OrderDetail")).Return(errors.New("connection reset"))
			},
			check: func(t *testing.T, result *Result, err error, m *testMocks) {
				var partial *PersistenceError
				assert.ErrorAs(t, err, &partial)
				assert.Equal(t, uint64(46), partial.OrderID)
				assert.Nil(t, result)
				m.carts.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := newTestService()
			tt.setupMocks(m)

			result, err := service.CreateOrder(context.Background(), testUser)
			tt.check(t, result, err, m)

			m.session.AssertExpectations(t)
			m.carts.AssertExpectations(t)
			m.products.AssertExpectations(t)
			m.orders.AssertExpectations(t)
		})
	}
}

func TestCartTotal(t *testing.T) {
	items := []models.CartItem{
		cartLine(1, 3, 3.33),
		cartLine(2, 1, 0.01),
	}
	assert.Equal(t, 10.00, cartTotal(items))

	// Lines without a precomputed total fall back to qty times price.
	items[0].Total = 0
	assert.Equal(t, 10.00, cartTotal(items))
}
