package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"checkout-service/internal/catalog"
	"checkout-service/internal/domain"
	"checkout-service/internal/infra"
	"checkout-service/internal/mocks"
	"checkout-service/internal/repository"
	"checkout-service/internal/repository/memory"
)

func newTestService(repo repository.OrderRepository, gw infra.GatewayClientInterface, pub infra.PublisherInterface) *OrderService {
	s := NewOrderService(repo, testCatalog(), gw, pub, testOptions())
	s.now = func() time.Time { return fixedNow }
	return s
}

func quietPublisher() *mocks.MockPublisher {
	pub := new(mocks.MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return pub
}

func seed(t *testing.T, repo repository.OrderRepository, orders ...*domain.Order) {
	t.Helper()
	for _, o := range orders {
		require.NoError(t, repo.Save(context.Background(), o))
	}
}

func TestOrderService_CreateOrder(t *testing.T) {
	tests := []struct {
		name          string
		productID     string
		setupMocks    func(*mocks.MockOrderRepository, *mocks.MockGatewayClient, *mocks.MockPublisher)
		expectedError error
		errorContains string
	}{
		{
			name:      "successful order creation",
			productID: TestProductID,
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockGateway *mocks.MockGatewayClient, mockPub *mocks.MockPublisher) {
				mockGateway.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req infra.CreateGatewayOrderRequest) bool {
					return req.Amount == 7900 &&
						req.Currency == "INR" &&
						req.Notes["product"] == TestProductID &&
						req.Notes["customer_email"] == "a@x.com" &&
						req.Notes["venture"] == "Glitch" &&
						strings.HasPrefix(req.Receipt, TestProductID+"_")
				})).Return(&infra.GatewayOrder{ID: TestOrderID, Entity: "order", Amount: 7900, Currency: "INR", Status: "created"}, nil)

				mockRepo.On("Save", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
					return o.OrderID == TestOrderID &&
						o.Status == domain.StatusCreated &&
						o.Amount == 7900 &&
						o.ProductName == TestProductName &&
						o.DownloadLink == TestDownloadLink
				})).Return(nil)

				mockPub.On("Publish", mock.Anything, domain.EventOrderCreated, mock.AnythingOfType("domain.OrderEvent")).Return(nil)
			},
		},
		{
			name:          "unknown product",
			productID:     "p404",
			setupMocks:    func(*mocks.MockOrderRepository, *mocks.MockGatewayClient, *mocks.MockPublisher) {},
			expectedError: ErrInvalidProduct,
		},
		{
			name:      "gateway failure",
			productID: TestProductID,
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockGateway *mocks.MockGatewayClient, mockPub *mocks.MockPublisher) {
				mockGateway.On("CreateOrder", mock.Anything, mock.Anything).Return(nil, errors.New("gateway returned status 401"))
			},
			expectedError: ErrGatewayFailure,
		},
		{
			name:      "store failure",
			productID: TestProductID,
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockGateway *mocks.MockGatewayClient, mockPub *mocks.MockPublisher) {
				mockGateway.On("CreateOrder", mock.Anything, mock.Anything).Return(&infra.GatewayOrder{ID: TestOrderID}, nil)
				mockRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(errors.New("database error"))
			},
			errorContains: "database error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(mocks.MockOrderRepository)
			mockGateway := new(mocks.MockGatewayClient)
			mockPub := new(mocks.MockPublisher)
			tt.setupMocks(mockRepo, mockGateway, mockPub)

			service := newTestService(mockRepo, mockGateway, mockPub)
			order, gwOrder, err := service.CreateOrder(context.Background(), CreateOrderInput{
				ProductID: tt.productID,
				Name:      "A",
				Email:     "a@x.com",
				Contact:   "999",
			})
			service.Drain()

			switch {
			case tt.expectedError != nil:
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, order)
				assert.Nil(t, gwOrder)
			case tt.errorContains != "":
				assert.ErrorContains(t, err, tt.errorContains)
				assert.Nil(t, order)
			default:
				require.NoError(t, err)
				assert.Equal(t, TestOrderID, order.OrderID)
				assert.Equal(t, TestOrderID, gwOrder.ID)
				assert.Equal(t, "A", order.CustomerName)
				assert.Equal(t, "999", order.CustomerContact)
				assert.Equal(t, fixedNow, order.CreatedAt)
			}

			if tt.expectedError != nil {
				mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			}
			mockRepo.AssertExpectations(t)
			mockGateway.AssertExpectations(t)
			mockPub.AssertExpectations(t)
		})
	}
}

func TestOrderService_CreateOrder_GatewayTimeout(t *testing.T) {
	repo := memory.NewOrderRepository()
	mockGateway := new(mocks.MockGatewayClient)
	mockGateway.On("CreateOrder", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		<-ctx.Done()
	}).Return(nil, context.DeadlineExceeded)

	service := newTestService(repo, mockGateway, quietPublisher())
	service.opts.GatewayTimeout = 20 * time.Millisecond

	start := time.Now()
	_, _, err := service.CreateOrder(context.Background(), CreateOrderInput{ProductID: TestProductID})

	assert.ErrorIs(t, err, ErrGatewayFailure)
	assert.Less(t, time.Since(start), time.Second)
}

func TestOrderService_CreateThenLookup(t *testing.T) {
	repo := memory.NewOrderRepository()
	service := newTestService(repo, infra.NewSandboxGateway(), quietPublisher())

	for _, p := range testCatalog().List() {
		order, gwOrder, err := service.CreateOrder(context.Background(), CreateOrderInput{ProductID: p.ID, Name: "A"})
		require.NoError(t, err)
		assert.Equal(t, gwOrder.ID, order.OrderID)
		assert.Equal(t, p.Price*100, gwOrder.Amount)

		stored, err := service.GetOrder(context.Background(), order.OrderID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCreated, stored.Status)
		assert.Equal(t, p.Price*100, stored.Amount)
		assert.LessOrEqual(t, len(stored.Receipt), 40)
	}
	service.Drain()
}

func TestOrderService_VerifyPayment(t *testing.T) {
	earlier := fixedNow.Add(-time.Hour)

	paid := CreateMockOrder("order_paid", domain.StatusPaid)
	paid.PaymentID = "pay_first"
	paid.PaidAt = &earlier

	failed := CreateMockOrder("order_failed", domain.StatusFailed)
	failed.FailureReason = "BAD_REQUEST_ERROR"

	tests := []struct {
		name           string
		orderID        string
		paymentID      string
		signature      string
		expectedError  error
		expectedStatus domain.OrderStatus
		expectedPaidAt time.Time
	}{
		{
			name:           "valid callback",
			orderID:        "order_created",
			paymentID:      TestPaymentID,
			signature:      sign("order_created", TestPaymentID),
			expectedStatus: domain.StatusPaid,
			expectedPaidAt: fixedNow,
		},
		{
			name:           "forged signature on existing order",
			orderID:        "order_created",
			paymentID:      TestPaymentID,
			signature:      sign("order_created", "pay_other"),
			expectedError:  ErrSignatureInvalid,
			expectedStatus: domain.StatusCreated,
		},
		{
			name:          "forged signature on unknown order",
			orderID:       "order_unknown",
			paymentID:     TestPaymentID,
			signature:     "deadbeef",
			expectedError: ErrSignatureInvalid,
		},
		{
			name:          "authentic callback for unknown order",
			orderID:       "order_unknown",
			paymentID:     TestPaymentID,
			signature:     sign("order_unknown", TestPaymentID),
			expectedError: ErrOrderNotFound,
		},
		{
			name:           "replay of the same payment",
			orderID:        "order_paid",
			paymentID:      "pay_first",
			signature:      sign("order_paid", "pay_first"),
			expectedStatus: domain.StatusPaid,
			expectedPaidAt: earlier,
		},
		{
			name:           "second payment for a paid order",
			orderID:        "order_paid",
			paymentID:      "pay_second",
			signature:      sign("order_paid", "pay_second"),
			expectedError:  ErrPaymentConflict,
			expectedStatus: domain.StatusPaid,
			expectedPaidAt: earlier,
		},
		{
			name:           "payment after a failed attempt",
			orderID:        "order_failed",
			paymentID:      TestPaymentID,
			signature:      sign("order_failed", TestPaymentID),
			expectedStatus: domain.StatusPaid,
			expectedPaidAt: fixedNow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := memory.NewOrderRepository()
			seed(t, repo, CreateMockOrder("order_created", domain.StatusCreated), paid, failed)

			service := newTestService(repo, new(mocks.MockGatewayClient), quietPublisher())
			result, err := service.VerifyPayment(ctx, tt.orderID, tt.paymentID, tt.signature)
			service.Drain()

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.orderID, result.OrderID)
				assert.Equal(t, tt.paymentID, result.PaymentID)
				assert.Equal(t, TestDownloadLink, result.DownloadLink)
				assert.Equal(t, TestProductName, result.ProductName)
			}

			stored, err := repo.FindByID(ctx, tt.orderID)
			if tt.expectedStatus == "" {
				assert.ErrorIs(t, err, repository.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, stored.Status)
			if !tt.expectedPaidAt.IsZero() {
				require.NotNil(t, stored.PaidAt)
				assert.Equal(t, tt.expectedPaidAt, *stored.PaidAt)
			} else {
				assert.Nil(t, stored.PaidAt)
			}
		})
	}
}

func TestOrderService_VerifyPayment_BadSignatureSkipsStore(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	service := newTestService(mockRepo, new(mocks.MockGatewayClient), new(mocks.MockPublisher))

	for _, sig := range []string{"", "not-hex", strings.Repeat("0", 64), sign(TestOrderID, TestPaymentID)[:10]} {
		result, err := service.VerifyPayment(context.Background(), TestOrderID, TestPaymentID, sig)
		assert.ErrorIs(t, err, ErrSignatureInvalid)
		assert.Nil(t, result)
	}

	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestOrderService_VerifyPayment_StoreError(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	mockRepo.On("Update", mock.Anything, TestOrderID, mock.Anything).Return(nil, errors.New("connection reset"))
	service := newTestService(mockRepo, new(mocks.MockGatewayClient), new(mocks.MockPublisher))

	result, err := service.VerifyPayment(context.Background(), TestOrderID, TestPaymentID, sign(TestOrderID, TestPaymentID))

	assert.ErrorContains(t, err, "connection reset")
	assert.NotErrorIs(t, err, ErrOrderNotFound)
	assert.Nil(t, result)
	mockRepo.AssertExpectations(t)
}

// p1 priced 79 becomes a 7900 order; the callback releases p1's link and a
// repeated callback returns the same answer without moving paidAt.
func TestOrderService_PurchaseFlow(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	mockPub := new(mocks.MockPublisher)
	mockPub.On("Publish", mock.Anything, domain.EventOrderCreated, mock.Anything).Return(nil).Once()
	mockPub.On("Publish", mock.Anything, domain.EventOrderPaid, mock.Anything).Return(nil).Once()

	service := newTestService(repo, infra.NewSandboxGateway(), mockPub)

	order, _, err := service.CreateOrder(ctx, CreateOrderInput{ProductID: "p1", Name: "A", Email: "a@x.com", Contact: "999"})
	require.NoError(t, err)
	assert.Equal(t, int64(7900), order.Amount)

	sig := sign(order.OrderID, "pay_1")
	first, err := service.VerifyPayment(ctx, order.OrderID, "pay_1", sig)
	require.NoError(t, err)
	assert.Equal(t, TestDownloadLink, first.DownloadLink)
	assert.Equal(t, TestProductName, first.ProductName)

	service.now = func() time.Time { return fixedNow.Add(time.Minute) }
	second, err := service.VerifyPayment(ctx, order.OrderID, "pay_1", sig)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, err := repo.FindByID(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, stored.Status)
	assert.Equal(t, fixedNow, *stored.PaidAt)

	service.Drain()
	mockPub.AssertExpectations(t)
}

func TestOrderService_VerifyPayment_UsesCreationSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	service := newTestService(repo, infra.NewSandboxGateway(), quietPublisher())

	order, _, err := service.CreateOrder(ctx, CreateOrderInput{ProductID: TestProductID})
	require.NoError(t, err)

	renamed, err := catalog.New([]domain.Product{{
		ID:           "p9",
		Name:         "Something Else",
		Price:        5,
		DownloadLink: "https://files.example.com/other.zip",
		Image:        "https://img.example.com/other.png",
	}})
	require.NoError(t, err)
	service.catalog = renamed

	result, err := service.VerifyPayment(ctx, order.OrderID, TestPaymentID, sign(order.OrderID, TestPaymentID))
	require.NoError(t, err)
	assert.Equal(t, TestDownloadLink, result.DownloadLink)
	assert.Equal(t, TestProductName, result.ProductName)
	service.Drain()
}

func TestOrderService_VerifyPayment_ConcurrentCallbacks(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	seed(t, repo, CreateMockOrder(TestOrderID, domain.StatusCreated))

	var paidEvents int32
	mockPub := new(mocks.MockPublisher)
	mockPub.On("Publish", mock.Anything, domain.EventOrderPaid, mock.Anything).Return(nil).Run(func(mock.Arguments) {
		atomic.AddInt32(&paidEvents, 1)
	})
	service := newTestService(repo, new(mocks.MockGatewayClient), mockPub)

	sig := sign(TestOrderID, TestPaymentID)
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := service.VerifyPayment(ctx, TestOrderID, TestPaymentID, sig)
			assert.NoError(t, err)
			if assert.NotNil(t, result) {
				assert.Equal(t, TestDownloadLink, result.DownloadLink)
			}
		}()
	}
	wg.Wait()
	service.Drain()

	assert.Equal(t, int32(1), atomic.LoadInt32(&paidEvents))
}

func TestOrderService_GetOrder(t *testing.T) {
	tests := []struct {
		name          string
		orderID       string
		setupMocks    func(*mocks.MockOrderRepository)
		expectedError error
		errorContains string
	}{
		{
			name:    "found",
			orderID: TestOrderID,
			setupMocks: func(mockRepo *mocks.MockOrderRepository) {
				mockRepo.On("FindByID", mock.Anything, TestOrderID).Return(CreateMockOrder(TestOrderID, domain.StatusCreated), nil)
			},
		},
		{
			name:    "not found",
			orderID: "order_missing",
			setupMocks: func(mockRepo *mocks.MockOrderRepository) {
				mockRepo.On("FindByID", mock.Anything, "order_missing").Return(nil, repository.ErrNotFound)
			},
			expectedError: ErrOrderNotFound,
		},
		{
			name:    "repository error",
			orderID: TestOrderID,
			setupMocks: func(mockRepo *mocks.MockOrderRepository) {
				mockRepo.On("FindByID", mock.Anything, TestOrderID).Return(nil, errors.New("database connection error"))
			},
			errorContains: "database connection error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(mocks.MockOrderRepository)
			tt.setupMocks(mockRepo)
			service := newTestService(mockRepo, new(mocks.MockGatewayClient), new(mocks.MockPublisher))

			result, err := service.GetOrder(context.Background(), tt.orderID)

			switch {
			case tt.expectedError != nil:
				assert.Equal(t, tt.expectedError, err)
				assert.Nil(t, result)
			case tt.errorContains != "":
				assert.ErrorContains(t, err, tt.errorContains)
				assert.Nil(t, result)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.orderID, result.OrderID)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestNewReceipt(t *testing.T) {
	at := time.UnixMilli(1767225600123)

	r := newReceipt("glitch_the_matrix", at)
	assert.True(t, strings.HasPrefix(r, "glitch_the_m_1767225600123_"), r)
	assert.LessOrEqual(t, len(r), 40)
	assert.NotEqual(t, r, newReceipt("glitch_the_matrix", at))
}

func BenchmarkOrderService_VerifyPayment(b *testing.B) {
	repo := memory.NewOrderRepository()
	_ = repo.Save(context.Background(), CreateMockOrder(TestOrderID, domain.StatusCreated))
	service := newTestService(repo, new(mocks.MockGatewayClient), infra.NoopPublisher{})
	sig := sign(TestOrderID, TestPaymentID)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = service.VerifyPayment(context.Background(), TestOrderID, TestPaymentID, sig)
		}
	})
}
