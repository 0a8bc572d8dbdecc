package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"checkout-service/internal/catalog"
	"checkout-service/internal/domain"
	"checkout-service/internal/infra"
	"checkout-service/internal/logging"
	"checkout-service/internal/metrics"
	"checkout-service/internal/repository"
	"checkout-service/internal/signature"
)

var (
	ErrProductNotFound  = catalog.ErrProductNotFound
	ErrInvalidProduct   = errors.New("invalid product selected")
	ErrGatewayFailure   = errors.New("payment gateway failure")
	ErrSignatureInvalid = errors.New("signature verification failed")
	ErrOrderNotFound    = errors.New("order not found")
	ErrPaymentConflict  = errors.New("order already paid by another payment")
	ErrWebhookDisabled  = errors.New("webhook secret not configured")
	ErrInvalidWebhook   = errors.New("malformed webhook payload")
)

const publishTimeout = 5 * time.Second

type ProductCatalog interface {
	List() []domain.Product
	Get(id string) (domain.Product, error)
}

type Options struct {
	Currency       string
	KeySecret      string
	WebhookSecret  string
	GatewayTimeout time.Duration
	StoreName      string
}

type OrderService struct {
	repo      repository.OrderRepository
	catalog   ProductCatalog
	gateway   infra.GatewayClientInterface
	publisher infra.PublisherInterface
	metrics   *metrics.ServerMetrics
	opts      Options
	now       func() time.Time

	pending sync.WaitGroup
}

func NewOrderService(r repository.OrderRepository, c ProductCatalog, g infra.GatewayClientInterface, pub infra.PublisherInterface, opts Options) *OrderService {
	if pub == nil {
		pub = infra.NoopPublisher{}
	}
	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = 10 * time.Second
	}
	return &OrderService{
		repo:      r,
		catalog:   c,
		gateway:   g,
		publisher: pub,
		opts:      opts,
		now:       time.Now,
	}
}

func (u *OrderService) SetMetrics(m *metrics.ServerMetrics) {
	u.metrics = m
}

type CreateOrderInput struct {
	ProductID string
	Name      string
	Email     string
	Contact   string
}

type VerificationResult struct {
	OrderID      string
	PaymentID    string
	DownloadLink string
	ProductName  string
}

func (u *OrderService) ListProducts() []domain.Product {
	return u.catalog.List()
}

func (u *OrderService) GetProduct(id string) (domain.Product, error) {
	return u.catalog.Get(id)
}

// CreateOrder mints a gateway order for the product and stores it as created.
// Nothing is stored when the product is unknown or the gateway call fails.
func (u *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, *infra.GatewayOrder, error) {
	product, err := u.catalog.Get(in.ProductID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidProduct, in.ProductID)
	}

	now := u.now()
	req := infra.CreateGatewayOrderRequest{
		Amount:   product.AmountMinor(),
		Currency: u.opts.Currency,
		Receipt:  newReceipt(product.ID, now),
		Notes:    u.orderNotes(product, in),
	}

	gctx, cancel := context.WithTimeout(ctx, u.opts.GatewayTimeout)
	defer cancel()
	start := time.Now()
	gwOrder, err := u.gateway.CreateOrder(gctx, req)
	if err != nil {
		logging.Log(logging.Fields{
			ProductID:  product.ID,
			Step:       "create_order",
			Status:     "gateway_error",
			DurationMS: time.Since(start).Milliseconds(),
			Error:      err.Error(),
		})
		return nil, nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}

	order := &domain.Order{
		OrderID:         gwOrder.ID,
		ProductID:       product.ID,
		ProductName:     product.Name,
		DownloadLink:    product.DownloadLink,
		CustomerName:    in.Name,
		CustomerEmail:   in.Email,
		CustomerContact: in.Contact,
		Amount:          req.Amount,
		Currency:        req.Currency,
		Receipt:         req.Receipt,
		Status:          domain.StatusCreated,
		CreatedAt:       now,
	}
	if err := u.repo.Save(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrder) {
			logging.Suspicious(logging.Fields{OrderID: order.OrderID, Step: "create_order", Message: "gateway reused an order id"})
		}
		return nil, nil, fmt.Errorf("save order %s: %w", order.OrderID, err)
	}

	logging.Log(logging.Fields{
		OrderID:    order.OrderID,
		ProductID:  order.ProductID,
		Step:       "create_order",
		Status:     string(order.Status),
		DurationMS: time.Since(start).Milliseconds(),
	})
	u.metrics.OrderEvent(domain.EventOrderCreated)
	u.publish(domain.EventOrderCreated, order)

	return order, gwOrder, nil
}

// VerifyPayment authenticates a checkout callback and marks the order paid.
// The signature is checked before the store is touched.
func (u *OrderService) VerifyPayment(ctx context.Context, orderID, paymentID, sig string) (*VerificationResult, error) {
	if !signature.Verify(u.opts.KeySecret, orderID, paymentID, sig) {
		logging.Suspicious(logging.Fields{OrderID: orderID, PaymentID: paymentID, Step: "verify_payment", Message: "signature mismatch"})
		return nil, ErrSignatureInvalid
	}

	order, err := u.applyPayment(ctx, orderID, paymentID, "verify_payment")
	if err != nil {
		return nil, err
	}
	return &VerificationResult{
		OrderID:      order.OrderID,
		PaymentID:    order.PaymentID,
		DownloadLink: order.DownloadLink,
		ProductName:  order.ProductName,
	}, nil
}

func (u *OrderService) applyPayment(ctx context.Context, orderID, paymentID, step string) (*domain.Order, error) {
	paidAt := u.now()
	order, err := u.repo.Update(ctx, orderID, func(o *domain.Order) error {
		return o.MarkPaid(paymentID, paidAt)
	})

	switch {
	case errors.Is(err, repository.ErrNotFound):
		logging.Suspicious(logging.Fields{OrderID: orderID, PaymentID: paymentID, Step: step, Message: "authentic callback for unknown order"})
		return nil, ErrOrderNotFound
	case errors.Is(err, domain.ErrAlreadyPaid):
		logging.Log(logging.Fields{OrderID: orderID, PaymentID: paymentID, Step: step, Status: "already_paid"})
		return order, nil
	case errors.Is(err, domain.ErrInvalidTransition):
		msg := "order already paid by another payment"
		if order != nil {
			msg = "order already paid by " + order.PaymentID
		}
		logging.Suspicious(logging.Fields{OrderID: orderID, PaymentID: paymentID, Step: step, Message: msg})
		return nil, ErrPaymentConflict
	case err != nil:
		return nil, fmt.Errorf("mark order %s paid: %w", orderID, err)
	}

	logging.Log(logging.Fields{OrderID: orderID, PaymentID: paymentID, ProductID: order.ProductID, Step: step, Status: string(order.Status)})
	u.metrics.OrderEvent(domain.EventOrderPaid)
	u.publish(domain.EventOrderPaid, order)
	return order, nil
}

func (u *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	o, err := u.repo.FindByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Drain waits for in-flight event publishes.
func (u *OrderService) Drain() {
	u.pending.Wait()
}

func (u *OrderService) publish(event string, o *domain.Order) {
	evt := domain.NewOrderEvent(o, u.now())
	u.pending.Add(1)
	go func() {
		defer u.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := u.publisher.Publish(ctx, event, evt); err != nil {
			logging.Log(logging.Fields{OrderID: evt.OrderID, Step: "publish_" + event, Status: "failed", Error: err.Error()})
		}
	}()
}

func (u *OrderService) orderNotes(p domain.Product, in CreateOrderInput) map[string]string {
	notes := map[string]string{
		"product":      p.ID,
		"product_name": p.Name,
	}
	set := func(k, v string) {
		if v != "" {
			notes[k] = v
		}
	}
	set("customer_name", in.Name)
	set("customer_email", in.Email)
	set("customer_contact", in.Contact)
	set("venture", u.opts.StoreName)
	return notes
}

// newReceipt builds a receipt that fits the gateway's 40 character limit and
// is unique per request.
func newReceipt(productID string, at time.Time) string {
	prefix := productID
	if len(prefix) > 12 {
		prefix = prefix[:12]
	}
	return fmt.Sprintf("%s_%d_%s", prefix, at.UnixMilli(), uuid.NewString()[:8])
}
