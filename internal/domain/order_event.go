package domain

import "time"

const (
	EventOrderCreated = "order.created"
	EventOrderPaid    = "order.paid"
	EventOrderFailed  = "order.failed"
)

type OrderEvent struct {
	OrderID    string      `json:"orderId"`
	ProductID  string      `json:"productId"`
	Amount     int64       `json:"amount"`
	Currency   string      `json:"currency"`
	Status     OrderStatus `json:"status"`
	PaymentID  string      `json:"paymentId,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
}

func NewOrderEvent(o *Order, at time.Time) OrderEvent {
	return OrderEvent{
		OrderID:    o.OrderID,
		ProductID:  o.ProductID,
		Amount:     o.Amount,
		Currency:   o.Currency,
		Status:     o.Status,
		PaymentID:  o.PaymentID,
		OccurredAt: at,
	}
}

// PartitionKey keeps every event of one order on the same partition.
func (e OrderEvent) PartitionKey() string {
	return e.OrderID
}
