package domain

import (
	"errors"
	"time"
)

type OrderStatus string

const (
	StatusCreated OrderStatus = "created"
	StatusPaid    OrderStatus = "paid"
	StatusFailed  OrderStatus = "failed"
)

var (
	ErrAlreadyPaid       = errors.New("order already paid")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Order is a purchase of a single product. ProductName and DownloadLink are
// captured when the order is created and are what a paid customer receives.
type Order struct {
	OrderID         string      `json:"orderId" gorm:"primaryKey;size:64"`
	ProductID       string      `json:"productId" gorm:"size:64;not null;index"`
	ProductName     string      `json:"productName" gorm:"size:255;not null"`
	DownloadLink    string      `json:"downloadLink" gorm:"size:1024;not null"`
	CustomerName    string      `json:"customerName" gorm:"size:255"`
	CustomerEmail   string      `json:"customerEmail" gorm:"size:255"`
	CustomerContact string      `json:"customerContact" gorm:"size:64"`
	Amount          int64       `json:"amount" gorm:"not null"`
	Currency        string      `json:"currency" gorm:"size:3;not null"`
	Receipt         string      `json:"receipt" gorm:"size:40;not null"`
	Status          OrderStatus `json:"status" gorm:"type:enum('created','paid','failed');default:'created';index"`
	CreatedAt       time.Time   `json:"createdAt"`
	PaymentID       string      `json:"paymentId,omitempty" gorm:"size:64"`
	PaidAt          *time.Time  `json:"paidAt,omitempty"`
	FailureReason   string      `json:"failureReason,omitempty" gorm:"size:512"`
	FailedAt        *time.Time  `json:"failedAt,omitempty"`
}

// MarkPaid records a verified payment. A repeat with the same payment id
// returns ErrAlreadyPaid and leaves the order untouched.
func (o *Order) MarkPaid(paymentID string, at time.Time) error {
	switch o.Status {
	case StatusPaid:
		if o.PaymentID == paymentID {
			return ErrAlreadyPaid
		}
		return ErrInvalidTransition
	case StatusCreated, StatusFailed:
		o.Status = StatusPaid
		o.PaymentID = paymentID
		o.PaidAt = &at
		return nil
	default:
		return ErrInvalidTransition
	}
}

// MarkFailed records a failed payment attempt. A failed order can still be
// paid later; a paid order cannot fail.
func (o *Order) MarkFailed(reason string, at time.Time) error {
	switch o.Status {
	case StatusCreated, StatusFailed:
		o.Status = StatusFailed
		o.FailureReason = reason
		o.FailedAt = &at
		return nil
	default:
		return ErrInvalidTransition
	}
}

func (o *Order) Clone() *Order {
	c := *o
	if o.PaidAt != nil {
		t := *o.PaidAt
		c.PaidAt = &t
	}
	if o.FailedAt != nil {
		t := *o.FailedAt
		c.FailedAt = &t
	}
	return &c
}
