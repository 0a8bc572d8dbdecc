package http

import (
	"time"

	"checkout-service/internal/domain"
)

type CreateOrderRequest struct {
	SelectedNote string `json:"selectedNote"`
	Name         string `json:"name" binding:"max=255"`
	Email        string `json:"email" binding:"omitempty,email,max=255"`
	Contact      string `json:"contact" binding:"max=64"`
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

type VerifyPaymentResponse struct {
	Status       string `json:"status"`
	OrderID      string `json:"order_id"`
	PaymentID    string `json:"payment_id"`
	DownloadLink string `json:"download_link"`
	ProductName  string `json:"product_name"`
}

type ProductSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	Image        string `json:"image"`
	Description  string `json:"description"`
	ReadMoreLink string `json:"readMoreLink"`
}

type ProductDetail struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	Image        string `json:"image"`
	Description  string `json:"description"`
	DownloadLink string `json:"downloadLink"`
	ReadMoreLink string `json:"readMoreLink"`
}

type OrderStatusResponse struct {
	OrderID   string     `json:"order_id"`
	ProductID string     `json:"product_id"`
	Status    string     `json:"status"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	CreatedAt time.Time  `json:"created_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

func toProductSummary(p domain.Product) ProductSummary {
	return ProductSummary{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price,
		Image:        p.Image,
		Description:  p.Description,
		ReadMoreLink: p.ReadMoreLink,
	}
}

func toProductDetail(p domain.Product) ProductDetail {
	return ProductDetail{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price,
		Image:        p.Image,
		Description:  p.Description,
		DownloadLink: p.DownloadLink,
		ReadMoreLink: p.ReadMoreLink,
	}
}

func toOrderStatus(o *domain.Order) OrderStatusResponse {
	return OrderStatusResponse{
		OrderID:   o.OrderID,
		ProductID: o.ProductID,
		Status:    string(o.Status),
		Amount:    o.Amount,
		Currency:  o.Currency,
		CreatedAt: o.CreatedAt,
		PaidAt:    o.PaidAt,
	}
}
