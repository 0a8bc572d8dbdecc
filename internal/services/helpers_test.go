package services

import (
	"time"

	"checkout-service/internal/catalog"
	"checkout-service/internal/domain"
	"checkout-service/internal/signature"
)

const (
	TestSecret        = "test_key_secret"
	TestWebhookSecret = "test_webhook_secret"
	TestProductID     = "p1"
	TestProductName   = "Trading Notes"
	TestDownloadLink  = "https://files.example.com/p1.zip"
	TestOrderID       = "order_EKwxwAgItmmXdp"
	TestPaymentID     = "pay_1"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func testCatalog() *catalog.Catalog {
	c, err := catalog.New([]domain.Product{
		{
			ID:           TestProductID,
			Name:         TestProductName,
			Price:        79,
			DownloadLink: TestDownloadLink,
			Image:        "https://img.example.com/p1.png",
		},
		{
			ID:           "p2",
			Name:         "Full Vault",
			Price:        1,
			DownloadLink: "https://files.example.com/p2.zip",
			Image:        "https://img.example.com/p2.png",
		},
	})
	if err != nil {
		panic(err)
	}
	return c
}

func testOptions() Options {
	return Options{
		Currency:       "INR",
		KeySecret:      TestSecret,
		WebhookSecret:  TestWebhookSecret,
		GatewayTimeout: time.Second,
		StoreName:      "Glitch",
	}
}

func CreateMockOrder(id string, status domain.OrderStatus) *domain.Order {
	return &domain.Order{
		OrderID:      id,
		ProductID:    TestProductID,
		ProductName:  TestProductName,
		DownloadLink: TestDownloadLink,
		Amount:       7900,
		Currency:     "INR",
		Status:       status,
		CreatedAt:    fixedNow,
	}
}

func sign(orderID, paymentID string) string {
	return signature.Sign(TestSecret, orderID, paymentID)
}
