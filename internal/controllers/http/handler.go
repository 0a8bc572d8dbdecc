package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"checkout-service/internal/logging"
	"checkout-service/internal/services"
)

const (
	signatureHeader = "X-Razorpay-Signature"
	maxWebhookBody  = 1 << 20
)

type Handler struct {
	service *services.OrderService
	webhook bool
}

// NewHandler wires the routes to s. The webhook route is only registered
// when a webhook secret is configured.
func NewHandler(s *services.OrderService, webhook bool) *Handler {
	return &Handler{service: s, webhook: webhook}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.GET("/list-products", h.ListProducts)
		api.GET("/get-notes", h.ListProducts)
		api.GET("/product-detail/:id", h.GetProduct)
		api.POST("/create-order", h.CreateOrder)
		api.POST("/verify-payment", h.VerifyPayment)
		api.GET("/order-status/:id", h.GetOrderStatus)
		if h.webhook {
			api.POST("/webhook", h.Webhook)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Invalid endpoint"})
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ListProducts(c *gin.Context) {
	products := h.service.ListProducts()
	out := make([]ProductSummary, 0, len(products))
	for _, p := range products {
		out = append(out, toProductSummary(p))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.service.GetProduct(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		internalError(c, "product_detail", err)
		return
	}
	c.JSON(http.StatusOK, toProductDetail(p))
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	_, gwOrder, err := h.service.CreateOrder(c.Request.Context(), services.CreateOrderInput{
		ProductID: req.SelectedNote,
		Name:      req.Name,
		Email:     req.Email,
		Contact:   req.Contact,
	})
	switch {
	case errors.Is(err, services.ErrInvalidProduct):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product selected"})
	case errors.Is(err, services.ErrGatewayFailure):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment order"})
	case err != nil:
		internalError(c, "create_order", err)
	default:
		c.JSON(http.StatusOK, gwOrder)
	}
}

func (h *Handler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "verification_failed"})
		return
	}

	res, err := h.service.VerifyPayment(c.Request.Context(), req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	switch {
	case errors.Is(err, services.ErrSignatureInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"status": "verification_failed"})
	case errors.Is(err, services.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Order not found"})
	case errors.Is(err, services.ErrPaymentConflict):
		c.JSON(http.StatusConflict, gin.H{"status": "error", "message": "Order already paid"})
	case err != nil:
		internalError(c, "verify_payment", err)
	default:
		c.JSON(http.StatusOK, VerifyPaymentResponse{
			Status:       "ok",
			OrderID:      res.OrderID,
			PaymentID:    res.PaymentID,
			DownloadLink: res.DownloadLink,
			ProductName:  res.ProductName,
		})
	}
}

func (h *Handler) GetOrderStatus(c *gin.Context) {
	o, err := h.service.GetOrder(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Order not found"})
	case err != nil:
		internalError(c, "order_status", err)
	default:
		c.JSON(http.StatusOK, toOrderStatus(o))
	}
}

func (h *Handler) Webhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	err = h.service.HandleWebhook(c.Request.Context(), body, c.GetHeader(signatureHeader))
	switch {
	case errors.Is(err, services.ErrSignatureInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"status": "verification_failed"})
	case errors.Is(err, services.ErrInvalidWebhook):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload"})
	case errors.Is(err, services.ErrWebhookDisabled):
		c.JSON(http.StatusNotFound, gin.H{"message": "Invalid endpoint"})
	case err != nil:
		internalError(c, "webhook", err)
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// internalError logs err and answers with a body that carries no details.
func internalError(c *gin.Context, step string, err error) {
	logging.Log(logging.Fields{Step: step, Status: "error", Error: err.Error()})
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
}
