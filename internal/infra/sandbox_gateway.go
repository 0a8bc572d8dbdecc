package infra

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SandboxGateway mints orders locally in the Razorpay shape. It lets the
// service run end to end without gateway credentials.
type SandboxGateway struct{}

func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{}
}

func (g *SandboxGateway) CreateOrder(ctx context.Context, req CreateGatewayOrderRequest) (*GatewayOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &GatewayOrder{
		ID:        SandboxID("order_"),
		Entity:    "order",
		Amount:    req.Amount,
		AmountDue: req.Amount,
		Currency:  req.Currency,
		Receipt:   req.Receipt,
		Status:    "created",
		Notes:     req.Notes,
		CreatedAt: time.Now().Unix(),
	}, nil
}

// SandboxID returns a gateway-looking identifier with the given prefix.
func SandboxID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}
