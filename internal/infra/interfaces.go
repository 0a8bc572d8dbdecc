package infra

import "context"

type GatewayClientInterface interface {
	CreateOrder(ctx context.Context, req CreateGatewayOrderRequest) (*GatewayOrder, error)
}

type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, data any) error
}

var (
	_ GatewayClientInterface = (*RazorpayClient)(nil)
	_ GatewayClientInterface = (*SandboxGateway)(nil)
	_ PublisherInterface     = NoopPublisher{}
)

// NoopPublisher drops events; used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
