package rabbitmq

import "checkout-service/internal/infra"

var _ infra.PublisherInterface = (*Publisher)(nil)
