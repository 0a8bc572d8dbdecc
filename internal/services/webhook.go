package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"checkout-service/internal/domain"
	"checkout-service/internal/logging"
	"checkout-service/internal/repository"
	"checkout-service/internal/signature"
)

const (
	webhookPaymentCaptured = "payment.captured"
	webhookPaymentFailed   = "payment.failed"
	webhookOrderPaid       = "order.paid"
)

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

// HandleWebhook applies a server-to-server gateway notification. The body must
// be the raw request bytes; the signature covers them exactly. Events for
// orders this service does not know are acknowledged so the gateway stops
// retrying them.
func (u *OrderService) HandleWebhook(ctx context.Context, body []byte, sig string) error {
	if u.opts.WebhookSecret == "" {
		return ErrWebhookDisabled
	}
	if !signature.VerifyBody(u.opts.WebhookSecret, body, sig) {
		logging.Suspicious(logging.Fields{Step: "webhook", Message: "signature mismatch"})
		return ErrSignatureInvalid
	}

	var evt webhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	switch evt.Event {
	case webhookPaymentCaptured, webhookOrderPaid:
		p, err := evt.payment()
		if err != nil {
			return err
		}
		_, err = u.applyPayment(ctx, p.OrderID, p.ID, "webhook_"+evt.Event)
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrPaymentConflict) {
			return nil
		}
		return err
	case webhookPaymentFailed:
		p, err := evt.payment()
		if err != nil {
			return err
		}
		return u.applyFailure(ctx, p)
	default:
		logging.Log(logging.Fields{Step: "webhook", Status: "ignored", Message: evt.Event})
		return nil
	}
}

func (e webhookEvent) payment() (paymentEntity, error) {
	if e.Payload.Payment == nil || e.Payload.Payment.Entity.ID == "" || e.Payload.Payment.Entity.OrderID == "" {
		return paymentEntity{}, fmt.Errorf("%w: %s without payment entity", ErrInvalidWebhook, e.Event)
	}
	return e.Payload.Payment.Entity, nil
}

func (u *OrderService) applyFailure(ctx context.Context, p paymentEntity) error {
	reason := p.ErrorCode
	if p.ErrorDescription != "" {
		reason += ": " + p.ErrorDescription
	}
	failedAt := u.now()
	order, err := u.repo.Update(ctx, p.OrderID, func(o *domain.Order) error {
		return o.MarkFailed(reason, failedAt)
	})

	switch {
	case errors.Is(err, repository.ErrNotFound):
		logging.Suspicious(logging.Fields{OrderID: p.OrderID, PaymentID: p.ID, Step: "webhook_payment_failed", Message: "authentic callback for unknown order"})
		return nil
	case errors.Is(err, domain.ErrInvalidTransition):
		logging.Log(logging.Fields{OrderID: p.OrderID, PaymentID: p.ID, Step: "webhook_payment_failed", Status: "ignored", Message: "order already paid"})
		return nil
	case err != nil:
		return fmt.Errorf("mark order %s failed: %w", p.OrderID, err)
	}

	logging.Log(logging.Fields{OrderID: order.OrderID, PaymentID: p.ID, Step: "webhook_payment_failed", Status: string(order.Status), Message: reason})
	u.metrics.OrderEvent(domain.EventOrderFailed)
	u.publish(domain.EventOrderFailed, order)
	return nil
}
