package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/kashvicreations/kashvi-backend/pkg/enums"
	pkgerrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
	"github.com/kashvicreations/kashvi-backend/pkg/logger"
	"github.com/kashvicreations/kashvi-backend/pkg/redis"
)

// StripeEventGuard deduplicates webhook deliveries by event id. The mark is
// released when the handler fails so Stripe's retry can be processed.
type StripeEventGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

// NewStripeEventGuard wires the redis-backed guard.
func NewStripeEventGuard(store redis.IdempotencyStore, ttl time.Duration) (*StripeEventGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &StripeEventGuard{store: store, ttl: ttl, scope: "stripe:webhook"}, nil
}

func (g *StripeEventGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

func (g *StripeEventGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(g.scope, eventID))
}

// StripeWebhookService maps verified Stripe events onto the order lifecycle.
type StripeWebhookService struct {
	orders orderCompleter
	guests guestPaymentMarker
	logg   *logger.Logger
}

// NewStripeWebhookService wires the webhook event handler.
func NewStripeWebhookService(orders orderCompleter, guests guestPaymentMarker, logg *logger.Logger) (*StripeWebhookService, error) {
	if orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order service required")
	}
	if guests == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "guest order service required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &StripeWebhookService{orders: orders, guests: guests, logg: logg}, nil
}

// HandleEvent processes a signature-verified event. Unrecognized event kinds
// are acknowledged without side effects.
func (s *StripeWebhookService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		return s.handleSucceeded(ctx, intent)
	case stripe.EventTypePaymentIntentPaymentFailed:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		return s.handleFailed(ctx, intent)
	default:
		return nil
	}
}

func (s *StripeWebhookService) handleSucceeded(ctx context.Context, intent *stripe.PaymentIntent) error {
	if raw := intent.Metadata["order_id"]; raw != "" {
		orderID, err := uuid.Parse(raw)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order id in metadata invalid")
		}
		_, err = s.orders.CompletePayment(ctx, orderID, enums.GatewayStripe, intent.ID)
		return err
	}
	if raw := intent.Metadata["guest_order_id"]; raw != "" {
		guestOrderID, err := uuid.Parse(raw)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "guest order id in metadata invalid")
		}
		return s.guests.MarkPaid(ctx, guestOrderID)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "payment intent carries no order reference")
}

func (s *StripeWebhookService) handleFailed(ctx context.Context, intent *stripe.PaymentIntent) error {
	raw := intent.Metadata["order_id"]
	if raw == "" {
		// Guest orders stay PENDING until paid; a failed intent needs no mark.
		return nil
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order id in metadata invalid")
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Warn(ctx, "stripe payment failed")
	return s.orders.FailPayment(ctx, orderID)
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
	}
	return &intent, nil
}
