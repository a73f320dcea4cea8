package payments

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
)

type fakeIdempotencyStore struct {
	keys map[string]string
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{keys: make(map[string]string)}
}

func (s *fakeIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	return s.keys[key], nil
}

func (s *fakeIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = "1"
	return true, nil
}

func (s *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (s *fakeIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

func paymentIntentEvent(t *testing.T, eventType stripe.EventType, intentID string, metadata map[string]string) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"id": intentID, "metadata": metadata})
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	return &stripe.Event{
		ID:   "evt_" + uuid.NewString()[:8],
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func newStripeService(t *testing.T, orders *fakeOrderCompleter, guests *fakeGuestMarker) *StripeWebhookService {
	t.Helper()
	svc, err := NewStripeWebhookService(orders, guests, testLogger())
	if err != nil {
		t.Fatalf("NewStripeWebhookService: %v", err)
	}
	return svc
}

func TestStripeEventGuard_MarksOnceAndReleases(t *testing.T) {
	store := newFakeIdempotencyStore()
	guard, err := NewStripeEventGuard(store, time.Hour)
	if err != nil {
		t.Fatalf("NewStripeEventGuard: %v", err)
	}
	ctx := context.Background()

	seen, err := guard.CheckAndMark(ctx, "evt_1")
	if err != nil || seen {
		t.Fatalf("first delivery: seen=%v err=%v", seen, err)
	}
	seen, err = guard.CheckAndMark(ctx, "evt_1")
	if err != nil || !seen {
		t.Fatalf("second delivery: seen=%v err=%v", seen, err)
	}

	// A released mark lets the retry through.
	if err := guard.Delete(ctx, "evt_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	seen, err = guard.CheckAndMark(ctx, "evt_1")
	if err != nil || seen {
		t.Fatalf("retry after release: seen=%v err=%v", seen, err)
	}
}

func TestHandleEvent_SucceededCompletesOrder(t *testing.T) {
	orders := newFakeOrderCompleter()
	guests := &fakeGuestMarker{}
	svc := newStripeService(t, orders, guests)

	orderID := uuid.New()
	event := paymentIntentEvent(t, stripe.EventTypePaymentIntentSucceeded, "pi_123", map[string]string{"order_id": orderID.String()})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(orders.completed) != 1 || orders.completed[0].OrderID != orderID || orders.completed[0].TxnID != "pi_123" {
		t.Fatalf("completion not driven: %+v", orders.completed)
	}
	if len(guests.marked) != 0 {
		t.Fatalf("guest path must not run")
	}
}

func TestHandleEvent_SucceededMarksGuestOrder(t *testing.T) {
	orders := newFakeOrderCompleter()
	guests := &fakeGuestMarker{}
	svc := newStripeService(t, orders, guests)

	guestOrderID := uuid.New()
	event := paymentIntentEvent(t, stripe.EventTypePaymentIntentSucceeded, "pi_456", map[string]string{"guest_order_id": guestOrderID.String()})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(guests.marked) != 1 || guests.marked[0] != guestOrderID {
		t.Fatalf("guest order not marked: %+v", guests.marked)
	}
	if len(orders.completed) != 0 {
		t.Fatalf("order path must not run")
	}
}

func TestHandleEvent_FailedMarksPaymentFailed(t *testing.T) {
	orders := newFakeOrderCompleter()
	svc := newStripeService(t, orders, &fakeGuestMarker{})

	orderID := uuid.New()
	event := paymentIntentEvent(t, stripe.EventTypePaymentIntentPaymentFailed, "pi_789", map[string]string{"order_id": orderID.String()})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(orders.failed) != 1 || orders.failed[0] != orderID {
		t.Fatalf("failure not recorded: %+v", orders.failed)
	}
}

func TestHandleEvent_IgnoresUnrelatedEventKinds(t *testing.T) {
	orders := newFakeOrderCompleter()
	svc := newStripeService(t, orders, &fakeGuestMarker{})

	event := paymentIntentEvent(t, stripe.EventTypeChargeRefunded, "ch_1", nil)
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(orders.completed) != 0 || len(orders.failed) != 0 {
		t.Fatalf("unrelated event must not change state")
	}
}

func TestHandleEvent_RejectsMissingOrderReference(t *testing.T) {
	orders := newFakeOrderCompleter()
	svc := newStripeService(t, orders, &fakeGuestMarker{})

	event := paymentIntentEvent(t, stripe.EventTypePaymentIntentSucceeded, "pi_000", nil)
	err := svc.HandleEvent(context.Background(), event)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
