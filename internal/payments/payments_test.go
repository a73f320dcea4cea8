package payments

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/kashvicreations/kashvi-backend/pkg/db/models"
	"github.com/kashvicreations/kashvi-backend/pkg/enums"
	"github.com/kashvicreations/kashvi-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type fakeOrderCompleter struct {
	mu        sync.Mutex
	completed []struct {
		OrderID uuid.UUID
		Gateway enums.Gateway
		TxnID   string
	}
	failed   []uuid.UUID
	deleted  []uuid.UUID
	attached map[uuid.UUID]string

	completeErr error
	deleteErr   error
}

func newFakeOrderCompleter() *fakeOrderCompleter {
	return &fakeOrderCompleter{attached: make(map[uuid.UUID]string)}
}

func (f *fakeOrderCompleter) CompletePayment(_ context.Context, orderID uuid.UUID, gateway enums.Gateway, txnID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	f.completed = append(f.completed, struct {
		OrderID uuid.UUID
		Gateway enums.Gateway
		TxnID   string
	}{orderID, gateway, txnID})
	return &models.Order{ID: orderID, PaymentStatus: enums.PaymentStatusComplete}, nil
}

func (f *fakeOrderCompleter) FailPayment(_ context.Context, orderID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, orderID)
	return nil
}

func (f *fakeOrderCompleter) DeletePendingOrder(_ context.Context, orderID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, orderID)
	return nil
}

func (f *fakeOrderCompleter) AttachRazorpayOrder(_ context.Context, orderID uuid.UUID, razorpayOrderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached[orderID] = razorpayOrderID
	return nil
}

type fakeGuestMarker struct {
	mu     sync.Mutex
	marked []uuid.UUID
}

func (f *fakeGuestMarker) MarkPaid(_ context.Context, guestOrderID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, guestOrderID)
	return nil
}
