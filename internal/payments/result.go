package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kashvicreations/kashvi-backend/pkg/db/models"
	"github.com/kashvicreations/kashvi-backend/pkg/enums"
)

// VerificationResult is the transient outcome of a gateway callback check.
// It is never persisted; the order row carries the durable state.
type VerificationResult struct {
	Success        bool            `json:"success"`
	GatewayOrderID string          `json:"gatewayOrderId"`
	TransactionID  string          `json:"transactionId"`
	Amount         decimal.Decimal `json:"amount"`
	RawStatus      string          `json:"rawStatus"`
}

// orderCompleter is the slice of the order lifecycle the adapters drive.
type orderCompleter interface {
	CompletePayment(ctx context.Context, orderID uuid.UUID, gateway enums.Gateway, txnID string) (*models.Order, error)
	FailPayment(ctx context.Context, orderID uuid.UUID) error
	DeletePendingOrder(ctx context.Context, orderID uuid.UUID) error
	AttachRazorpayOrder(ctx context.Context, orderID uuid.UUID, razorpayOrderID string) error
}

// guestPaymentMarker marks a guest order paid when a webhook references one.
type guestPaymentMarker interface {
	MarkPaid(ctx context.Context, guestOrderID uuid.UUID) error
}
