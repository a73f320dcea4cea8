package mailer

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kashvicreations/kashvi-backend/pkg/logger"
)

// OrderConfirmation carries everything the confirmation template needs.
type OrderConfirmation struct {
	OrderID     uuid.UUID
	Email       string
	Name        string
	TotalAmount decimal.Decimal
}

// Mailer sends transactional mail. Implementations must be safe for
// concurrent use; callers treat sends as fire-and-forget and never let a
// failure roll back the transaction that triggered it.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error
}

type logMailer struct {
	logg *logger.Logger
}

// NewLogMailer returns a mailer that records sends in the structured log
// instead of dispatching real mail. Used until an SMTP provider is wired.
func NewLogMailer(logg *logger.Logger) Mailer {
	return &logMailer{logg: logg}
}

func (m *logMailer) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error {
	ctx = m.logg.WithFields(ctx, map[string]any{
		"order_id": msg.OrderID.String(),
		"email":    msg.Email,
		"amount":   msg.TotalAmount.StringFixed(2),
	})
	m.logg.Info(ctx, "order confirmation email queued")
	return nil
}
