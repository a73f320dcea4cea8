package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kashvicreations/kashvi-backend/pkg/config"
	"github.com/kashvicreations/kashvi-backend/pkg/db/models"
	"github.com/kashvicreations/kashvi-backend/pkg/enums"
	pkgerrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
	"github.com/kashvicreations/kashvi-backend/pkg/logger"
)

// razorpayOrderAPI matches the Order resource of the razorpay-go client.
type razorpayOrderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// GatewayOrder is returned to the client so it can open the provider's
// checkout widget.
type GatewayOrder struct {
	GatewayOrderID string `json:"gatewayOrderId"`
	KeyID          string `json:"keyId"`
	AmountPaise    int64  `json:"amountPaise"`
	Currency       string `json:"currency"`
}

// RazorpayVerifyInput is the callback payload the client posts after paying.
type RazorpayVerifyInput struct {
	OrderID           uuid.UUID `json:"orderId" validate:"required"`
	OrderCreationID   string    `json:"orderCreationId" validate:"required"`
	RazorpayPaymentID string    `json:"razorpayPaymentId" validate:"required"`
	RazorpaySignature string    `json:"razorpaySignature"`
}

// RazorpayService creates gateway orders and verifies HMAC payment callbacks.
type RazorpayService struct {
	cfg    config.RazorpayConfig
	api    razorpayOrderAPI
	orders orderCompleter
	logg   *logger.Logger
}

// NewRazorpayService wires the Razorpay adapter.
func NewRazorpayService(cfg config.RazorpayConfig, api razorpayOrderAPI, orders orderCompleter, logg *logger.Logger) (*RazorpayService, error) {
	if strings.TrimSpace(cfg.KeySecret) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay key secret required")
	}
	if api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay order api required")
	}
	if orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order service required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &RazorpayService{cfg: cfg, api: api, orders: orders, logg: logg}, nil
}

// CreateGatewayOrder registers the pending order with Razorpay and stores the
// returned gateway order id for later verification.
func (s *RazorpayService) CreateGatewayOrder(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) (*GatewayOrder, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	paise := amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	body, err := s.api.Create(map[string]interface{}{
		"amount":   paise,
		"currency": "INR",
		"receipt":  orderID.String(),
	}, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create razorpay order")
	}
	gatewayOrderID, _ := body["id"].(string)
	if gatewayOrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay response missing order id")
	}

	if err := s.orders.AttachRazorpayOrder(ctx, orderID, gatewayOrderID); err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, orderID.String())
	ctx = s.logg.WithGateway(ctx, enums.GatewayRazorpay.String())
	s.logg.Info(ctx, "gateway order created")

	return &GatewayOrder{
		GatewayOrderID: gatewayOrderID,
		KeyID:          s.cfg.KeyID,
		AmountPaise:    paise,
		Currency:       "INR",
	}, nil
}

// VerifyPayment checks the callback signature and, when authentic, drives the
// idempotent payment completion. The digest covers "orderCreationId|paymentId".
func (s *RazorpayService) VerifyPayment(ctx context.Context, input RazorpayVerifyInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil || input.OrderCreationID == "" || input.RazorpayPaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order and payment identifiers required")
	}
	if input.RazorpaySignature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeSignature, "payment signature missing")
	}

	expected := SignRazorpayPayload(s.cfg.KeySecret, input.OrderCreationID, input.RazorpayPaymentID)
	if !hmac.Equal([]byte(expected), []byte(input.RazorpaySignature)) {
		return nil, pkgerrors.New(pkgerrors.CodeSignature, "payment signature mismatch")
	}

	return s.orders.CompletePayment(ctx, input.OrderID, enums.GatewayRazorpay, input.RazorpayPaymentID)
}

// SignRazorpayPayload computes the hex HMAC-SHA256 digest Razorpay sends back
// with a successful payment.
func SignRazorpayPayload(secret, orderCreationID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderCreationID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
