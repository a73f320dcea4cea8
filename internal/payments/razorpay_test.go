package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kashvicreations/kashvi-backend/pkg/config"
	"github.com/kashvicreations/kashvi-backend/pkg/enums"
	pkgerrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
)

type fakeRazorpayAPI struct {
	lastData map[string]interface{}
	response map[string]interface{}
	err      error
}

func (f *fakeRazorpayAPI) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.lastData = data
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func newRazorpayService(t *testing.T, orders *fakeOrderCompleter, api *fakeRazorpayAPI) *RazorpayService {
	t.Helper()
	cfg := config.RazorpayConfig{KeyID: "rzp_test_key", KeySecret: "rzp_test_secret"}
	svc, err := NewRazorpayService(cfg, api, orders, testLogger())
	if err != nil {
		t.Fatalf("NewRazorpayService: %v", err)
	}
	return svc
}

func TestCreateGatewayOrder_ConvertsToPaiseAndAttachesID(t *testing.T) {
	orders := newFakeOrderCompleter()
	api := &fakeRazorpayAPI{response: map[string]interface{}{"id": "order_Abc123"}}
	svc := newRazorpayService(t, orders, api)

	orderID := uuid.New()
	result, err := svc.CreateGatewayOrder(context.Background(), orderID, decimal.RequireFromString("1132.80"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.GatewayOrderID != "order_Abc123" {
		t.Fatalf("gateway order id = %q", result.GatewayOrderID)
	}
	if result.AmountPaise != 113280 {
		t.Fatalf("amount = %d paise, want 113280", result.AmountPaise)
	}
	if api.lastData["currency"] != "INR" {
		t.Fatalf("currency = %v", api.lastData["currency"])
	}
	if orders.attached[orderID] != "order_Abc123" {
		t.Fatalf("gateway id not attached to order")
	}
}

func TestVerifyPayment_AcceptsValidSignature(t *testing.T) {
	orders := newFakeOrderCompleter()
	svc := newRazorpayService(t, orders, &fakeRazorpayAPI{})

	orderID := uuid.New()
	sig := SignRazorpayPayload("rzp_test_secret", "order_Abc123", "pay_Xyz789")

	completed, err := svc.VerifyPayment(context.Background(), RazorpayVerifyInput{
		OrderID:           orderID,
		OrderCreationID:   "order_Abc123",
		RazorpayPaymentID: "pay_Xyz789",
		RazorpaySignature: sig,
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if completed.PaymentStatus != enums.PaymentStatusComplete {
		t.Fatalf("payment status = %s", completed.PaymentStatus)
	}
	if len(orders.completed) != 1 || orders.completed[0].TxnID != "pay_Xyz789" {
		t.Fatalf("completion not driven with payment id: %+v", orders.completed)
	}
	if orders.completed[0].Gateway != enums.GatewayRazorpay {
		t.Fatalf("gateway = %s", orders.completed[0].Gateway)
	}
}

func TestVerifyPayment_RejectsMissingSignature(t *testing.T) {
	orders := newFakeOrderCompleter()
	svc := newRazorpayService(t, orders, &fakeRazorpayAPI{})

	_, err := svc.VerifyPayment(context.Background(), RazorpayVerifyInput{
		OrderID:           uuid.New(),
		OrderCreationID:   "order_Abc123",
		RazorpayPaymentID: "pay_Xyz789",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeSignature {
		t.Fatalf("expected signature error, got %v", err)
	}
	if len(orders.completed) != 0 {
		t.Fatalf("completion must not run on rejection")
	}
}

func TestVerifyPayment_RejectsTamperedSignature(t *testing.T) {
	orders := newFakeOrderCompleter()
	svc := newRazorpayService(t, orders, &fakeRazorpayAPI{})

	sig := SignRazorpayPayload("rzp_test_secret", "order_Abc123", "pay_Other")
	_, err := svc.VerifyPayment(context.Background(), RazorpayVerifyInput{
		OrderID:           uuid.New(),
		OrderCreationID:   "order_Abc123",
		RazorpayPaymentID: "pay_Xyz789",
		RazorpaySignature: sig,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeSignature {
		t.Fatalf("expected signature error, got %v", err)
	}
	if len(orders.completed) != 0 {
		t.Fatalf("completion must not run on rejection")
	}
}
