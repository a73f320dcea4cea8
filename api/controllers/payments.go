package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kashvicreations/kashvi-backend/api/responses"
	"github.com/kashvicreations/kashvi-backend/api/validators"
	"github.com/kashvicreations/kashvi-backend/internal/orders"
	"github.com/kashvicreations/kashvi-backend/internal/payments"
	"github.com/kashvicreations/kashvi-backend/pkg/db/models"
	"github.com/kashvicreations/kashvi-backend/pkg/enums"
	pkgerrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
	"github.com/kashvicreations/kashvi-backend/pkg/logger"
)

type gatewayOrderBody struct {
	OrderID uuid.UUID `json:"orderId" validate:"required"`
}

// loadPayableOrder resolves the caller's order and confirms there is still a
// pending payment on it.
func loadPayableOrder(r *http.Request, svc orders.Service) (*models.Order, error) {
	principal, err := currentPrincipal(r)
	if err != nil {
		return nil, err
	}
	var body gatewayOrderBody
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		return nil, err
	}
	order, err := svc.GetForUser(r.Context(), body.OrderID, principal.UserID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order payment is not pending")
	}
	return order, nil
}

// CreateRazorpayOrder registers a pending order with Razorpay and returns the
// gateway order id for the client checkout widget.
func CreateRazorpayOrder(rzp *payments.RazorpayService, ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rzp == nil || ordersSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		order, err := loadPayableOrder(r, ordersSvc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		gatewayOrder, err := rzp.CreateGatewayOrder(r.Context(), order.ID, order.TotalAmount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, gatewayOrder)
	}
}

// VerifyRazorpayPayment checks the callback signature and, when valid,
// completes the payment exactly once.
func VerifyRazorpayPayment(rzp *payments.RazorpayService, ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rzp == nil || ordersSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		principal, err := currentPrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body payments.RazorpayVerifyInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := ordersSvc.GetForUser(r.Context(), body.OrderID, principal.UserID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := rzp.VerifyPayment(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// CreateCCAvenueOrder confirms the pending order and echoes the amount the
// hosted page will charge.
func CreateCCAvenueOrder(ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ordersSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		order, err := loadPayableOrder(r, ordersSvc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"orderId":  order.ID.String(),
			"amount":   order.TotalAmount.StringFixed(2),
			"currency": "INR",
		})
	}
}

// CCAvenueRequestHandler encrypts the merchant parameters for a pending
// order so the client can post them to the hosted page.
func CCAvenueRequestHandler(cc *payments.CCAvenueService, ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cc == nil || ordersSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		order, err := loadPayableOrder(r, ordersSvc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := cc.BuildPaymentRequest(r.Context(), order.ID, order.TotalAmount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// CCAvenueResponseHandler receives the gateway's encrypted post-back and
// answers with a raw 301 redirect. This is the one surface that does not use
// the JSON envelope.
func CCAvenueResponseHandler(cc *payments.CCAvenueService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		if err := r.ParseForm(); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse form"))
			return
		}
		encResp := strings.TrimSpace(r.FormValue("encResp"))

		outcome, err := cc.HandleResponse(r.Context(), encResp)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		http.Redirect(w, r, outcome.RedirectURL, http.StatusMovedPermanently)
	}
}
