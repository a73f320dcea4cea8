package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kashvicreations/kashvi-backend/internal/catalog"
	"github.com/kashvicreations/kashvi-backend/internal/inventory"
	"github.com/kashvicreations/kashvi-backend/internal/loyalty"
	"github.com/kashvicreations/kashvi-backend/internal/mailer"
	"github.com/kashvicreations/kashvi-backend/internal/pricing"
	"github.com/kashvicreations/kashvi-backend/pkg/db/models"
	"github.com/kashvicreations/kashvi-backend/pkg/enums"
	pkgerrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
	"github.com/kashvicreations/kashvi-backend/pkg/logger"
	"github.com/kashvicreations/kashvi-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// LineItemInput is one requested item at checkout.
type LineItemInput struct {
	ProductID uuid.UUID  `json:"productId" validate:"required"`
	VariantID *uuid.UUID `json:"variantId"`
	Qty       int        `json:"qty" validate:"required,gt=0"`
}

// CreateInput is the checkout submission for an authenticated buyer.
type CreateInput struct {
	PaymentMode     enums.PaymentMode `json:"paymentMode"`
	ShippingAddress types.Address     `json:"shippingAddress"`
	CouponID        *uuid.UUID        `json:"couponId"`
	Items           []LineItemInput   `json:"items" validate:"required,min=1,dive"`
}

// EditInput requests a quantity change on one line of a placed order.
type EditInput struct {
	LineItemID uuid.UUID `json:"lineItemId" validate:"required"`
	Qty        int       `json:"qty" validate:"required,gt=0"`
}

// StatusUpdateInput carries an admin's free-form status strings; both fields
// are optional and normalized before persistence.
type StatusUpdateInput struct {
	OrderStatus   string `json:"orderStatus"`
	PaymentStatus string `json:"paymentStatus"`
}

// Service owns the order lifecycle from placement through payment completion.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	GetForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	UserEdit(ctx context.Context, userID, orderID uuid.UUID, edits []EditInput) (*models.Order, error)
	AdminUpdateStatus(ctx context.Context, orderID uuid.UUID, input StatusUpdateInput) (*models.Order, error)
	AttachRazorpayOrder(ctx context.Context, orderID uuid.UUID, razorpayOrderID string) error
	CompletePayment(ctx context.Context, orderID uuid.UUID, gateway enums.Gateway, txnID string) (*models.Order, error)
	FailPayment(ctx context.Context, orderID uuid.UUID) error
	DeletePendingOrder(ctx context.Context, orderID uuid.UUID) error
}

type service struct {
	repo      Repository
	tx        txRunner
	products  catalog.ProductRepository
	users     catalog.UserRepository
	carts     catalog.CartRepository
	pricing   pricing.Service
	inventory inventory.Service
	loyalty   loyalty.Service
	mail      mailer.Mailer
	logg      *logger.Logger
}

// NewService wires order lifecycle dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	products catalog.ProductRepository,
	users catalog.UserRepository,
	carts catalog.CartRepository,
	pricingSvc pricing.Service,
	inventorySvc inventory.Service,
	loyaltySvc loyalty.Service,
	mail mailer.Mailer,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if products == nil || users == nil || carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repositories required")
	}
	if pricingSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pricing service required")
	}
	if inventorySvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory service required")
	}
	if loyaltySvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "loyalty service required")
	}
	if mail == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mailer required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		products:  products,
		users:     users,
		carts:     carts,
		pricing:   pricingSvc,
		inventory: inventorySvc,
		loyalty:   loyaltySvc,
		mail:      mail,
		logg:      logg,
	}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated buyer required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line item")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil || item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line items require a product and a positive quantity")
		}
	}

	mode := input.PaymentMode
	if mode == "" {
		mode = enums.PaymentModeOnline
	}
	if !mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment mode")
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	address := input.ShippingAddress.MergeFrom(user.SavedAddress)
	if missing := address.MissingFields(); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "incomplete shipping address").
			WithDetails(map[string]any{"missing": missing})
	}

	order := &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		PaymentMode:     mode,
		PaymentStatus:   enums.PaymentStatusPending,
		OrderStatus:     enums.OrderStatusPlaced,
		ShippingAddress: address,
		CouponID:        input.CouponID,
	}

	productIDs := make([]uuid.UUID, 0, len(input.Items))
	seen := make(map[uuid.UUID]struct{}, len(input.Items))
	for _, line := range input.Items {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		productIDs = append(productIDs, line.ProductID)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		products := s.products.WithTx(tx)

		loaded, err := products.FindByIDs(ctx, productIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
		}
		byID := make(map[uuid.UUID]models.Product, len(loaded))
		for _, p := range loaded {
			byID[p.ID] = p
		}

		total := decimal.Zero
		for _, line := range input.Items {
			product, ok := byID[line.ProductID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"productId": line.ProductID.String()})
			}

			var variant *models.ProductVariant
			if line.VariantID != nil {
				variant, err = products.FindVariant(ctx, product.ID, *line.VariantID)
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found").
						WithDetails(map[string]any{"variantId": line.VariantID.String()})
				}
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
				}
			}

			unitPrice, err := s.pricing.PriceForProduct(ctx, &product, variant)
			if err != nil {
				return err
			}

			lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Qty))).Round(2)
			order.Items = append(order.Items, models.OrderLineItem{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ProductID: product.ID,
				VariantID: line.VariantID,
				Name:      product.Name,
				Qty:       line.Qty,
				UnitPrice: unitPrice,
				Total:     lineTotal,
			})
			total = total.Add(lineTotal)
		}
		order.TotalAmount = total.Round(2)

		return s.repo.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "order placed")
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated buyer required")
	}
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return list, nil
}

func (s *service) GetForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByIDForUser(ctx, orderID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

// UserEdit applies quantity decreases to a PLACED order. Increases are
// rejected and the unit price snapshot is never recalculated.
func (s *service) UserEdit(ctx context.Context, userID, orderID uuid.UUID, edits []EditInput) (*models.Order, error) {
	if len(edits) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no edits supplied")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByIDForUser(ctx, orderID, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		if order.OrderStatus != enums.OrderStatusPlaced {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can only be edited while placed")
		}

		byID := make(map[uuid.UUID]*models.OrderLineItem, len(order.Items))
		for i := range order.Items {
			byID[order.Items[i].ID] = &order.Items[i]
		}

		for _, edit := range edits {
			line, ok := byID[edit.LineItemID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "line item not found").
					WithDetails(map[string]any{"lineItemId": edit.LineItemID.String()})
			}
			if edit.Qty <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
			}
			if edit.Qty > line.Qty {
				return pkgerrors.New(pkgerrors.CodeConflict, "quantity can only be decreased").
					WithDetails(map[string]any{"lineItemId": line.ID.String(), "current": line.Qty, "requested": edit.Qty})
			}
			if edit.Qty == line.Qty {
				continue
			}

			line.Qty = edit.Qty
			line.Total = line.UnitPrice.Mul(decimal.NewFromInt(int64(edit.Qty))).Round(2)
			if err := repo.UpdateLineItem(ctx, line); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update line item")
			}
		}

		total := decimal.Zero
		for i := range order.Items {
			total = total.Add(order.Items[i].Total)
		}
		order.TotalAmount = total.Round(2)
		if err := repo.UpdateTotal(ctx, order.ID, order.TotalAmount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order total")
		}

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) AdminUpdateStatus(ctx context.Context, orderID uuid.UUID, input StatusUpdateInput) (*models.Order, error) {
	var orderStatus *enums.OrderStatus
	if raw := strings.TrimSpace(input.OrderStatus); raw != "" {
		parsed, err := enums.ParseOrderStatus(normalizeStatus(raw))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status")
		}
		orderStatus = &parsed
	}
	var paymentStatus *enums.PaymentStatus
	if raw := strings.TrimSpace(input.PaymentStatus); raw != "" {
		parsed, err := enums.ParsePaymentStatus(normalizeStatus(raw))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status")
		}
		paymentStatus = &parsed
	}
	if orderStatus == nil && paymentStatus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no status supplied")
	}

	if _, err := s.repo.FindByID(ctx, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if err := s.repo.UpdateStatuses(ctx, orderID, orderStatus, paymentStatus); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
	}
	return order, nil
}

func (s *service) AttachRazorpayOrder(ctx context.Context, orderID uuid.UUID, razorpayOrderID string) error {
	if razorpayOrderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway order id required")
	}
	if err := s.repo.SetRazorpayOrderID(ctx, orderID, razorpayOrderID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store gateway order id")
	}
	return nil
}

// CompletePayment is the idempotency boundary for payment confirmations. The
// PENDING gate is a single conditional UPDATE; a duplicate delivery finds the
// row already COMPLETE and returns it without touching inventory, cart,
// loyalty or mail again.
func (s *service) CompletePayment(ctx context.Context, orderID uuid.UUID, gateway enums.Gateway, txnID string) (*models.Order, error) {
	if !gateway.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid gateway")
	}

	var completed *models.Order
	var alreadyComplete bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		flipped, err := repo.MarkPaymentComplete(ctx, orderID, gateway, txnID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete payment")
		}

		order, err := repo.FindByID(ctx, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}

		if !flipped {
			if order.PaymentStatus == enums.PaymentStatusComplete {
				alreadyComplete = true
				completed = order
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order payment is not pending")
		}

		orderRef := order.ID
		for _, line := range order.Items {
			_, err := s.inventory.ApplyMovementTx(ctx, tx, inventory.MovementInput{
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Type:      enums.MovementTypeOut,
				Quantity:  line.Qty,
				Reason:    "order fulfilled",
				OrderID:   &orderRef,
			})
			if err != nil {
				return err
			}
		}

		carts := s.carts.WithTx(tx)
		cart, err := carts.FindByUserID(ctx, order.UserID)
		if err == nil {
			if err := carts.ClearItems(ctx, cart.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}

		if _, err := s.loyalty.AwardPointsForOrderTx(ctx, tx, order.UserID, order.TotalAmount, order.ID); err != nil {
			return err
		}

		completed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, completed.ID.String())
	ctx = s.logg.WithGateway(ctx, gateway.String())
	if alreadyComplete {
		s.logg.Info(ctx, "duplicate payment confirmation ignored")
		return completed, nil
	}
	s.logg.Info(ctx, "payment completed")

	s.sendConfirmation(ctx, completed)
	return completed, nil
}

// sendConfirmation runs after the completion transaction commits. Mail
// failures are logged and never surfaced to the payment flow.
func (s *service) sendConfirmation(ctx context.Context, order *models.Order) {
	user, err := s.users.FindByID(ctx, order.UserID)
	if err != nil {
		s.logg.Error(ctx, "confirmation email skipped", err)
		return
	}
	msg := mailer.OrderConfirmation{
		OrderID:     order.ID,
		Email:       user.Email,
		Name:        user.Name,
		TotalAmount: order.TotalAmount,
	}
	if err := s.mail.SendOrderConfirmation(ctx, msg); err != nil {
		s.logg.Error(ctx, "confirmation email failed", err)
	}
}

func (s *service) FailPayment(ctx context.Context, orderID uuid.UUID) error {
	flipped, err := s.repo.MarkPaymentFailed(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fail payment")
	}
	if !flipped {
		if _, err := s.repo.FindByID(ctx, orderID); errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
	}
	return nil
}

// DeletePendingOrder removes an order the gateway reported as aborted. Only
// PENDING rows qualify; inventory is untouched since nothing was decremented.
func (s *service) DeletePendingOrder(ctx context.Context, orderID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		deleted, err := s.repo.WithTx(tx).DeletePending(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete pending order")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending")
		}
		return nil
	})
}

// normalizeStatus folds free-form admin input into the canonical enum form.
func normalizeStatus(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), "_"))
}
