package guest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kashvicreations/kashvi-backend/internal/catalog"
	"github.com/kashvicreations/kashvi-backend/internal/orders"
	"github.com/kashvicreations/kashvi-backend/internal/pricing"
	"github.com/kashvicreations/kashvi-backend/pkg/auth"
	"github.com/kashvicreations/kashvi-backend/pkg/config"
	"github.com/kashvicreations/kashvi-backend/pkg/db/models"
	"github.com/kashvicreations/kashvi-backend/pkg/enums"
	pkgerrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
	"github.com/kashvicreations/kashvi-backend/pkg/logger"
	"github.com/kashvicreations/kashvi-backend/pkg/security"
	"github.com/kashvicreations/kashvi-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// LineInput is one requested item at guest checkout.
type LineInput struct {
	ProductID uuid.UUID  `json:"productId" validate:"required"`
	VariantID *uuid.UUID `json:"variantId"`
	Qty       int        `json:"qty" validate:"required,gt=0"`
}

// PlaceInput is the unauthenticated checkout submission.
type PlaceInput struct {
	GuestInfo types.GuestInfo `json:"guestInfo"`
	CouponID  *uuid.UUID      `json:"couponId"`
	Items     []LineInput     `json:"items" validate:"required,min=1,dive"`
}

// PlaceResult returns the stored guest order plus the token the client needs
// to later claim the order into an account.
type PlaceResult struct {
	Order           *models.GuestOrder `json:"order"`
	ConversionToken string             `json:"conversionToken"`
	TokenExpiresAt  time.Time          `json:"tokenExpiresAt"`
}

// ConvertInput carries the token plus the credentials for the new account.
type ConvertInput struct {
	Token    string `json:"token" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// ConvertResult is the newly created account, the re-homed order and a
// freshly minted access token.
type ConvertResult struct {
	UserID      uuid.UUID     `json:"userId"`
	Order       *models.Order `json:"order"`
	AccessToken string        `json:"accessToken"`
}

// Service owns the guest checkout path and its single-use conversion flow.
type Service interface {
	Place(ctx context.Context, input PlaceInput) (*PlaceResult, error)
	MarkPaid(ctx context.Context, guestOrderID uuid.UUID) error
	Convert(ctx context.Context, input ConvertInput) (*ConvertResult, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	products catalog.ProductRepository
	users    catalog.UserRepository
	carts    catalog.CartRepository
	orders   orders.Repository
	pricing  pricing.Service
	guestCfg config.GuestConfig
	passCfg  config.PasswordConfig
	jwtCfg   config.JWTConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the guest checkout dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	products catalog.ProductRepository,
	users catalog.UserRepository,
	carts catalog.CartRepository,
	ordersRepo orders.Repository,
	pricingSvc pricing.Service,
	guestCfg config.GuestConfig,
	passCfg config.PasswordConfig,
	jwtCfg config.JWTConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "guest repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if products == nil || users == nil || carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repositories required")
	}
	if ordersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order repository required")
	}
	if pricingSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pricing service required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		products: products,
		users:    users,
		carts:    carts,
		orders:   ordersRepo,
		pricing:  pricingSvc,
		guestCfg: guestCfg,
		passCfg:  passCfg,
		jwtCfg:   jwtCfg,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Place prices every line once, persists the totals and mints the conversion
// token. Prices are never re-derived after this point.
func (s *service) Place(ctx context.Context, input PlaceInput) (*PlaceResult, error) {
	if err := validateGuestInfo(input.GuestInfo); err != nil {
		return nil, err
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line item")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil || item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line items require a product and a positive quantity")
		}
	}

	token, err := security.GenerateConversionToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint conversion token")
	}
	expiresAt := s.now().UTC().Add(s.guestCfg.ConversionTokenTTL)

	order := &models.GuestOrder{
		ID:              uuid.New(),
		GuestInfo:       input.GuestInfo,
		PaymentStatus:   enums.PaymentStatusPending,
		CouponID:        input.CouponID,
		ConversionToken: token,
		TokenExpiresAt:  expiresAt,
		Discount:        decimal.Zero,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		products := s.products.WithTx(tx)

		subtotal := decimal.Zero
		gstTotal := decimal.Zero
		finalTotal := decimal.Zero
		for _, line := range input.Items {
			product, err := products.FindByID(ctx, line.ProductID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"productId": line.ProductID.String()})
			}
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
			}
			var variant *models.ProductVariant
			if line.VariantID != nil {
				variant, err = products.FindVariant(ctx, product.ID, *line.VariantID)
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found")
				}
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
				}
			}

			unitSubtotal, unitGST, unitPrice, err := s.priceLine(ctx, product, variant)
			if err != nil {
				return err
			}

			qty := decimal.NewFromInt(int64(line.Qty))
			lineTotal := unitPrice.Mul(qty).Round(2)
			order.Items = append(order.Items, models.GuestOrderItem{
				ID:           uuid.New(),
				GuestOrderID: order.ID,
				ProductID:    product.ID,
				VariantID:    line.VariantID,
				Name:         product.Name,
				Qty:          line.Qty,
				UnitPrice:    unitPrice,
				Total:        lineTotal,
			})
			subtotal = subtotal.Add(unitSubtotal.Mul(qty).Round(2))
			gstTotal = gstTotal.Add(unitGST.Mul(qty).Round(2))
			finalTotal = finalTotal.Add(lineTotal)
		}

		order.Subtotal = subtotal.Round(2)
		order.GSTAmount = gstTotal.Round(2)
		order.FinalAmount = finalTotal.Round(2)

		return s.repo.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "guest order placed")

	return &PlaceResult{Order: order, ConversionToken: token, TokenExpiresAt: expiresAt}, nil
}

// priceLine resolves one unit's subtotal, GST share and final price. Static
// products carry their sale price with no separate GST component.
func (s *service) priceLine(ctx context.Context, product *models.Product, variant *models.ProductVariant) (subtotal, gst, final decimal.Decimal, err error) {
	if !product.DynamicPricing {
		price, err := s.pricing.PriceForProduct(ctx, product, variant)
		if err != nil {
			return decimal.Zero, decimal.Zero, decimal.Zero, err
		}
		return price, decimal.Zero, price, nil
	}

	weight := product.WeightGrams
	if variant != nil && variant.WeightGrams != nil {
		weight = *variant.WeightGrams
	}
	rate, err := s.pricing.CurrentRate(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}
	breakdown, err := s.pricing.Quote(weight, product.LaborPct, product.GSTPct, rate.PerGram)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}
	return breakdown.Subtotal, breakdown.GSTAmount, breakdown.FinalPrice, nil
}

// MarkPaid records a verified gateway confirmation for a guest order.
// Duplicate deliveries find the row already COMPLETE and change nothing.
func (s *service) MarkPaid(ctx context.Context, guestOrderID uuid.UUID) error {
	flipped, err := s.repo.MarkPaid(ctx, guestOrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark guest order paid")
	}
	if !flipped {
		if _, err := s.repo.FindByID(ctx, guestOrderID); errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "guest order not found")
		}
	}
	return nil
}

// Convert claims the token, creates the account and re-homes the guest order
// into a standard one, preserving every price snapshot. Tokens are strictly
// single use; a second attempt or an expired token is a conflict.
func (s *service) Convert(ctx context.Context, input ConvertInput) (*ConvertResult, error) {
	if strings.TrimSpace(input.Token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversion token required")
	}
	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password required")
	}

	hash, err := security.HashPassword(input.Password, s.passCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var result ConvertResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		guestOrder, err := repo.FindByToken(ctx, input.Token)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "conversion token not recognized")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load guest order")
		}

		user := &models.User{
			ID:           uuid.New(),
			Email:        strings.ToLower(strings.TrimSpace(input.Email)),
			PasswordHash: hash,
			Name:         guestOrder.GuestInfo.Name,
			Phone:        guestOrder.GuestInfo.Phone,
			Role:         enums.RoleUser,
			SavedAddress: guestOrder.GuestInfo.Address,
		}
		if err := s.users.WithTx(tx).Create(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "create account")
		}
		if err := s.carts.WithTx(tx).Create(ctx, &models.Cart{ID: uuid.New(), UserID: user.ID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
		}

		order := rehomeOrder(guestOrder, user.ID)
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		claimed, err := repo.ClaimToken(ctx, input.Token, user.ID, order.ID, s.now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "claim token")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeConflict, "conversion token already used or expired")
		}

		token, err := auth.MintAccessToken(s.jwtCfg, auth.AccessTokenPayload{UserID: user.ID, Role: user.Role})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
		}

		result = ConvertResult{UserID: user.ID, Order: order, AccessToken: token}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithUserID(ctx, result.UserID.String())
	ctx = s.logg.WithOrderID(ctx, result.Order.ID.String())
	s.logg.Info(ctx, "guest order converted")
	return &result, nil
}

// rehomeOrder copies the guest order into a standard one. Snapshots, coupon
// and payment state carry over untouched.
func rehomeOrder(guestOrder *models.GuestOrder, userID uuid.UUID) *models.Order {
	order := &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		PaymentMode:   enums.PaymentModeOnline,
		PaymentStatus: guestOrder.PaymentStatus,
		OrderStatus:   enums.OrderStatusPlaced,
		ShippingAddress: types.Address{
			FullName: guestOrder.GuestInfo.Name,
			Phone:    guestOrder.GuestInfo.Address.Phone,
			Street:   guestOrder.GuestInfo.Address.Street,
			City:     guestOrder.GuestInfo.Address.City,
			State:    guestOrder.GuestInfo.Address.State,
			Zip:      guestOrder.GuestInfo.Address.Zip,
			Country:  guestOrder.GuestInfo.Address.Country,
		},
		CouponID:    guestOrder.CouponID,
		TotalAmount: guestOrder.FinalAmount,
	}
	for _, item := range guestOrder.Items {
		order.Items = append(order.Items, models.OrderLineItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
			Total:     item.Total,
		})
	}
	return order
}

func validateGuestInfo(info types.GuestInfo) error {
	if strings.TrimSpace(info.Name) == "" || strings.TrimSpace(info.Email) == "" || strings.TrimSpace(info.Phone) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "guest name, email and phone required")
	}
	if missing := info.Address.MissingFields(); len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "incomplete guest address").
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}
