package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kashvicreations/kashvi-backend/pkg/config"
	"github.com/kashvicreations/kashvi-backend/pkg/db/models"
	pkgerrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
	"github.com/kashvicreations/kashvi-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Rate source labels recorded on each snapshot.
const (
	SourceAPI     = "api"
	SourceManual  = "manual"
	SourceDefault = "default"
)

// Breakdown is the step-by-step result of a dynamic price computation. Every
// component is rounded to two decimal places before the next step consumes it.
type Breakdown struct {
	BasePrice   decimal.Decimal `json:"basePrice"`
	LaborAmount decimal.Decimal `json:"laborAmount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	GSTAmount   decimal.Decimal `json:"gstAmount"`
	FinalPrice  decimal.Decimal `json:"finalPrice"`
}

// Rate is the resolved silver rate plus where it came from.
type Rate struct {
	PerGram     decimal.Decimal `json:"perGram"`
	Source      string          `json:"source"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// Service resolves silver rates and computes dynamic prices.
type Service interface {
	Quote(weightGrams, laborPct, gstPct, ratePerGram decimal.Decimal) (Breakdown, error)
	PriceForProduct(ctx context.Context, product *models.Product, variant *models.ProductVariant) (decimal.Decimal, error)
	CurrentRate(ctx context.Context) (Rate, error)
	RefreshRate(ctx context.Context) (Rate, error)
	SetManualRate(ctx context.Context, perGram decimal.Decimal) (Rate, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	fetcher RateFetcher
	cfg     config.SilverRateConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the pricing service. The fetcher may be nil when no
// external rate source is configured; the fallback chain skips it.
func NewService(repo Repository, tx txRunner, fetcher RateFetcher, cfg config.SilverRateConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if _, err := decimal.NewFromString(cfg.DefaultPerGram); err != nil {
		return nil, fmt.Errorf("invalid default silver rate %q: %w", cfg.DefaultPerGram, err)
	}
	return &service{
		repo:    repo,
		tx:      tx,
		fetcher: fetcher,
		cfg:     cfg,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// Quote computes a dynamic price breakdown. Each step rounds to 2dp so the
// stored components always sum exactly to the final price.
func (s *service) Quote(weightGrams, laborPct, gstPct, ratePerGram decimal.Decimal) (Breakdown, error) {
	if !weightGrams.IsPositive() {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "weight must be positive")
	}
	if laborPct.IsNegative() || gstPct.IsNegative() {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "percentages must not be negative")
	}
	if !ratePerGram.IsPositive() {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "silver rate must be positive")
	}

	hundred := decimal.NewFromInt(100)

	base := weightGrams.Mul(ratePerGram).Round(2)
	labor := base.Mul(laborPct).Div(hundred).Round(2)
	subtotal := base.Add(labor).Round(2)
	gst := subtotal.Mul(gstPct).Div(hundred).Round(2)
	final := subtotal.Add(gst).Round(2)

	return Breakdown{
		BasePrice:   base,
		LaborAmount: labor,
		Subtotal:    subtotal,
		GSTAmount:   gst,
		FinalPrice:  final,
	}, nil
}

// PriceForProduct resolves the effective unit price for a product, preferring
// variant overrides. Static products use their stored sale price as-is.
func (s *service) PriceForProduct(ctx context.Context, product *models.Product, variant *models.ProductVariant) (decimal.Decimal, error) {
	if product == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "product required")
	}

	if !product.DynamicPricing {
		if variant != nil && variant.SalePrice != nil {
			return variant.SalePrice.Round(2), nil
		}
		return product.SalePrice.Round(2), nil
	}

	weight := product.WeightGrams
	if variant != nil && variant.WeightGrams != nil {
		weight = *variant.WeightGrams
	}

	rate, err := s.CurrentRate(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	breakdown, err := s.Quote(weight, product.LaborPct, product.GSTPct, rate.PerGram)
	if err != nil {
		return decimal.Zero, err
	}
	return breakdown.FinalPrice, nil
}

// CurrentRate walks the fallback chain: a fresh active snapshot, then a fetch
// from the external source, then the most recent stale snapshot, then the
// configured default.
func (s *service) CurrentRate(ctx context.Context) (Rate, error) {
	now := s.now().UTC()

	active, err := s.repo.FindActive(ctx)
	if err == nil && now.Sub(active.LastUpdated) <= s.cfg.MaxAge {
		return Rate{PerGram: active.PricePerGram, Source: active.Source, LastUpdated: active.LastUpdated}, nil
	}
	if err != nil && err != gorm.ErrRecordNotFound {
		return Rate{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active silver rate")
	}

	if s.fetcher != nil {
		if rate, fetchErr := s.RefreshRate(ctx); fetchErr == nil {
			return rate, nil
		} else if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("silver rate fetch failed, falling back: %v", fetchErr))
		}
	}

	latest, err := s.repo.FindLatest(ctx)
	if err == nil {
		return Rate{PerGram: latest.PricePerGram, Source: latest.Source, LastUpdated: latest.LastUpdated}, nil
	}
	if err != gorm.ErrRecordNotFound {
		return Rate{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest silver rate")
	}

	fallback, _ := decimal.NewFromString(s.cfg.DefaultPerGram)
	return Rate{PerGram: fallback, Source: SourceDefault, LastUpdated: now}, nil
}

// RefreshRate fetches from the external source and stores the result as the
// single active snapshot.
func (s *service) RefreshRate(ctx context.Context) (Rate, error) {
	if s.fetcher == nil {
		return Rate{}, pkgerrors.New(pkgerrors.CodeDependency, "no silver rate source configured")
	}

	fetched, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return Rate{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch silver rate")
	}

	return s.activate(ctx, fetched, SourceAPI)
}

// SetManualRate stores an operator-provided rate as the active snapshot.
func (s *service) SetManualRate(ctx context.Context, perGram decimal.Decimal) (Rate, error) {
	if !perGram.IsPositive() {
		return Rate{}, pkgerrors.New(pkgerrors.CodeValidation, "silver rate must be positive")
	}
	return s.activate(ctx, perGram, SourceManual)
}

func (s *service) activate(ctx context.Context, perGram decimal.Decimal, source string) (Rate, error) {
	now := s.now().UTC()
	snapshot := &models.SilverPrice{
		PricePerGram: perGram.Round(2),
		Currency:     "INR",
		Source:       source,
		LastUpdated:  now,
		IsActive:     true,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeactivateAll(ctx); err != nil {
			return err
		}
		return repo.Create(ctx, snapshot)
	})
	if err != nil {
		return Rate{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist silver rate")
	}

	return Rate{PerGram: snapshot.PricePerGram, Source: source, LastUpdated: now}, nil
}
