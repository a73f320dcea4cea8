package loyalty

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kashvicreations/kashvi-backend/pkg/config"
	"github.com/kashvicreations/kashvi-backend/pkg/db/models"
	pkgerrors "github.com/kashvicreations/kashvi-backend/pkg/errors"
)

// AwardResult reports the outcome of a per-order point grant.
type AwardResult struct {
	PointsEarned int    `json:"pointsEarned"`
	NewTotal     int    `json:"newTotal"`
	Tier         string `json:"tier"`
}

// Service grants loyalty points when orders complete payment.
type Service interface {
	// AwardPointsForOrderTx runs inside the caller's transaction so the
	// grant commits or rolls back with the payment completion itself.
	AwardPointsForOrderTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal, orderID uuid.UUID) (AwardResult, error)
	AccountForUser(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error)
}

type service struct {
	repo Repository
	cfg  config.LoyaltyConfig
}

// NewService wires loyalty dependencies.
func NewService(repo Repository, cfg config.LoyaltyConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "loyalty repository required")
	}
	return &service{repo: repo, cfg: cfg}, nil
}

func (s *service) AwardPointsForOrderTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal, orderID uuid.UUID) (AwardResult, error) {
	if userID == uuid.Nil || orderID == uuid.Nil {
		return AwardResult{}, pkgerrors.New(pkgerrors.CodeValidation, "user id and order id required")
	}
	if amount.IsNegative() {
		return AwardResult{}, pkgerrors.New(pkgerrors.CodeValidation, "order amount must not be negative")
	}

	repo := s.repo.WithTx(tx)

	// The unique order id on loyalty_awards is the durable guard; a prior
	// grant for this order makes the call a no-op.
	if existing, err := repo.FindAwardByOrder(ctx, orderID); err == nil {
		account, accErr := repo.FindAccountByUser(ctx, userID)
		if accErr != nil {
			return AwardResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, accErr, "load loyalty account")
		}
		return AwardResult{PointsEarned: existing.Points, NewTotal: account.TotalPoints, Tier: account.Tier}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return AwardResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check prior award")
	}

	rate, tiers, err := s.resolveProgram(ctx, repo)
	if err != nil {
		return AwardResult{}, err
	}
	points := int(amount.Mul(rate).Floor().IntPart())

	account, err := s.ensureAccount(ctx, repo, userID)
	if err != nil {
		return AwardResult{}, err
	}

	account.TotalPoints += points
	account.LifetimePoints += points
	account.LifetimeSpend = account.LifetimeSpend.Add(amount)
	account.Tier = tierFor(tiers, account.TotalPoints)
	if err := repo.SaveAccount(ctx, account); err != nil {
		return AwardResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update loyalty account")
	}

	award := &models.LoyaltyAward{
		ID:      uuid.New(),
		OrderID: orderID,
		UserID:  userID,
		Points:  points,
	}
	if err := repo.CreateAward(ctx, award); err != nil {
		return AwardResult{}, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "record loyalty award")
	}

	return AwardResult{PointsEarned: points, NewTotal: account.TotalPoints, Tier: account.Tier}, nil
}

func (s *service) AccountForUser(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	account, err := s.repo.FindAccountByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loyalty account not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load loyalty account")
	}
	return account, nil
}

// resolveProgram returns the active program's rate and tiers, falling back to
// the configured rate when no program is active.
func (s *service) resolveProgram(ctx context.Context, repo Repository) (decimal.Decimal, []models.LoyaltyTier, error) {
	program, err := repo.FindActiveProgram(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rate, parseErr := decimal.NewFromString(s.cfg.PointsPerRupee)
		if parseErr != nil {
			return decimal.Zero, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, parseErr, "invalid configured points rate")
		}
		return rate, nil, nil
	}
	if err != nil {
		return decimal.Zero, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load loyalty program")
	}
	return program.PointsPerRupee, program.Tiers, nil
}

func (s *service) ensureAccount(ctx context.Context, repo Repository, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	account, err := repo.FindAccountByUser(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load loyalty account")
	}
	account = &models.LoyaltyAccount{
		ID:            uuid.New(),
		UserID:        userID,
		LifetimeSpend: decimal.Zero,
	}
	if err := repo.CreateAccount(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create loyalty account")
	}
	return account, nil
}

// tierFor picks the tier with the highest MinPoints at or below total.
func tierFor(tiers []models.LoyaltyTier, total int) string {
	best := ""
	bestMin := -1
	for _, tier := range tiers {
		if tier.MinPoints <= total && tier.MinPoints > bestMin {
			best = tier.Name
			bestMin = tier.MinPoints
		}
	}
	return best
}
