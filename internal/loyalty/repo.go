package loyalty

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kashvicreations/kashvi-backend/pkg/db/models"
)

// Repository persists loyalty programs, accounts and per-order awards.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveProgram(ctx context.Context) (*models.LoyaltyProgram, error)
	FindAccountByUser(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error)
	CreateAccount(ctx context.Context, account *models.LoyaltyAccount) error
	SaveAccount(ctx context.Context, account *models.LoyaltyAccount) error
	CreateAward(ctx context.Context, award *models.LoyaltyAward) error
	FindAwardByOrder(ctx context.Context, orderID uuid.UUID) (*models.LoyaltyAward, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a loyalty repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActiveProgram(ctx context.Context) (*models.LoyaltyProgram, error) {
	var program models.LoyaltyProgram
	err := r.db.WithContext(ctx).
		Preload("Tiers").
		Where("is_active = ?", true).
		Order("created_at DESC").
		First(&program).Error
	if err != nil {
		return nil, err
	}
	return &program, nil
}

func (r *repository) FindAccountByUser(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) CreateAccount(ctx context.Context, account *models.LoyaltyAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) SaveAccount(ctx context.Context, account *models.LoyaltyAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

func (r *repository) CreateAward(ctx context.Context, award *models.LoyaltyAward) error {
	return r.db.WithContext(ctx).Create(award).Error
}

func (r *repository) FindAwardByOrder(ctx context.Context, orderID uuid.UUID) (*models.LoyaltyAward, error) {
	var award models.LoyaltyAward
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&award).Error
	if err != nil {
		return nil, err
	}
	return &award, nil
}
