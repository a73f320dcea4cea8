package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kashvicreations/kashvi-backend/pkg/db/models"
	"github.com/kashvicreations/kashvi-backend/pkg/enums"
)

func setupRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_repo_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	for _, stmt := range orderTestDDL {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedPendingOrder(t *testing.T, db *gorm.DB) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		PaymentMode:   enums.PaymentModeOnline,
		PaymentStatus: enums.PaymentStatusPending,
		OrderStatus:   enums.OrderStatusPlaced,
		TotalAmount:   decimal.RequireFromString("500.00"),
	}
	require.NoError(t, db.Create(order).Error)
	require.NoError(t, db.Create(&models.OrderLineItem{
		ID:        uuid.New(),
		OrderID:   order.ID,
		ProductID: uuid.New(),
		Name:      "Silver Ring",
		Qty:       1,
		UnitPrice: decimal.RequireFromString("500.00"),
		Total:     decimal.RequireFromString("500.00"),
	}).Error)
	return order
}

func TestMarkPaymentCompleteFlipsExactlyOnce(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewRepository(db)
	order := seedPendingOrder(t, db)
	ctx := context.Background()

	flipped, err := repo.MarkPaymentComplete(ctx, order.ID, enums.GatewayRazorpay, "pay_123")
	require.NoError(t, err)
	assert.True(t, flipped)

	again, err := repo.MarkPaymentComplete(ctx, order.ID, enums.GatewayRazorpay, "pay_456")
	require.NoError(t, err)
	assert.False(t, again, "second conditional update must affect zero rows")

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusComplete, stored.PaymentStatus)
	require.NotNil(t, stored.TransactionID)
	assert.Equal(t, "pay_123", *stored.TransactionID)
}

func TestMarkPaymentCompleteStoresGatewayReference(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewRepository(db)
	order := seedPendingOrder(t, db)
	ctx := context.Background()

	flipped, err := repo.MarkPaymentComplete(ctx, order.ID, enums.GatewayStripe, "pi_789")
	require.NoError(t, err)
	require.True(t, flipped)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.StripePaymentID)
	assert.Equal(t, "pi_789", *stored.StripePaymentID)
}

func TestDeletePendingRemovesOrderAndLines(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewRepository(db)
	order := seedPendingOrder(t, db)
	ctx := context.Background()

	deleted, err := repo.DeletePending(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	var orderCount, lineCount int64
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", order.ID).Count(&orderCount).Error)
	require.NoError(t, db.Model(&models.OrderLineItem{}).Where("order_id = ?", order.ID).Count(&lineCount).Error)
	assert.Zero(t, orderCount)
	assert.Zero(t, lineCount)
}

func TestDeletePendingLeavesSettledOrders(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewRepository(db)
	order := seedPendingOrder(t, db)
	ctx := context.Background()

	_, err := repo.MarkPaymentComplete(ctx, order.ID, enums.GatewayCCAvenue, "trk_1")
	require.NoError(t, err)

	deleted, err := repo.DeletePending(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	var count int64
	require.NoError(t, db.Model(&models.OrderLineItem{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count, "line items of a settled order must survive")
}

func TestSetRazorpayOrderID(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewRepository(db)
	order := seedPendingOrder(t, db)
	ctx := context.Background()

	require.NoError(t, repo.SetRazorpayOrderID(ctx, order.ID, "order_ABC"))

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RazorpayOrderID)
	assert.Equal(t, "order_ABC", *stored.RazorpayOrderID)
}
