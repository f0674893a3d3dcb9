package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vvany/boutique/internal/config"
	"github.com/vvany/boutique/internal/models"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	return &Service{DB: db}, db
}

func seedOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, status models.OrderStatus, total int64, createdAt time.Time) models.Order {
	order := models.Order{
		UserID:       userID,
		CustomerName: "Client",
		Items: models.OrderItemList{{
			ProductID: uuid.New(),
			Name:      "Robe A",
			Price:     decimal.NewFromInt(total),
		}},
		TotalPrice: decimal.NewFromInt(total),
		Status:     status,
	}
	require.NoError(t, db.Create(&order).Error)
	if !createdAt.IsZero() {
		require.NoError(t, db.Model(&order).UpdateColumn("created_at", createdAt).Error)
		order.CreatedAt = createdAt
	}
	return order
}

func TestUpdateStatusHappyPath(t *testing.T) {
	svc, db := newTestService(t)
	order := seedOrder(t, db, uuid.New(), models.StatusPending, 50, time.Time{})

	for _, next := range []models.OrderStatus{
		models.StatusPreparing, models.StatusShipped, models.StatusDelivered,
	} {
		updated, err := svc.UpdateStatus(context.Background(), order.ID, next)
		require.NoError(t, err)
		require.Equal(t, next, updated.Status)
	}

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	require.Equal(t, models.StatusDelivered, stored.Status)
}

func TestUpdateStatusRejectsJumpsAndTerminal(t *testing.T) {
	svc, db := newTestService(t)

	pending := seedOrder(t, db, uuid.New(), models.StatusPending, 50, time.Time{})
	_, err := svc.UpdateStatus(context.Background(), pending.ID, models.StatusDelivered)
	require.ErrorIs(t, err, ErrInvalidTransition)

	delivered := seedOrder(t, db, uuid.New(), models.StatusDelivered, 50, time.Time{})
	_, err = svc.UpdateStatus(context.Background(), delivered.ID, models.StatusCancelled)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.UpdateStatus(context.Background(), uuid.New(), models.StatusPreparing)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAdminCancelFromAnyActiveStatus(t *testing.T) {
	svc, db := newTestService(t)

	shipped := seedOrder(t, db, uuid.New(), models.StatusShipped, 50, time.Time{})
	updated, err := svc.UpdateStatus(context.Background(), shipped.ID, models.StatusCancelled)
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelled, updated.Status)
}

func TestDelete(t *testing.T) {
	svc, db := newTestService(t)
	order := seedOrder(t, db, uuid.New(), models.StatusShipped, 50, time.Time{})

	require.NoError(t, svc.Delete(context.Background(), order.ID))
	require.ErrorIs(t, svc.Delete(context.Background(), order.ID), ErrNotFound)
}

func TestCancelByCustomer(t *testing.T) {
	svc, db := newTestService(t)
	owner := uuid.New()

	pending := seedOrder(t, db, owner, models.StatusPending, 50, time.Time{})
	cancelled, err := svc.CancelByCustomer(context.Background(), owner, pending.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelledByCustomer, cancelled.Status)

	// only while still pending
	preparing := seedOrder(t, db, owner, models.StatusPreparing, 50, time.Time{})
	_, err = svc.CancelByCustomer(context.Background(), owner, preparing.ID)
	require.ErrorIs(t, err, ErrNotCancellable)

	// someone else's order reads as absent
	other := seedOrder(t, db, uuid.New(), models.StatusPending, 50, time.Time{})
	_, err = svc.CancelByCustomer(context.Background(), owner, other.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteByCustomer(t *testing.T) {
	svc, db := newTestService(t)
	owner := uuid.New()

	active := seedOrder(t, db, owner, models.StatusShipped, 50, time.Time{})
	require.ErrorIs(t, svc.DeleteByCustomer(context.Background(), owner, active.ID), ErrNotTerminal)

	delivered := seedOrder(t, db, owner, models.StatusDelivered, 50, time.Time{})
	require.NoError(t, svc.DeleteByCustomer(context.Background(), owner, delivered.ID))

	cancelled := seedOrder(t, db, owner, models.StatusCancelledByCustomer, 50, time.Time{})
	require.NoError(t, svc.DeleteByCustomer(context.Background(), owner, cancelled.ID))

	foreign := seedOrder(t, db, uuid.New(), models.StatusDelivered, 50, time.Time{})
	require.ErrorIs(t, svc.DeleteByCustomer(context.Background(), owner, foreign.ID), ErrNotFound)
}

func TestListByUser(t *testing.T) {
	svc, db := newTestService(t)
	owner := uuid.New()

	seedOrder(t, db, owner, models.StatusPending, 50, time.Time{})
	seedOrder(t, db, owner, models.StatusDelivered, 30, time.Time{})
	seedOrder(t, db, uuid.New(), models.StatusPending, 10, time.Time{})

	mine, err := svc.ListByUser(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, o := range mine {
		require.Equal(t, owner, o.UserID)
	}
}

func TestParseStatsWindow(t *testing.T) {
	w, err := ParseStatsWindow("")
	require.NoError(t, err)
	require.Equal(t, WindowAll, w)

	w, err = ParseStatsWindow("today")
	require.NoError(t, err)
	require.Equal(t, WindowToday, w)

	_, err = ParseStatsWindow("week")
	require.Error(t, err)
}

func TestStats(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)

	seedOrder(t, db, uuid.New(), models.StatusPending, 50, now.Add(-2*time.Hour))
	seedOrder(t, db, uuid.New(), models.StatusPreparing, 30, now.Add(-1*time.Hour))
	seedOrder(t, db, uuid.New(), models.StatusDelivered, 20, now.AddDate(0, 0, -10))
	seedOrder(t, db, uuid.New(), models.StatusCancelled, 999, now.AddDate(0, 0, -10))
	seedOrder(t, db, uuid.New(), models.StatusShipped, 40, now.AddDate(0, -2, 0))

	all, err := svc.Stats(context.Background(), WindowAll, now)
	require.NoError(t, err)
	require.Equal(t, 5, all.Total)
	require.Equal(t, 1, all.Pending)
	require.Equal(t, 1, all.Delivered)
	// preparing + delivered + shipped, cancelled and pending excluded
	require.True(t, all.Revenue.Equal(decimal.NewFromInt(90)), all.Revenue.String())

	month, err := svc.Stats(context.Background(), WindowMonth, now)
	require.NoError(t, err)
	require.Equal(t, 4, month.Total)
	require.True(t, month.Revenue.Equal(decimal.NewFromInt(50)), month.Revenue.String())

	today, err := svc.Stats(context.Background(), WindowToday, now)
	require.NoError(t, err)
	require.Equal(t, 2, today.Total)
	require.Equal(t, 1, today.Pending)
	require.True(t, today.Revenue.Equal(decimal.NewFromInt(30)), today.Revenue.String())
}
