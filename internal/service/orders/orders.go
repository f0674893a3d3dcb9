package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vvany/boutique/internal/logging"
	"github.com/vvany/boutique/internal/models"
	"github.com/vvany/boutique/internal/mykafka"
	"github.com/vvany/boutique/internal/ws"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotCancellable    = errors.New("order can no longer be cancelled")
	ErrNotTerminal       = errors.New("order is not in a terminal status")
)

type Service struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	Hub      *ws.Hub
}

func (s *Service) List(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.DB.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// UpdateStatus applies one admin-driven transition. Terminal orders and
// out-of-order jumps are rejected before anything is written.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, next models.OrderStatus) (*models.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, order.Status, next)
	}
	if err := s.DB.WithContext(ctx).Model(order).Update("status", next).Error; err != nil {
		return nil, err
	}
	order.Status = next
	s.notify(ctx, ws.EventUpdate, order.ID, string(next))
	return order, nil
}

// Delete is the admin escape hatch: any status, no questions asked.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).Delete(&models.Order{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.notify(ctx, ws.EventDelete, id, "")
	return nil
}

// CancelByCustomer lets the owner back out of an order that is still
// pending. Anything further along needs the boutique.
func (s *Service) CancelByCustomer(ctx context.Context, userID, id uuid.UUID) (*models.Order, error) {
	order, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(models.StatusCancelledByCustomer) {
		return nil, fmt.Errorf("%w: status is %s", ErrNotCancellable, order.Status)
	}
	if err := s.DB.WithContext(ctx).Model(order).Update("status", models.StatusCancelledByCustomer).Error; err != nil {
		return nil, err
	}
	order.Status = models.StatusCancelledByCustomer
	s.notify(ctx, ws.EventUpdate, order.ID, string(order.Status))
	return order, nil
}

// DeleteByCustomer removes an order from the owner's history, allowed only
// once the order is terminal. This is the server-side rule the original
// only checked in the browser.
func (s *Service) DeleteByCustomer(ctx context.Context, userID, id uuid.UUID) error {
	order, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	if !order.Status.Terminal() {
		return fmt.Errorf("%w: status is %s", ErrNotTerminal, order.Status)
	}
	if err := s.DB.WithContext(ctx).Delete(order).Error; err != nil {
		return err
	}
	s.notify(ctx, ws.EventDelete, id, "")
	return nil
}

func (s *Service) getOwned(ctx context.Context, userID, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).
		First(&order, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

type StatsWindow string

const (
	WindowToday StatsWindow = "today"
	WindowMonth StatsWindow = "month"
	WindowAll   StatsWindow = "all"
)

func ParseStatsWindow(s string) (StatsWindow, error) {
	switch StatsWindow(s) {
	case WindowToday, WindowMonth, WindowAll:
		return StatsWindow(s), nil
	case "":
		return WindowAll, nil
	default:
		return "", fmt.Errorf("unknown stats window %q", s)
	}
}

type Stats struct {
	Total     int             `json:"total"`
	Pending   int             `json:"pending"`
	Delivered int             `json:"delivered"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// Stats reduces the fetched order list in memory, the same aggregation the
// console used to run client-side. Revenue counts preparing, shipped and
// delivered orders only.
func (s *Service) Stats(ctx context.Context, window StatsWindow, now time.Time) (*Stats, error) {
	orders, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var since time.Time
	switch window {
	case WindowToday:
		since = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case WindowMonth:
		since = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}

	stats := &Stats{Revenue: decimal.Zero}
	for _, order := range orders {
		if !since.IsZero() && order.CreatedAt.Before(since) {
			continue
		}
		stats.Total++
		switch {
		case order.Status == models.StatusPending:
			stats.Pending++
		case order.Status == models.StatusDelivered:
			stats.Delivered++
		}
		if order.Status.CountsAsRevenue() {
			stats.Revenue = stats.Revenue.Add(order.TotalPrice)
		}
	}
	return stats, nil
}

func (s *Service) notify(ctx context.Context, eventType string, id uuid.UUID, status string) {
	if s.Producer != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		event := map[string]interface{}{
			"type":    "order_" + eventType,
			"orderID": id.String(),
		}
		if status != "" {
			event["status"] = status
		}
		if err := s.Producer.PublishEvent(pubCtx, mykafka.TopicOrderEvents, id.String(), event); err != nil {
			logging.FromContext(ctx).Error("kafka_publish_failed", "topic", mykafka.TopicOrderEvents, "error", err)
		}
	}
	if s.Hub != nil {
		s.Hub.Broadcast(ws.Event{Table: "orders", Type: eventType, ID: id.String()})
	}
}
