package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vvany/boutique/internal/cart"
	"github.com/vvany/boutique/internal/logging"
	"github.com/vvany/boutique/internal/models"
	"github.com/vvany/boutique/internal/mykafka"
	"github.com/vvany/boutique/internal/whatsapp"
	"github.com/vvany/boutique/internal/ws"
)

var (
	ErrEmptyCart = errors.New("cart is empty")

	// ErrStockConflict is returned when a line item can no longer be
	// decremented; the whole checkout is rolled back, nothing is written.
	ErrStockConflict = errors.New("stock conflict")
)

// Placeholders written into the order when the customer never filled in a
// profile; the console shows these instead of joining on profiles.
const (
	DefaultCustomerName = "Client"
	DefaultContactField = "N/A"
)

type Service struct {
	DB             *gorm.DB
	Cart           *cart.Store
	Producer       *mykafka.Producer
	Hub            *ws.Hub
	WhatsAppNumber string
}

// Checkout turns the caller's cart into exactly one pending order and
// decrements stock by one unit per line item. Order insert and every
// decrement share a single transaction: a decrement that matches no row
// (stock already exhausted) aborts the whole checkout with
// ErrStockConflict. The cart is cleared only after the transaction commits,
// so a failed attempt can simply be retried.
func (s *Service) Checkout(ctx context.Context, userID uuid.UUID, email string) (*models.Order, error) {
	items := s.Cart.Items(userID)
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	name, address, phone := DefaultCustomerName, DefaultContactField, DefaultContactField
	var profile models.Profile
	err := s.DB.WithContext(ctx).First(&profile, "id = ?", userID).Error
	switch {
	case err == nil:
		if profile.FullName != "" {
			name = profile.FullName
		}
		if profile.Address != "" {
			address = profile.Address
		}
		if profile.Phone != "" {
			phone = profile.Phone
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// first order before any profile save, placeholders stand
	default:
		return nil, err
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price)
	}

	order := &models.Order{
		UserID:          userID,
		CustomerName:    name,
		CustomerPhone:   phone,
		CustomerAddress: address,
		CustomerEmail:   email,
		Items:           items,
		TotalPrice:      total,
		Status:          models.StatusPending,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		for _, item := range items {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock > 0", item.ProductID).
				UpdateColumn("stock", gorm.Expr("stock - 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: %s", ErrStockConflict, item.Name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Cart.Clear(userID)
	s.notify(ctx, order)
	return order, nil
}

// NotifyLink is the manual WhatsApp action offered on the confirmation view.
func (s *Service) NotifyLink(order *models.Order) string {
	return whatsapp.OrderLink(s.WhatsAppNumber, order)
}

func (s *Service) notify(ctx context.Context, order *models.Order) {
	if s.Producer != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		event := map[string]interface{}{
			"type":    "order_created",
			"orderID": order.ID.String(),
			"userID":  order.UserID.String(),
			"total":   order.TotalPrice.String(),
		}
		if err := s.Producer.PublishEvent(pubCtx, mykafka.TopicOrderEvents, order.ID.String(), event); err != nil {
			logging.FromContext(ctx).Error("kafka_publish_failed", "topic", mykafka.TopicOrderEvents, "error", err)
		}
	}
	if s.Hub != nil {
		s.Hub.Broadcast(ws.Event{Table: "orders", Type: ws.EventInsert, ID: order.ID.String()})
	}
}
