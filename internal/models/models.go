package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CategoryAll is the filter sentinel matching every category. It is never a
// valid category for a stored product.
const CategoryAll = "Tout"

var Categories = []string{"Perruques", "Robes", "Chaussures", "Chemises", "Autres produits"}

func ValidCategory(c string) bool {
	for _, cat := range Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// VariantGroup is one axis of product customization, e.g. Taille or Couleur,
// with its selectable options.
type VariantGroup struct {
	Type    string   `json:"type"`
	Options []string `json:"options"`
}

func (g VariantGroup) Validate() error {
	if strings.TrimSpace(g.Type) == "" {
		return fmt.Errorf("variant group type is empty")
	}
	if len(g.Options) == 0 {
		return fmt.Errorf("variant group %q has no options", g.Type)
	}
	seen := make(map[string]bool, len(g.Options))
	for _, opt := range g.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("variant group %q has an empty option", g.Type)
		}
		if seen[opt] {
			return fmt.Errorf("variant group %q repeats option %q", g.Type, opt)
		}
		seen[opt] = true
	}
	return nil
}

type VariantList []VariantGroup

func (v VariantList) Validate() error {
	seen := make(map[string]bool, len(v))
	for _, g := range v {
		if err := g.Validate(); err != nil {
			return err
		}
		if seen[g.Type] {
			return fmt.Errorf("duplicate variant group %q", g.Type)
		}
		seen[g.Type] = true
	}
	return nil
}

func (v VariantList) Value() (driver.Value, error) {
	if len(v) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (v *VariantList) Scan(value interface{}) error {
	switch src := value.(type) {
	case nil:
		*v = nil
		return nil
	case []byte:
		return json.Unmarshal(src, v)
	case string:
		return json.Unmarshal([]byte(src), v)
	default:
		return fmt.Errorf("cannot scan %T into VariantList", value)
	}
}

type Product struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"                json:"id"`
	Name      string          `gorm:"not null"                            json:"name"`
	Price     decimal.Decimal `gorm:"type:numeric;not null"               json:"price"`
	Category  string          `gorm:"not null"                            json:"category"`
	Stock     int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	ImageURL  string          `json:"image_url"`
	Variants  VariantList     `gorm:"type:jsonb"                          json:"variants"`
	CreatedAt time.Time       `json:"created_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type OrderStatus string

const (
	StatusPending             OrderStatus = "En attente"
	StatusPreparing           OrderStatus = "En préparation"
	StatusShipped             OrderStatus = "Expédié"
	StatusDelivered           OrderStatus = "Livré"
	StatusCancelled           OrderStatus = "Annulé"
	StatusCancelledByCustomer OrderStatus = "Annulé par le client"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case StatusPending, StatusPreparing, StatusShipped, StatusDelivered,
		StatusCancelled, StatusCancelledByCustomer:
		return OrderStatus(s), nil
	default:
		return "", fmt.Errorf("unknown order status %q", s)
	}
}

// Terminal statuses admit no further transitions.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusCancelledByCustomer:
		return true
	}
	return false
}

// CanTransitionTo enforces the single forward progression
// En attente → En préparation → Expédié → Livré, with Annulé reachable from
// any non-terminal state and Annulé par le client only while pending.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() || next == s {
		return false
	}
	switch next {
	case StatusCancelled:
		return true
	case StatusCancelledByCustomer:
		return s == StatusPending
	case StatusPreparing:
		return s == StatusPending
	case StatusShipped:
		return s == StatusPreparing
	case StatusDelivered:
		return s == StatusShipped
	}
	return false
}

// CountsAsRevenue reports whether an order in this status is included in the
// revenue aggregate. Pending and cancelled orders are excluded.
func (s OrderStatus) CountsAsRevenue() bool {
	switch s {
	case StatusPreparing, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

// OrderItem is the frozen per-line snapshot written into an order at
// checkout. Later catalog edits never alter it. Each item represents exactly
// one unit of the product.
type OrderItem struct {
	ProductID       uuid.UUID         `json:"product_id"`
	Key             string            `json:"key"`
	Name            string            `json:"name"`
	Category        string            `json:"category"`
	Price           decimal.Decimal   `json:"price"`
	ImageURL        string            `json:"image_url"`
	SelectedOptions map[string]string `json:"selected_options,omitempty"`
}

type OrderItemList []OrderItem

func (l OrderItemList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *OrderItemList) Scan(value interface{}) error {
	switch src := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(src, l)
	case string:
		return json.Unmarshal([]byte(src), l)
	default:
		return fmt.Errorf("cannot scan %T into OrderItemList", value)
	}
}

type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"     json:"id"`
	UserID          uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	CustomerAddress string          `json:"customer_address"`
	CustomerEmail   string          `json:"customer_email"`
	Items           OrderItemList   `gorm:"type:jsonb;not null"      json:"items"`
	TotalPrice      decimal.Decimal `gorm:"type:numeric;not null"    json:"total_price"`
	Status          OrderStatus     `gorm:"not null"                 json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// Profile holds the contact and delivery fields for one user. Its ID is the
// user's ID; the role column is never settable through the profile API.
type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"    json:"id"`
	FullName  string    `json:"full_name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Role      string    `gorm:"not null;default:client" json:"role"`
	UpdatedAt time.Time `json:"updated_at"`
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"    json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"    json:"email"`
	PasswordHash string    `gorm:"not null"                json:"-"`
	Role         string    `gorm:"not null;default:client" json:"role"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"               json:"id"`
	Token     string    `gorm:"uniqueIndex;not null"     json:"token"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	ExpiresAt int64     `gorm:"not null"                 json:"expires_at"`
	Revoked   bool      `gorm:"default:false"            json:"revoked"`
}
