package cart

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vvany/boutique/internal/models"
)

var (
	ErrOutOfStock       = errors.New("product out of stock")
	ErrVariantSelection = errors.New("variant selection incomplete")
	ErrIndexOutOfRange  = errors.New("cart index out of range")
)

// BuildLineItem snapshots a product plus the chosen variant options into a
// cart line. It refuses products with no stock and refuses to build until
// every variant group on the product has exactly one valid option chosen.
func BuildLineItem(p models.Product, choices map[string]string) (models.OrderItem, error) {
	if p.Stock < 1 {
		return models.OrderItem{}, fmt.Errorf("%w: %s", ErrOutOfStock, p.Name)
	}

	var selected map[string]string
	keyParts := []string{p.ID.String()}
	for _, g := range p.Variants {
		opt, ok := choices[g.Type]
		if !ok || opt == "" {
			return models.OrderItem{}, fmt.Errorf("%w: %s", ErrVariantSelection, g.Type)
		}
		if !contains(g.Options, opt) {
			return models.OrderItem{}, fmt.Errorf("%w: %q is not an option of %s", ErrVariantSelection, opt, g.Type)
		}
		if selected == nil {
			selected = make(map[string]string, len(p.Variants))
		}
		selected[g.Type] = opt
		keyParts = append(keyParts, opt)
	}
	for t := range choices {
		if !hasGroup(p.Variants, t) {
			return models.OrderItem{}, fmt.Errorf("%w: product has no variant group %q", ErrVariantSelection, t)
		}
	}

	return models.OrderItem{
		ProductID:       p.ID,
		Key:             strings.Join(keyParts, "-"),
		Name:            p.Name,
		Category:        p.Category,
		Price:           p.Price,
		ImageURL:        p.ImageURL,
		SelectedOptions: selected,
	}, nil
}

// Store holds each user's cart: an ordered line-item list living only in
// memory until checkout copies it into an order. Duplicate product/option
// combinations are allowed and each occupies its own slot.
type Store struct {
	mu    sync.RWMutex
	items map[uuid.UUID][]models.OrderItem
}

func NewStore() *Store {
	return &Store{items: make(map[uuid.UUID][]models.OrderItem)}
}

func (s *Store) Add(userID uuid.UUID, item models.OrderItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[userID] = append(s.items[userID], item)
}

// Items returns a copy; callers may not mutate the stored cart through it.
func (s *Store) Items(userID uuid.UUID) []models.OrderItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.items[userID]
	out := make([]models.OrderItem, len(items))
	copy(out, items)
	return out
}

func (s *Store) Len(userID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items[userID])
}

func (s *Store) RemoveAt(userID uuid.UUID, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items[userID]
	if i < 0 || i >= len(items) {
		return ErrIndexOutOfRange
	}
	s.items[userID] = append(items[:i], items[i+1:]...)
	return nil
}

func (s *Store) Clear(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, userID)
}

// Total sums the prices captured at add-time. Later catalog price edits do
// not move it.
func (s *Store) Total(userID uuid.UUID) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, item := range s.items[userID] {
		total = total.Add(item.Price)
	}
	return total
}

func contains(opts []string, v string) bool {
	for _, o := range opts {
		if o == v {
			return true
		}
	}
	return false
}

func hasGroup(groups models.VariantList, t string) bool {
	for _, g := range groups {
		if g.Type == t {
			return true
		}
	}
	return false
}
