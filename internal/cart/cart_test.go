package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vvany/boutique/internal/models"
)

func testProduct() models.Product {
	return models.Product{
		ID:       uuid.New(),
		Name:     "Robe A",
		Price:    decimal.NewFromInt(50),
		Category: "Robes",
		Stock:    2,
		ImageURL: "http://localhost:8080/media/robe-a.jpg",
		Variants: models.VariantList{
			{Type: "Taille", Options: []string{"S", "M", "L"}},
			{Type: "Couleur", Options: []string{"Noir", "Rouge"}},
		},
	}
}

func TestBuildLineItem(t *testing.T) {
	p := testProduct()

	item, err := BuildLineItem(p, map[string]string{"Taille": "M", "Couleur": "Noir"})
	require.NoError(t, err)
	require.Equal(t, p.ID, item.ProductID)
	require.Equal(t, p.ID.String()+"-M-Noir", item.Key)
	require.Equal(t, "Robe A", item.Name)
	require.True(t, item.Price.Equal(decimal.NewFromInt(50)))
	require.Equal(t, map[string]string{"Taille": "M", "Couleur": "Noir"}, item.SelectedOptions)
}

func TestBuildLineItemNoVariants(t *testing.T) {
	p := testProduct()
	p.Variants = nil

	item, err := BuildLineItem(p, nil)
	require.NoError(t, err)
	require.Equal(t, p.ID.String(), item.Key)
	require.Nil(t, item.SelectedOptions)
}

func TestBuildLineItemOutOfStock(t *testing.T) {
	p := testProduct()
	p.Stock = 0

	_, err := BuildLineItem(p, map[string]string{"Taille": "M", "Couleur": "Noir"})
	require.ErrorIs(t, err, ErrOutOfStock)
}

func TestBuildLineItemIncompleteSelection(t *testing.T) {
	p := testProduct()

	_, err := BuildLineItem(p, map[string]string{"Taille": "M"})
	require.ErrorIs(t, err, ErrVariantSelection)

	_, err = BuildLineItem(p, nil)
	require.ErrorIs(t, err, ErrVariantSelection)

	_, err = BuildLineItem(p, map[string]string{"Taille": "XXL", "Couleur": "Noir"})
	require.ErrorIs(t, err, ErrVariantSelection)

	_, err = BuildLineItem(p, map[string]string{"Taille": "M", "Couleur": "Noir", "Pointure": "42"})
	require.ErrorIs(t, err, ErrVariantSelection)
}

func TestStoreAddAndDuplicates(t *testing.T) {
	s := NewStore()
	user := uuid.New()
	p := testProduct()

	item, err := BuildLineItem(p, map[string]string{"Taille": "M", "Couleur": "Noir"})
	require.NoError(t, err)

	s.Add(user, item)
	s.Add(user, item)
	require.Equal(t, 2, s.Len(user))

	items := s.Items(user)
	require.Len(t, items, 2)
	require.Equal(t, items[0].Key, items[1].Key)
	require.True(t, s.Total(user).Equal(decimal.NewFromInt(100)))
}

func TestStoreRemoveAt(t *testing.T) {
	s := NewStore()
	user := uuid.New()
	p := testProduct()

	first, err := BuildLineItem(p, map[string]string{"Taille": "S", "Couleur": "Noir"})
	require.NoError(t, err)
	second, err := BuildLineItem(p, map[string]string{"Taille": "M", "Couleur": "Rouge"})
	require.NoError(t, err)
	s.Add(user, first)
	s.Add(user, second)

	require.NoError(t, s.RemoveAt(user, 0))
	items := s.Items(user)
	require.Len(t, items, 1)
	require.Equal(t, second.Key, items[0].Key)

	require.ErrorIs(t, s.RemoveAt(user, 5), ErrIndexOutOfRange)
	require.ErrorIs(t, s.RemoveAt(user, -1), ErrIndexOutOfRange)
}

func TestStoreClearAndIsolation(t *testing.T) {
	s := NewStore()
	alice, bob := uuid.New(), uuid.New()
	p := testProduct()

	item, err := BuildLineItem(p, map[string]string{"Taille": "M", "Couleur": "Noir"})
	require.NoError(t, err)
	s.Add(alice, item)
	s.Add(bob, item)

	s.Clear(alice)
	require.Equal(t, 0, s.Len(alice))
	require.Equal(t, 1, s.Len(bob))
	require.True(t, s.Total(alice).IsZero())
}

func TestStoreTotalKeepsCapturedPrice(t *testing.T) {
	s := NewStore()
	user := uuid.New()
	p := testProduct()

	item, err := BuildLineItem(p, map[string]string{"Taille": "M", "Couleur": "Noir"})
	require.NoError(t, err)
	s.Add(user, item)

	// a later catalog edit must not move the cart total
	p.Price = decimal.NewFromInt(80)
	require.True(t, s.Total(user).Equal(decimal.NewFromInt(50)))
}

func TestStoreItemsReturnsCopy(t *testing.T) {
	s := NewStore()
	user := uuid.New()
	p := testProduct()

	item, err := BuildLineItem(p, map[string]string{"Taille": "M", "Couleur": "Noir"})
	require.NoError(t, err)
	s.Add(user, item)

	items := s.Items(user)
	items[0].Name = "tampered"
	require.Equal(t, "Robe A", s.Items(user)[0].Name)
}
