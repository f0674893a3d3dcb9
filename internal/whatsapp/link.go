package whatsapp

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/vvany/boutique/internal/models"
)

// OrderLink builds the wa.me deep link offered after checkout, pre-filled
// with the order reference and total. Opening it is a manual notify action,
// not a delivery guarantee.
func OrderLink(phone string, order *models.Order) string {
	msg := fmt.Sprintf(
		"Bonjour V-VANY, je confirme ma commande %s d'un montant de %s $.",
		ShortRef(order), order.TotalPrice.String(),
	)
	return "https://wa.me/" + digitsOnly(phone) + "?text=" + url.QueryEscape(msg)
}

// ShortRef is the 8-character order reference shown to customers.
func ShortRef(order *models.Order) string {
	id := order.ID.String()
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}

func digitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
