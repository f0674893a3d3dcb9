package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vvany/boutique/internal/cart"
	"github.com/vvany/boutique/internal/logging"
	"github.com/vvany/boutique/internal/models"
	"github.com/vvany/boutique/internal/service/checkout"
)

type CartHandler struct {
	DB       *gorm.DB
	Cart     *cart.Store
	Checkout *checkout.Service
}

func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := CurrentUserID(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": h.Cart.Items(userID),
		"total": h.Cart.Total(userID),
	})
}

// AddToCart resolves the product, validates stock and variant choices and
// appends one line item. The price is captured here, not at checkout.
func (h *CartHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_to_cart")

	userID, err := CurrentUserID(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID string            `json:"product_id"`
		Options   map[string]string `json:"options"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	productID, err := parseUUIDString(req.ProductID)
	if err != nil {
		l.Warn("add_to_cart_error", "status", 400, "reason", "invalid product id")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.DB.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("add_to_cart_error", "status", 404, "reason", "product not found")
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		l.Error("add_to_cart_error", "status", 500, "reason", "db error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	item, err := cart.BuildLineItem(product, req.Options)
	switch {
	case errors.Is(err, cart.ErrOutOfStock):
		l.Warn("add_to_cart_error", "status", 409, "reason", "out of stock")
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, cart.ErrVariantSelection):
		l.Warn("add_to_cart_error", "status", 400, "reason", "variant selection", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		l.Error("add_to_cart_error", "status", 500, "reason", "internal error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.Cart.Add(userID, item)
	l.Info("add_to_cart_success", "productID", productID.String(), "key", item.Key)
	return c.JSON(http.StatusOK, echo.Map{
		"item":  item,
		"count": h.Cart.Len(userID),
	})
}

// RemoveFromCart drops one slot by index; identical product/option pairs in
// other slots stay put.
func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	userID, err := CurrentUserID(c)
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid index")
	}
	if err := h.Cart.RemoveAt(userID, index); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	userID, err := CurrentUserID(c)
	if err != nil {
		return err
	}
	h.Cart.Clear(userID)
	return c.NoContent(http.StatusNoContent)
}

// CheckoutCart finalizes the cart into one order. On success the response
// carries the confirmation payload plus the WhatsApp notify link; on any
// failure the cart is untouched so the customer can retry.
func (h *CartHandler) CheckoutCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.checkout")

	userID, err := CurrentUserID(c)
	if err != nil {
		return err
	}

	order, err := h.Checkout.Checkout(ctx, userID, CurrentEmail(c))
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		l.Warn("checkout_error", "status", 400, "reason", "empty cart")
		return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")
	case errors.Is(err, checkout.ErrStockConflict):
		l.Warn("checkout_error", "status", 409, "reason", "stock conflict", "error", err)
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		l.Error("checkout_error", "status", 500, "reason", "internal error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("checkout_success", "orderID", order.ID.String(), "total", order.TotalPrice.String())
	return c.JSON(http.StatusCreated, echo.Map{
		"order":        order,
		"whatsapp_url": h.Checkout.NotifyLink(order),
	})
}
