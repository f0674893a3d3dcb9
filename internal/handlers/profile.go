package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vvany/boutique/internal/logging"
	"github.com/vvany/boutique/internal/models"
	"github.com/vvany/boutique/internal/service/orders"
)

type ProfileHandler struct {
	DB     *gorm.DB
	Orders *orders.Service
}

func (h *ProfileHandler) GetProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile.get")

	userID, err := CurrentUserID(c)
	if err != nil {
		return err
	}

	var profile models.Profile
	err = h.DB.WithContext(ctx).First(&profile, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// not saved yet, hand back the empty form
		return c.JSON(http.StatusOK, models.Profile{ID: userID, Role: models.RoleClient})
	}
	if err != nil {
		l.Error("get_profile_error", "status", 500, "reason", "db error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, profile)
}

// SaveProfile upserts the contact fields. The role column is deliberately
// outside the assignment list: it changes out-of-band only.
func (h *ProfileHandler) SaveProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile.save")

	userID, err := CurrentUserID(c)
	if err != nil {
		return err
	}

	var req struct {
		FullName string `json:"full_name"`
		Address  string `json:"address"`
		Phone    string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("save_profile_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	profile := models.Profile{
		ID:       userID,
		FullName: req.FullName,
		Address:  req.Address,
		Phone:    req.Phone,
	}
	err = h.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "address", "phone", "updated_at"}),
	}).Create(&profile).Error
	if err != nil {
		l.Error("save_profile_error", "status", 500, "reason", "cannot save profile", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot save profile")
	}

	var saved models.Profile
	if err := h.DB.WithContext(ctx).First(&saved, "id = ?", userID).Error; err != nil {
		l.Error("save_profile_error", "status", 500, "reason", "cannot reload profile", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("save_profile_success", "userID", userID.String())
	return c.JSON(http.StatusOK, saved)
}

func (h *ProfileHandler) MyOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile.my_orders")

	userID, err := CurrentUserID(c)
	if err != nil {
		return err
	}

	list, err := h.Orders.ListByUser(ctx, userID)
	if err != nil {
		l.Error("my_orders_error", "status", 500, "reason", "cannot list orders", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list orders")
	}
	return c.JSON(http.StatusOK, list)
}

// CancelMyOrder backs out of an order that is still pending.
func (h *ProfileHandler) CancelMyOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile.cancel_order")

	userID, err := CurrentUserID(c)
	if err != nil {
		return err
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		l.Warn("cancel_order_error", "status", 400, "reason", "invalid id")
		return err
	}

	order, err := h.Orders.CancelByCustomer(ctx, userID, id)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		l.Warn("cancel_order_error", "status", 404, "reason", "order not found")
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	case errors.Is(err, orders.ErrNotCancellable):
		l.Warn("cancel_order_error", "status", 409, "reason", "not cancellable", "error", err)
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		l.Error("cancel_order_error", "status", 500, "reason", "internal error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("cancel_order_success", "orderID", order.ID.String())
	return c.JSON(http.StatusOK, order)
}

// DeleteMyOrder removes an order from the caller's history, only once it is
// terminal (Livré or a cancelled form).
func (h *ProfileHandler) DeleteMyOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile.delete_order")

	userID, err := CurrentUserID(c)
	if err != nil {
		return err
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		l.Warn("delete_order_error", "status", 400, "reason", "invalid id")
		return err
	}

	err = h.Orders.DeleteByCustomer(ctx, userID, id)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		l.Warn("delete_order_error", "status", 404, "reason", "order not found")
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	case errors.Is(err, orders.ErrNotTerminal):
		l.Warn("delete_order_error", "status", 409, "reason", "order not terminal", "error", err)
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		l.Error("delete_order_error", "status", 500, "reason", "internal error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("delete_order_success", "orderID", id.String())
	return c.NoContent(http.StatusNoContent)
}
