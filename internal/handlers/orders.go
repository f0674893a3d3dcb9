package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vvany/boutique/internal/logging"
	"github.com/vvany/boutique/internal/models"
	"github.com/vvany/boutique/internal/service/orders"
	"github.com/vvany/boutique/internal/ws"
)

// OrderHandler is the back-office console: full order list, status
// transitions, unconditional deletion, windowed statistics and the
// realtime change feed.
type OrderHandler struct {
	Svc *orders.Service
	Hub *ws.Hub
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.list")

	list, err := h.Svc.List(ctx)
	if err != nil {
		l.Error("list_orders_error", "status", 500, "reason", "cannot list orders", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list orders")
	}
	l.Info("list_orders_success", "count", len(list))
	return c.JSON(http.StatusOK, list)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.update_status")

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		l.Warn("update_status_error", "status", 400, "reason", "invalid id")
		return err
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("update_status_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	next, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		l.Warn("update_status_error", "status", 400, "reason", "unknown status", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	order, err := h.Svc.UpdateStatus(ctx, id, next)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		l.Warn("update_status_error", "status", 404, "reason", "order not found")
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	case errors.Is(err, orders.ErrInvalidTransition):
		l.Warn("update_status_error", "status", 409, "reason", "invalid transition", "error", err)
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		l.Error("update_status_error", "status", 500, "reason", "internal error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("update_status_success", "orderID", order.ID.String(), "to", string(order.Status))
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) DeleteOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.delete")

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		l.Warn("delete_order_error", "status", 400, "reason", "invalid id")
		return err
	}

	err = h.Svc.Delete(ctx, id)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		l.Warn("delete_order_error", "status", 404, "reason", "order not found")
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	case err != nil:
		l.Error("delete_order_error", "status", 500, "reason", "internal error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("delete_order_success", "orderID", id.String())
	return c.NoContent(http.StatusNoContent)
}

func (h *OrderHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.stats")

	window, err := orders.ParseStatsWindow(c.QueryParam("window"))
	if err != nil {
		l.Warn("stats_error", "status", 400, "reason", "unknown window", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	stats, err := h.Svc.Stats(ctx, window, time.Now())
	if err != nil {
		l.Error("stats_error", "status", 500, "reason", "cannot compute stats", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot compute stats")
	}
	return c.JSON(http.StatusOK, stats)
}

// Feed upgrades to a websocket on which order change events are pushed.
// The console reacts to each event by re-fetching the list.
func (h *OrderHandler) Feed(c echo.Context) error {
	return h.Hub.Handle(c)
}
