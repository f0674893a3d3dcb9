package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vvany/boutique/internal/logging"
	"github.com/vvany/boutique/internal/models"
	"github.com/vvany/boutique/internal/mykafka"
	"github.com/vvany/boutique/internal/util"
	"github.com/vvany/boutique/internal/ws"
)

type ProductHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	Hub      *ws.Hub
}

type CreateProductRequest struct {
	Name     string             `json:"name"`
	Price    decimal.Decimal    `json:"price"`
	Category string             `json:"category"`
	Stock    int                `json:"stock"`
	ImageURL string             `json:"image_url"`
	Variants models.VariantList `json:"variants"`
}

type PatchProductRequest struct {
	Name     *string             `json:"name"`
	Price    *decimal.Decimal    `json:"price"`
	Category *string             `json:"category"`
	Stock    *int                `json:"stock"`
	ImageURL *string             `json:"image_url"`
	Variants *models.VariantList `json:"variants"`
}

func (h *ProductHandler) publish(c echo.Context, key string, event map[string]any) {
	if h.Producer != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := h.Producer.PublishEvent(ctx, mykafka.TopicProductEvents, key, event); err != nil {
			logging.FromContext(c.Request().Context()).Error("kafka_publish_failed", "topic", mykafka.TopicProductEvents, "error", err)
		}
	}
	if h.Hub != nil {
		evType, _ := event["ws_type"].(string)
		if evType != "" {
			h.Hub.Broadcast(ws.Event{Table: "products", Type: evType, ID: key})
		}
	}
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		l.Warn("get_product_error", "status", 400, "reason", "invalid id")
		return err
	}

	var product models.Product
	if err := h.DB.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		l.Warn("get_product_error", "status", 404, "reason", "product not found", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	return c.JSON(http.StatusOK, product)
}

// GetProducts is the catalog browse: category filter with the Tout sentinel,
// case-insensitive substring match on name, newest first.
func (h *ProductHandler) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	category := c.QueryParam("category")
	if category == "" {
		category = models.CategoryAll
	}
	if category != models.CategoryAll && !models.ValidCategory(category) {
		l.Warn("get_products_error", "status", 400, "reason", "unknown category")
		return echo.NewHTTPError(http.StatusBadRequest, "unknown category")
	}
	q := c.QueryParam("q")

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	query := h.DB.WithContext(ctx).Model(&models.Product{})
	if category != models.CategoryAll {
		query = query.Where("category = ?", category)
	}
	if q != "" {
		query = query.Where("lower(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		l.Error("get_products_error", "status", 500, "reason", "cannot count products", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot count products")
	}

	var items []models.Product
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		l.Error("get_products_error", "status", 500, "reason", "cannot list products", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list products")
	}

	l.Info("get_products_success", "total", total)
	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func validateProductFields(name string, price decimal.Decimal, category string, stock int, variants models.VariantList) error {
	if strings.TrimSpace(name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name required")
	}
	if price.IsNegative() {
		return echo.NewHTTPError(http.StatusBadRequest, "price cannot be negative")
	}
	if !models.ValidCategory(category) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown category")
	}
	if stock < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "stock cannot be negative")
	}
	if err := variants.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create_product")

	var req CreateProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("product_create_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := validateProductFields(req.Name, req.Price, req.Category, req.Stock, req.Variants); err != nil {
		l.Warn("product_create_error", "status", 400, "reason", "validation failed", "error", err)
		return err
	}

	prod := models.Product{
		Name:     req.Name,
		Price:    req.Price,
		Category: req.Category,
		Stock:    req.Stock,
		ImageURL: req.ImageURL,
		Variants: req.Variants,
	}
	if err := h.DB.WithContext(ctx).Create(&prod).Error; err != nil {
		l.Error("product_create_error", "status", 500, "reason", "cannot add product to db", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot add product to db")
	}

	h.publish(c, prod.ID.String(), map[string]any{
		"type":      "product_created",
		"productID": prod.ID.String(),
		"name":      prod.Name,
		"ws_type":   ws.EventInsert,
	})
	l.Info("create_product_success", "productID", prod.ID.String())
	return c.JSON(http.StatusCreated, prod)
}

// PatchProduct applies partial edits. A nil image_url keeps the stored
// image reference, matching the editor's "no new upload" path.
func (h *ProductHandler) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.patch_product")

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		l.Warn("product_patch_error", "status", 400, "reason", "invalid id")
		return err
	}

	var req PatchProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("product_patch_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var prod models.Product
	if err := h.DB.WithContext(ctx).First(&prod, "id = ?", id).Error; err != nil {
		l.Warn("product_patch_error", "status", 404, "reason", "product not found", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	if req.Name != nil {
		prod.Name = *req.Name
	}
	if req.Price != nil {
		prod.Price = *req.Price
	}
	if req.Category != nil {
		prod.Category = *req.Category
	}
	if req.Stock != nil {
		prod.Stock = *req.Stock
	}
	if req.ImageURL != nil {
		prod.ImageURL = *req.ImageURL
	}
	if req.Variants != nil {
		prod.Variants = *req.Variants
	}
	if err := validateProductFields(prod.Name, prod.Price, prod.Category, prod.Stock, prod.Variants); err != nil {
		l.Warn("product_patch_error", "status", 400, "reason", "validation failed", "error", err)
		return err
	}

	if err := h.DB.WithContext(ctx).Save(&prod).Error; err != nil {
		l.Error("product_patch_error", "status", 500, "reason", "cannot save product", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot save product")
	}

	h.publish(c, prod.ID.String(), map[string]any{
		"type":      "product_updated",
		"productID": prod.ID.String(),
		"name":      prod.Name,
		"ws_type":   ws.EventUpdate,
	})
	l.Info("patch_product_success", "productID", prod.ID.String())
	return c.JSON(http.StatusOK, prod)
}

// DeleteProduct removes the row outright. Historical order snapshots keep
// their own copies, so nothing cascades.
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete_product")

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		l.Warn("product_delete_error", "status", 400, "reason", "invalid id")
		return err
	}

	res := h.DB.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		l.Error("product_delete_error", "status", 500, "reason", "cannot delete product", "error", res.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete product")
	}
	if res.RowsAffected == 0 {
		l.Warn("product_delete_error", "status", 404, "reason", "product not found")
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	h.publish(c, id.String(), map[string]any{
		"type":      "product_deleted",
		"productID": id.String(),
		"ws_type":   ws.EventDelete,
	})
	l.Info("delete_product_success", "productID", id.String())
	return c.NoContent(http.StatusNoContent)
}
