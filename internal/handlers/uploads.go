package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vvany/boutique/internal/logging"
	"github.com/vvany/boutique/internal/storage"
)

type UploadHandler struct {
	Store storage.ImageStore
}

// Upload receives one multipart image, stores it under a time-prefixed key
// and returns the public URL to use as a product's image reference.
func (h *UploadHandler) Upload(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "uploads.upload")

	fh, err := c.FormFile("file")
	if err != nil {
		l.Warn("upload_error", "status", 400, "reason", "missing file", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "file required")
	}

	src, err := fh.Open()
	if err != nil {
		l.Error("upload_error", "status", 500, "reason", "cannot open upload", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot read upload")
	}
	defer src.Close()

	url, err := h.Store.Save(fh.Filename, src)
	if err != nil {
		l.Error("upload_error", "status", 500, "reason", "cannot store upload", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot store upload")
	}

	l.Info("upload_success", "url", url)
	return c.JSON(http.StatusCreated, echo.Map{"url": url})
}
