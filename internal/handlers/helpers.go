package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// CurrentUserID reads the identity the auth middleware stored on the
// context. Routes reached without the middleware get a 401, never a write.
func CurrentUserID(c echo.Context) (uuid.UUID, error) {
	s, ok := c.Get("userID").(string)
	if !ok || s == "" {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}
	userID, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}
	return userID, nil
}

func CurrentEmail(c echo.Context) string {
	email, _ := c.Get("email").(string)
	return email
}

func parseUUIDString(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

func parseUUIDParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
