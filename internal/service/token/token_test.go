package token

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vvany/boutique/internal/config"
	"github.com/vvany/boutique/internal/models"
)

func newTestTokens(t *testing.T) *Service {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	return &Service{
		DB:            db,
		JWTSecret:     []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	}
}

func newContext(t *testing.T, cookies ...*http.Cookie) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func signExpiredAccess(t *testing.T, svc *Service, userID uuid.UUID, role, email string) string {
	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"role":  role,
		"email": email,
		"exp":   time.Now().Add(-time.Minute).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.JWTSecret)
	require.NoError(t, err)
	return raw
}

func TestAutoRefreshWithValidAccessToken(t *testing.T) {
	svc := newTestTokens(t)
	userID := uuid.New()

	access, err := svc.SignAccessToken(userID, models.RoleClient, "awa@vvany.cd")
	require.NoError(t, err)

	c, _ := newContext(t, &http.Cookie{Name: AccessCookie, Value: access})
	var seenID, seenRole, seenEmail string
	err = svc.AutoRefresh(func(c echo.Context) error {
		seenID, _ = c.Get("userID").(string)
		seenRole, _ = c.Get("role").(string)
		seenEmail, _ = c.Get("email").(string)
		return c.NoContent(http.StatusOK)
	})(c)
	require.NoError(t, err)
	require.Equal(t, userID.String(), seenID)
	require.Equal(t, models.RoleClient, seenRole)
	require.Equal(t, "awa@vvany.cd", seenEmail)
}

func TestAutoRefreshRotatesExpiredAccess(t *testing.T) {
	svc := newTestTokens(t)
	userID := uuid.New()

	refresh, err := svc.SignRefreshToken(userID, models.RoleClient, "awa@vvany.cd")
	require.NoError(t, err)
	require.NoError(t, svc.SaveRefreshToken(refresh, userID))

	expired := signExpiredAccess(t, svc, userID, models.RoleClient, "awa@vvany.cd")
	c, rec := newContext(t,
		&http.Cookie{Name: AccessCookie, Value: expired},
		&http.Cookie{Name: RefreshCookie, Value: refresh},
	)

	err = svc.AutoRefresh(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})(c)
	require.NoError(t, err)

	// fresh pair set on the response
	cookies := rec.Result().Cookies()
	names := make(map[string]bool, len(cookies))
	for _, ck := range cookies {
		names[ck.Name] = true
	}
	require.True(t, names[AccessCookie])
	require.True(t, names[RefreshCookie])
}

func TestAutoRefreshRejectsMissingCookies(t *testing.T) {
	svc := newTestTokens(t)

	c, _ := newContext(t)
	err := svc.AutoRefresh(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})(c)

	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestValidateRefreshRejectsRevokedToken(t *testing.T) {
	svc := newTestTokens(t)
	userID := uuid.New()

	refresh, err := svc.SignRefreshToken(userID, models.RoleClient, "awa@vvany.cd")
	require.NoError(t, err)
	require.NoError(t, svc.SaveRefreshToken(refresh, userID))

	require.NoError(t, svc.DB.Model(&models.RefreshToken{}).
		Where("token = ?", refresh).
		Update("revoked", true).Error)

	_, err = svc.ValidateRefresh(refresh)
	require.Error(t, err)
}

func TestValidateRefreshRejectsAccessToken(t *testing.T) {
	svc := newTestTokens(t)
	userID := uuid.New()

	access, err := svc.SignAccessToken(userID, models.RoleClient, "awa@vvany.cd")
	require.NoError(t, err)

	_, err = svc.ValidateRefresh(access)
	require.Error(t, err)
}

func TestAdminOnly(t *testing.T) {
	svc := newTestTokens(t)

	adminAccess, err := svc.SignAccessToken(uuid.New(), models.RoleAdmin, "admin@vvany.cd")
	require.NoError(t, err)
	clientAccess, err := svc.SignAccessToken(uuid.New(), models.RoleClient, "awa@vvany.cd")
	require.NoError(t, err)

	handler := svc.AdminOnly(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	c, rec := newContext(t, &http.Cookie{Name: AccessCookie, Value: adminAccess})
	require.NoError(t, handler(c))
	require.Equal(t, http.StatusOK, rec.Code)

	c, _ = newContext(t, &http.Cookie{Name: AccessCookie, Value: clientAccess})
	err = handler(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusForbidden, he.Code)
}
