package token

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vvany/boutique/internal/models"
)

const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour

	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

type Service struct {
	DB            *gorm.DB
	JWTSecret     []byte
	RefreshSecret []byte
}

func CreateCookie(name, value, path string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (t *Service) SignAccessToken(userID uuid.UUID, role, email string) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"role":  role,
		"email": email,
		"exp":   time.Now().Add(AccessTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.JWTSecret)
}

func (t *Service) SignRefreshToken(userID uuid.UUID, role, email string) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"role":  role,
		"email": email,
		"exp":   time.Now().Add(RefreshTTL).Unix(),
		"typ":   "refresh",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.RefreshSecret)
}

func (t *Service) SaveRefreshToken(raw string, userID uuid.UUID) error {
	stored := models.RefreshToken{
		Token:     raw,
		UserID:    userID,
		ExpiresAt: time.Now().Add(RefreshTTL).Unix(),
		Revoked:   false,
	}
	if err := t.DB.Create(&stored).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (t *Service) ValidateRefresh(raw string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(raw, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.RefreshSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("cannot parse claims")
	}
	if typ, ok := claims["typ"]; !ok || typ != "refresh" {
		return nil, errors.New("not a refresh token")
	}

	var stored models.RefreshToken
	if err := t.DB.Where("token = ?", raw).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("refresh token not found")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if stored.Revoked {
		return nil, errors.New("refresh token revoked")
	}
	if time.Now().Unix() > stored.ExpiresAt {
		return nil, errors.New("refresh token expired")
	}
	return claims, nil
}

// Rotate exchanges a valid refresh token for a fresh access/refresh pair.
// The old token stays usable until it expires or is revoked on logout.
func (t *Service) Rotate(raw string) (string, string, jwt.MapClaims, error) {
	claims, err := t.ValidateRefresh(raw)
	if err != nil {
		return "", "", nil, err
	}

	userID, role, email, err := claimsIdentity(claims)
	if err != nil {
		return "", "", nil, err
	}

	newAccess, err := t.SignAccessToken(userID, role, email)
	if err != nil {
		return "", "", nil, err
	}
	newRefresh, err := t.SignRefreshToken(userID, role, email)
	if err != nil {
		return "", "", nil, err
	}
	if err := t.SaveRefreshToken(newRefresh, userID); err != nil {
		return "", "", nil, err
	}
	return newAccess, newRefresh, claims, nil
}

// CheckCookie resolves the caller's identity from the access cookie, falling
// back to refresh rotation when the access token has expired. It returns the
// (possibly new) tokens and the verified claims.
func (t *Service) CheckCookie(c echo.Context) (string, string, jwt.MapClaims, error) {
	if asCookie, err := c.Cookie(AccessCookie); err == nil {
		parsed, err := jwt.Parse(asCookie.Value, func(tok *jwt.Token) (interface{}, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return t.JWTSecret, nil
		})
		if err == nil && parsed.Valid {
			claims, ok := parsed.Claims.(jwt.MapClaims)
			if !ok {
				return "", "", nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			return asCookie.Value, "", claims, nil
		}
		if !errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
	}

	rfCookie, err := c.Cookie(RefreshCookie)
	if err != nil {
		return "", "", nil, echo.NewHTTPError(http.StatusUnauthorized, "missing auth cookie")
	}
	newAccess, newRefresh, claims, err := t.Rotate(rfCookie.Value)
	if err != nil {
		return "", "", nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	return newAccess, newRefresh, claims, nil
}

// AutoRefresh authenticates the request, transparently rotating an expired
// access token, and injects userID/role/email into the echo context.
func (t *Service) AutoRefresh(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		newAccess, newRefresh, claims, err := t.CheckCookie(c)
		if err != nil {
			return err
		}
		if newRefresh != "" {
			c.SetCookie(CreateCookie(AccessCookie, newAccess, "/", time.Now().Add(AccessTTL)))
			c.SetCookie(CreateCookie(RefreshCookie, newRefresh, "/", time.Now().Add(RefreshTTL)))
		}
		if err := setUserContext(c, claims); err != nil {
			return err
		}
		return next(c)
	}
}

// AdminOnly is AutoRefresh plus the back-office role gate.
func (t *Service) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return t.AutoRefresh(func(c echo.Context) error {
		if role, _ := c.Get("role").(string); role != models.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
		}
		return next(c)
	})
}

func setUserContext(c echo.Context, claims jwt.MapClaims) error {
	userID, role, email, err := claimsIdentity(claims)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	c.Set("userID", userID.String())
	c.Set("role", role)
	c.Set("email", email)
	return nil
}

func claimsIdentity(claims jwt.MapClaims) (uuid.UUID, string, string, error) {
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, "", "", errors.New("missing subject claim")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, "", "", fmt.Errorf("invalid subject claim: %w", err)
	}
	role, ok := claims["role"].(string)
	if !ok {
		return uuid.Nil, "", "", errors.New("missing role claim")
	}
	email, _ := claims["email"].(string)
	return userID, role, email, nil
}
