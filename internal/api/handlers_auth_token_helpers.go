package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/terraincognita07/heartnote/internal/models"
)

// startSession stores a session row for a fresh jti and sets the sealed
// cookie. The signed token is also returned for bearer clients.
func (handler *Handler) startSession(c *fiber.Ctx, user *models.User) (string, error) {
	now := handler.now()
	expiresAt := now.Add(authTokenTTL)
	tokenID := uuid.NewString()

	if err := handler.authService.StartSession(user.ID, tokenID, expiresAt); err != nil {
		return "", err
	}

	token, err := handler.buildToken(user, tokenID, now, expiresAt)
	if err != nil {
		return "", err
	}
	sealed, err := handler.cookieCodec.seal(authCookiePurpose, []byte(token))
	if err != nil {
		return "", err
	}

	c.Cookie(&fiber.Cookie{
		Name:     authCookieName,
		Value:    sealed,
		Path:     "/",
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: "Lax",
		Expires:  expiresAt,
	})
	return token, nil
}

func (handler *Handler) clearAuthCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: "Lax",
		Expires:  handler.now().Add(-time.Hour),
	})
}

func (handler *Handler) buildToken(user *models.User, tokenID string, issuedAt time.Time, expiresAt time.Time) (string, error) {
	claims := authClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(handler.secretKey)
}
