package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/terraincognita07/heartnote/internal/services"
)

var errInvalidSessionToken = errors.New("invalid session token")

type authClaims struct {
	UserID uint   `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// requestCredentials collects both credential paths. A token that fails to
// parse is dropped here so the resolver can fall back to LINE.
func (handler *Handler) requestCredentials(c *fiber.Ctx) services.IdentityCredentials {
	credentials := services.IdentityCredentials{
		LineIDToken: strings.TrimSpace(c.Get(lineIDTokenHeader)),
	}

	rawToken := handler.sessionTokenFromRequest(c)
	if rawToken == "" {
		return credentials
	}
	claims, err := handler.parseSessionToken(rawToken)
	if err != nil {
		return credentials
	}
	credentials.Session = &services.SessionCredential{UserID: claims.UserID, TokenID: claims.ID}
	return credentials
}

// sessionTokenFromRequest prefers the sealed cookie and accepts a bearer
// token for non-browser clients.
func (handler *Handler) sessionTokenFromRequest(c *fiber.Ctx) string {
	if sealed := strings.TrimSpace(c.Cookies(authCookieName)); sealed != "" {
		token, err := handler.cookieCodec.open(authCookiePurpose, sealed)
		if err == nil {
			return string(token)
		}
	}

	scheme, token, found := strings.Cut(strings.TrimSpace(c.Get(fiber.HeaderAuthorization)), " ")
	if found && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

func (handler *Handler) parseSessionToken(raw string) (*authClaims, error) {
	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(
		raw,
		claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return handler.secretKey, nil
		},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(handler.now),
	)
	if err != nil || !token.Valid || claims.UserID == 0 || claims.ID == "" {
		return nil, errInvalidSessionToken
	}
	return claims, nil
}

// SkipCSRF reports whether a request can bypass the CSRF check. Requests
// without the session cookie carry no ambient credential, and browsers cannot
// attach the bearer or LINE headers cross-site.
func SkipCSRF(c *fiber.Ctx) bool {
	if strings.TrimSpace(c.Cookies(authCookieName)) == "" {
		return true
	}
	return strings.TrimSpace(c.Get(fiber.HeaderAuthorization)) != "" ||
		strings.TrimSpace(c.Get(lineIDTokenHeader)) != ""
}
