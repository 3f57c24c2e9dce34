package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/heartnote/internal/services"
)

// Paths a user with a forced password change may still reach.
var passwordChangeAllowedPaths = map[string]struct{}{
	"/api/auth/me":              {},
	"/api/auth/logout":          {},
	"/api/auth/change-password": {},
}

func (handler *Handler) AuthRequired(c *fiber.Ctx) error {
	credentials := handler.requestCredentials(c)
	user, identity, err := handler.identityService.Resolve(credentials)
	if err != nil {
		if errors.Is(err, services.ErrUnauthenticated) {
			if credentials.Session != nil {
				handler.clearAuthCookie(c)
			}
			return handler.apiError(c, fiber.StatusUnauthorized, "unauthenticated")
		}
		return handler.respondServiceError(c, err)
	}

	if user.MustChangePassword {
		if _, ok := passwordChangeAllowedPaths[strings.TrimRight(c.Path(), "/")]; !ok {
			return handler.apiError(c, fiber.StatusForbidden, "password_change_required")
		}
	}

	c.Locals(contextUserKey, &user)
	c.Locals(contextIdentityKey, identity)
	if identity.Source == services.IdentitySourceSession && credentials.Session != nil {
		c.Locals(contextSessionKey, credentials.Session.TokenID)
	}
	return c.Next()
}

func (handler *Handler) MedicalOnly(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return handler.apiError(c, fiber.StatusUnauthorized, "unauthenticated")
	}
	if !services.IsMedicalUser(user) {
		return handler.apiError(c, fiber.StatusForbidden, "medical_only")
	}
	return c.Next()
}

func (handler *Handler) PatientOnly(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return handler.apiError(c, fiber.StatusUnauthorized, "unauthenticated")
	}
	if !services.IsPatientUser(user) {
		return handler.apiError(c, fiber.StatusForbidden, "patient_only")
	}
	return c.Next()
}
