package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/heartnote/internal/models"
	"github.com/terraincognita07/heartnote/internal/services"
)

const (
	contextUserKey     = "current_user"
	contextIdentityKey = "current_identity"
	contextLanguageKey = "lang"
	contextSessionKey  = "session_token_id"
)

func currentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(contextUserKey).(*models.User)
	return user, ok && user != nil
}

func currentIdentity(c *fiber.Ctx) services.Identity {
	identity, _ := c.Locals(contextIdentityKey).(services.Identity)
	return identity
}

// currentSessionTokenID is the jti of the session that authenticated the
// request, or "" for LINE identities.
func currentSessionTokenID(c *fiber.Ctx) string {
	tokenID, _ := c.Locals(contextSessionKey).(string)
	return tokenID
}

func currentLanguage(c *fiber.Ctx) string {
	language, _ := c.Locals(contextLanguageKey).(string)
	return language
}
