package api

import "github.com/gofiber/fiber/v2"

// LanguageMiddleware picks the response language from the language cookie,
// then Accept-Language, then the default.
func (handler *Handler) LanguageMiddleware(c *fiber.Ctx) error {
	language := handler.i18n.DetectFromAcceptLanguage(c.Get(fiber.HeaderAcceptLanguage))
	if cookieLanguage := c.Cookies(languageCookieName); cookieLanguage != "" {
		language = handler.i18n.NormalizeLanguage(cookieLanguage)
	}

	c.Locals(contextLanguageKey, language)
	return c.Next()
}

// SetLanguage stores the requested language in a long-lived cookie.
func (handler *Handler) SetLanguage(c *fiber.Ctx) error {
	language := handler.i18n.NormalizeLanguage(c.Params("lang"))
	c.Cookie(&fiber.Cookie{
		Name:     languageCookieName,
		Value:    language,
		Path:     "/",
		HTTPOnly: false,
		Secure:   handler.cookieSecure,
		SameSite: "Lax",
		Expires:  handler.now().AddDate(1, 0, 0),
	})
	return c.JSON(fiber.Map{"language": language, "supported": handler.i18n.SupportedLanguages()})
}

func (handler *Handler) translate(c *fiber.Ctx, key string) string {
	language := currentLanguage(c)
	if language == "" {
		language = handler.i18n.DefaultLanguage()
	}
	return handler.i18n.Translate(language, key)
}
