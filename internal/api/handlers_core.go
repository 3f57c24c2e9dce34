package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readinessTimeout = 2 * time.Second

func (handler *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready pings the database.
func (handler *Handler) Ready(c *fiber.Ctx) error {
	sqlDB, err := handler.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		handler.logger.Warn().Err(err).Msg("readiness check failed")
		return handler.apiError(c, fiber.StatusServiceUnavailable, "database_unavailable")
	}
	return c.JSON(fiber.Map{"status": "ready"})
}
