package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/heartnote/internal/events"
)

const csvContentType = "text/csv; charset=utf-8"

func (handler *Handler) exportFilename(extension string) string {
	return fmt.Sprintf("heartnote-export-%s.%s", handler.now().In(handler.location).Format("2006-01-02"), extension)
}

func (handler *Handler) ExportSummary(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	summary, err := handler.exportService.BuildSummary(user.ID, c.Query("from"), c.Query("to"))
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(summary)
}

func (handler *Handler) ExportCSV(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	content, err := handler.exportService.BuildCSV(user.ID, c.Query("from"), c.Query("to"))
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	c.Set(fiber.HeaderContentType, csvContentType)
	c.Attachment(handler.exportFilename("csv"))
	return c.Send(content)
}

func (handler *Handler) ExportJSON(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	entries, err := handler.exportService.BuildJSONEntries(user.ID, c.Query("from"), c.Query("to"))
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	c.Attachment(handler.exportFilename("json"))
	return c.JSON(entries)
}

// ArchiveExport uploads the CSV export to object storage and returns its key.
func (handler *Handler) ArchiveExport(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	if !handler.archiver.Configured() {
		return handler.apiError(c, fiber.StatusServiceUnavailable, "export_unavailable")
	}

	content, err := handler.exportService.BuildCSV(user.ID, c.Query("from"), c.Query("to"))
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	key, err := handler.archiver.Archive(c.UserContext(), user.ID, "csv", csvContentType, content)
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	handler.publish(c, events.TypeExportArchived, user.ID, user.ID, map[string]any{"key": key, "bytes": len(content)})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"key": key})
}
