package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/heartnote/internal/events"
)

// publish hands an activity event to the publisher. A failed publish is
// logged and never changes the response.
func (handler *Handler) publish(c *fiber.Ctx, eventType string, patientID uint, actorID uint, attributes map[string]any) {
	event := events.Event{
		Type:       eventType,
		PatientID:  patientID,
		ActorID:    actorID,
		OccurredAt: handler.now().UTC(),
		Attributes: attributes,
	}
	if err := handler.publisher.Publish(c.UserContext(), event); err != nil {
		handler.logger.Warn().
			Err(err).
			Str("request_id", requestID(c)).
			Str("event_type", eventType).
			Msg("publish activity event failed")
	}
}
