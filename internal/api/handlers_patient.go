package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/heartnote/internal/events"
)

type respondInviteRequest struct {
	InviteID flexibleValue `json:"inviteId"`
	Action   string        `json:"action"`
}

func (handler *Handler) ListPendingInvites(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	invites, err := handler.consentService.ListPendingForPatient(user.ID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"invites": invites})
}

func (handler *Handler) RespondInvite(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	var request respondInviteRequest
	if err := parseJSONBody(c, &request); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_json")
	}
	inviteID := request.InviteID.id()
	if inviteID == 0 {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_id")
	}

	invite, err := handler.consentService.Respond(user.ID, inviteID, request.Action)
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	handler.publish(c, events.TypeInviteResponded, user.ID, user.ID, map[string]any{
		"inviteId":   invite.ID,
		"providerId": invite.ProviderID,
		"status":     invite.Status,
	})
	return c.JSON(invite)
}

func (handler *Handler) ListPatientComments(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	comments, err := handler.commentService.ListForPatient(user.ID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"comments": comments})
}
