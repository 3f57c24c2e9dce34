package api

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/heartnote/internal/services"
)

const familyJoinPath = "/family/join"

type redeemFamilyInviteRequest struct {
	Token        string `json:"token"`
	DisplayName  string `json:"displayName"`
	Relationship string `json:"relationship"`
}

type updateFamilyMemberRequest struct {
	MemberID             flexibleValue `json:"memberId"`
	Relationship         *string       `json:"relationship"`
	ReceiveNotifications *bool         `json:"receiveNotifications"`
}

func (handler *Handler) CreateFamilyInvite(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	ticket, err := handler.familyService.CreateInvite(user.ID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token":     ticket.Token,
		"expiresAt": ticket.ExpiresAt,
		"url":       c.BaseURL() + familyJoinPath + "?token=" + url.QueryEscape(ticket.Token),
	})
}

// ListFamilyMembers returns the relatives linked to the caller and the
// patients the caller follows. Either list may be empty.
func (handler *Handler) ListFamilyMembers(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	members, err := handler.familyService.ListMembers(user.ID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	following, err := handler.familyService.ListFollowed(user.ID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"members": members, "following": following})
}

func (handler *Handler) RedeemFamilyInvite(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	var request redeemFamilyInviteRequest
	if err := parseJSONBody(c, &request); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_json")
	}
	member, err := handler.familyService.Redeem(user.ID, services.FamilyRedeemInput{
		Token:        request.Token,
		DisplayName:  request.DisplayName,
		Relationship: request.Relationship,
	})
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(member)
}

func (handler *Handler) UpdateFamilyMember(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	var request updateFamilyMemberRequest
	if err := parseJSONBody(c, &request); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_json")
	}
	memberID := request.MemberID.id()
	if memberID == 0 {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_id")
	}

	member, err := handler.familyService.UpdateMember(user.ID, services.FamilyMemberUpdate{
		MemberID:             memberID,
		Relationship:         request.Relationship,
		ReceiveNotifications: request.ReceiveNotifications,
	})
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(member)
}

// FamilyPatientData lets a linked relative read the patient's health records
// with private notes removed.
func (handler *Handler) FamilyPatientData(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	patientID, err := queryID(c, "patientId")
	if err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_id")
	}
	if err := handler.familyService.RequireViewer(patientID, user.ID); err != nil {
		return handler.respondServiceError(c, err)
	}

	patient, err := handler.loadPatient(patientID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	records, err := handler.healthRecordService.ListRecords(patientID, c.Query("from"), c.Query("to"))
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	services.SanitizeRecordsForFamily(records)

	return c.JSON(fiber.Map{"patient": patient, "healthRecords": records})
}
