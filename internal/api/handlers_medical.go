package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/heartnote/internal/events"
	"github.com/terraincognita07/heartnote/internal/models"
	"github.com/terraincognita07/heartnote/internal/services"
	"gorm.io/gorm"
)

type createInviteRequest struct {
	PatientID flexibleValue `json:"patientId"`
}

type recordCommentRequest struct {
	PatientID      flexibleValue `json:"patientId"`
	HealthRecordID flexibleValue `json:"healthRecordId"`
	Content        string        `json:"content"`
}

type labCommentRequest struct {
	PatientID   flexibleValue `json:"patientId"`
	BloodDataID flexibleValue `json:"bloodDataId"`
	CPXID       flexibleValue `json:"cpxId"`
	Content     string        `json:"content"`
}

type patientProfile struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"displayName"`
}

func (handler *Handler) SearchPatients(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	patients, err := handler.directoryService.Search(user.ID, c.Query("name"))
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"patients": patients})
}

func (handler *Handler) ListProviderInvites(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	invites, err := handler.consentService.ListForProvider(user.ID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"invites": invites})
}

func (handler *Handler) CreateInvite(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	var request createInviteRequest
	if err := parseJSONBody(c, &request); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_json")
	}
	patientID := request.PatientID.id()
	if patientID == 0 {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_id")
	}

	invite, err := handler.consentService.CreateInvite(user.ID, patientID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	handler.notificationService.NotifyInviteReceived(c.UserContext(), invite, user.DisplayName)
	handler.publish(c, events.TypeInviteCreated, invite.PatientID, user.ID, map[string]any{"inviteId": invite.ID})
	return c.Status(fiber.StatusCreated).JSON(invite)
}

// PatientData is the provider's read of one patient. The consent gate runs
// first so an unaccepted provider gets 403, never an empty result.
func (handler *Handler) PatientData(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	patientID, err := queryID(c, "patientId")
	if err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_id")
	}
	if err := handler.consentService.RequireAccess(user.ID, patientID); err != nil {
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
	bloodData, err := handler.bloodDataService.ListEntries(patientID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	comments, err := handler.commentService.ListForPatient(patientID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"patient":       patient,
		"healthRecords": records,
		"bloodData":     bloodData,
		"comments":      comments,
	})
}

func (handler *Handler) CreateRecordComment(c *fiber.Ctx) error {
	var request recordCommentRequest
	if err := parseJSONBody(c, &request); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_json")
	}
	return handler.addComment(c, services.CommentInput{
		PatientID:  request.PatientID.id(),
		TargetKind: models.CommentTargetHealthRecord,
		TargetID:   request.HealthRecordID.id(),
		Content:    request.Content,
	})
}

// CreateLabComment attaches a comment to a CPX row when cpxId is given and to
// the lab entry otherwise.
func (handler *Handler) CreateLabComment(c *fiber.Ctx) error {
	var request labCommentRequest
	if err := parseJSONBody(c, &request); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_json")
	}

	input := services.CommentInput{
		PatientID:  request.PatientID.id(),
		TargetKind: models.CommentTargetBloodData,
		TargetID:   request.BloodDataID.id(),
		Content:    request.Content,
	}
	if cpxID := request.CPXID.id(); cpxID != 0 {
		input.TargetKind = models.CommentTargetCPX
		input.TargetID = cpxID
	}
	return handler.addComment(c, input)
}

func (handler *Handler) addComment(c *fiber.Ctx, input services.CommentInput) error {
	user, _ := currentUser(c)
	comment, err := handler.commentService.AddComment(user.ID, input)
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	handler.notificationService.NotifyCommentPosted(c.UserContext(), comment, user.DisplayName)
	handler.publish(c, events.TypeCommentCreated, comment.PatientID, user.ID, map[string]any{
		"commentId":  comment.ID,
		"targetKind": comment.TargetKind,
		"targetId":   comment.TargetID,
	})
	return c.Status(fiber.StatusCreated).JSON(comment)
}

func (handler *Handler) loadPatient(patientID uint) (patientProfile, error) {
	patient, err := handler.repositories.Users.FindByID(patientID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && patient.Role != models.RolePatient) {
		return patientProfile{}, services.ErrPatientNotFound
	}
	if err != nil {
		return patientProfile{}, err
	}
	return patientProfile{ID: patient.ID, DisplayName: patient.DisplayName}, nil
}
