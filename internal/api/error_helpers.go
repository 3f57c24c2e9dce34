package api

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/heartnote/internal/services"
	"github.com/terraincognita07/heartnote/internal/storage"
)

type serviceErrorMapping struct {
	target error
	status int
	code   string
}

var serviceErrorMappings = []serviceErrorMapping{
	{services.ErrUnauthenticated, fiber.StatusUnauthorized, "unauthenticated"},
	{services.ErrAuthUserNotFound, fiber.StatusUnauthorized, "unauthenticated"},
	{services.ErrAuthCredentialsInvalid, fiber.StatusUnauthorized, "invalid_credentials"},
	{services.ErrLineTokenInvalid, fiber.StatusUnauthorized, "line_token_invalid"},
	{services.ErrWeakPassword, fiber.StatusBadRequest, "weak_password"},
	{services.ErrEmailAlreadyRegistered, fiber.StatusConflict, "email_taken"},
	{services.ErrInvalidRole, fiber.StatusBadRequest, "invalid_role"},
	{services.ErrInvalidDisplayName, fiber.StatusBadRequest, "invalid_display_name"},
	{services.ErrInvalidCurrentPassword, fiber.StatusBadRequest, "invalid_current_password"},
	{services.ErrNewPasswordMustDiffer, fiber.StatusBadRequest, "new_password_must_differ"},

	{services.ErrConsentRequired, fiber.StatusForbidden, "consent_required"},
	{services.ErrPatientNotFound, fiber.StatusNotFound, "patient_not_found"},
	{services.ErrInviteNotFound, fiber.StatusNotFound, "invite_not_found"},
	{services.ErrInviteAlreadyActive, fiber.StatusConflict, "invite_already_active"},
	{services.ErrInviteNotPending, fiber.StatusConflict, "invite_not_pending"},
	{services.ErrInvalidInviteAction, fiber.StatusBadRequest, "invalid_invite_action"},
	{services.ErrCommentTargetNotFound, fiber.StatusNotFound, "comment_target_not_found"},

	{services.ErrHealthRecordNotFound, fiber.StatusNotFound, "health_record_not_found"},
	{services.ErrHealthRecordSlotTaken, fiber.StatusConflict, "health_record_slot_taken"},
	{services.ErrInvalidRecordRange, fiber.StatusBadRequest, "invalid_range"},
	{services.ErrInvalidMonth, fiber.StatusBadRequest, "invalid_month"},
	{services.ErrBloodDataNotFound, fiber.StatusNotFound, "blood_data_not_found"},
	{services.ErrCPXNotFound, fiber.StatusNotFound, "cpx_not_found"},

	{services.ErrFamilyInviteNotFound, fiber.StatusNotFound, "family_invite_not_found"},
	{services.ErrFamilyInviteExpired, fiber.StatusGone, "family_invite_expired"},
	{services.ErrFamilyAlreadyLinked, fiber.StatusConflict, "family_already_linked"},
	{services.ErrFamilySelfLink, fiber.StatusBadRequest, "family_self_link"},
	{services.ErrFamilyMemberNotFound, fiber.StatusNotFound, "family_member_not_found"},
	{services.ErrFamilyAccessDenied, fiber.StatusForbidden, "family_access_denied"},

	{storage.ErrNotConfigured, fiber.StatusServiceUnavailable, "export_unavailable"},
}

// respondServiceError maps a service error onto the error envelope. Storage
// failures that are not sentinels become 503 when the database is
// unreachable and 500 otherwise; development builds add the cause.
func (handler *Handler) respondServiceError(c *fiber.Ctx, err error) error {
	var fieldErrs services.FieldErrors
	if errors.As(err, &fieldErrs) {
		return handler.validationError(c, fieldErrs)
	}

	for _, mapping := range serviceErrorMappings {
		if errors.Is(err, mapping.target) {
			return handler.apiError(c, mapping.status, mapping.code)
		}
	}

	status, code := fiber.StatusInternalServerError, "internal"
	if isDatabaseUnavailable(err) {
		status, code = fiber.StatusServiceUnavailable, "database_unavailable"
	}
	handler.logger.Error().
		Err(err).
		Str("request_id", requestID(c)).
		Str("path", c.Path()).
		Str("code", code).
		Msg("request failed")

	body := errorResponse{Error: handler.translate(c, "error."+code), Code: code}
	if handler.development {
		body.Detail = err.Error()
	}
	return c.Status(status).JSON(body)
}

func isDatabaseUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	message := strings.ToLower(err.Error())
	for _, marker := range []string{
		"sql: database is closed",
		"connection refused",
		"failed to connect",
		"database is locked",
		"unable to open database file",
	} {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

// ErrorHandler is the Fiber error handler. It keeps unhandled errors inside
// the JSON envelope.
func (handler *Handler) ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			return handler.apiError(c, fiber.StatusNotFound, "route_not_found")
		case fiber.StatusForbidden:
			return handler.apiError(c, fiber.StatusForbidden, "csrf_failed")
		case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity, fiber.StatusRequestEntityTooLarge:
			return handler.apiError(c, fiber.StatusBadRequest, "invalid_json")
		case fiber.StatusMethodNotAllowed:
			return handler.apiError(c, fiber.StatusNotFound, "route_not_found")
		}
	}
	return handler.respondServiceError(c, err)
}

func (handler *Handler) NotFound(c *fiber.Ctx) error {
	return handler.apiError(c, fiber.StatusNotFound, "route_not_found")
}
