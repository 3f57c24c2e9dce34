package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/heartnote/internal/services"
)

var errInvalidID = errors.New("invalid id")

type errorResponse struct {
	Error       string            `json:"error"`
	Code        string            `json:"code"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Detail      string            `json:"detail,omitempty"`
}

func (handler *Handler) apiError(c *fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(errorResponse{
		Error: handler.translate(c, "error."+code),
		Code:  code,
	})
}

func (handler *Handler) validationError(c *fiber.Ctx, fieldErrs services.FieldErrors) error {
	return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
		Error:       handler.translate(c, "error.validation_failed"),
		Code:        "validation_failed",
		FieldErrors: fieldErrs,
	})
}

func parseJSONBody(c *fiber.Ctx, target any) error {
	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 {
		return errors.New("empty body")
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	return decoder.Decode(target)
}

func parsePositiveID(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || value == 0 {
		return 0, errInvalidID
	}
	return uint(value), nil
}

func queryID(c *fiber.Ctx, name string) (uint, error) {
	return parsePositiveID(c.Query(name))
}

// flexibleValue accepts a JSON number, string, boolean or null and keeps the
// raw text so validation can tell blank input from bad input.
type flexibleValue string

func (value *flexibleValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*value = ""
	case len(trimmed) > 0 && trimmed[0] == '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*value = flexibleValue(text)
	case len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '['):
		return errors.New("expected a number or string")
	default:
		*value = flexibleValue(trimmed)
	}
	return nil
}

func (value flexibleValue) String() string {
	return strings.TrimSpace(string(value))
}

// id reads the value as a positive id. Blank or invalid input yields zero.
func (value flexibleValue) id() uint {
	id, err := parsePositiveID(value.String())
	if err != nil {
		return 0
	}
	return id
}
