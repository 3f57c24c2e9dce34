package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/heartnote/internal/models"
	"github.com/terraincognita07/heartnote/internal/services"
)

type exercisePayload struct {
	Kind      string        `json:"kind"`
	Minutes   flexibleValue `json:"minutes"`
	Intensity string        `json:"intensity"`
}

type mealPayload struct {
	Staple        string `json:"staple"`
	MainDish      string `json:"mainDish"`
	SideDish      string `json:"sideDish"`
	Dairy         string `json:"dairy"`
	Fruit         string `json:"fruit"`
	Other         string `json:"other"`
	SaltConscious bool   `json:"saltConscious"`
}

type healthRecordPayload struct {
	Date            string          `json:"date"`
	TimeSlot        string          `json:"timeSlot"`
	Systolic        flexibleValue   `json:"systolic"`
	Diastolic       flexibleValue   `json:"diastolic"`
	Pulse           flexibleValue   `json:"pulse"`
	Weight          flexibleValue   `json:"weight"`
	Exercise        exercisePayload `json:"exercise"`
	Meal            mealPayload     `json:"meal"`
	Notes           string          `json:"notes"`
	MedicationTaken bool            `json:"medicationTaken"`
}

func (payload healthRecordPayload) input() services.HealthRecordInput {
	return services.HealthRecordInput{
		Date:      payload.Date,
		TimeSlot:  payload.TimeSlot,
		Systolic:  payload.Systolic.String(),
		Diastolic: payload.Diastolic.String(),
		Pulse:     payload.Pulse.String(),
		Weight:    payload.Weight.String(),
		Exercise: services.ExerciseInput{
			Kind:      payload.Exercise.Kind,
			Minutes:   payload.Exercise.Minutes.String(),
			Intensity: payload.Exercise.Intensity,
		},
		Meal: services.MealInput{
			Staple:        payload.Meal.Staple,
			MainDish:      payload.Meal.MainDish,
			SideDish:      payload.Meal.SideDish,
			Dairy:         payload.Meal.Dairy,
			Fruit:         payload.Meal.Fruit,
			Other:         payload.Meal.Other,
			SaltConscious: payload.Meal.SaltConscious,
		},
		Notes:           payload.Notes,
		MedicationTaken: payload.MedicationTaken,
	}
}

func (handler *Handler) ListHealthRecords(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	records, err := handler.healthRecordService.ListRecords(user.ID, c.Query("from"), c.Query("to"))
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"records": records})
}

// UpsertHealthRecord writes the record for the payload's date and time slot,
// replacing any earlier values for that slot.
func (handler *Handler) UpsertHealthRecord(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	var payload healthRecordPayload
	if err := parseJSONBody(c, &payload); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_json")
	}

	record, err := handler.healthRecordService.UpsertRecord(user.ID, payload.input())
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	handler.afterHealthRecordSaved(c, user, record)
	return c.Status(fiber.StatusCreated).JSON(record)
}

func (handler *Handler) UpdateHealthRecord(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	recordID, err := queryID(c, "id")
	if err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_id")
	}

	var payload healthRecordPayload
	if err := parseJSONBody(c, &payload); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_json")
	}

	record, err := handler.healthRecordService.UpdateRecord(user.ID, recordID, payload.input())
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	handler.afterHealthRecordSaved(c, user, record)
	return c.JSON(record)
}

func (handler *Handler) DeleteHealthRecord(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	recordID, err := queryID(c, "id")
	if err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_id")
	}
	if err := handler.healthRecordService.DeleteRecord(user.ID, recordID); err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) HealthRecordCalendar(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	now := handler.now()
	monthStart, err := services.ParseMonth(c.Query("month"), now, handler.location)
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	days, err := handler.healthRecordService.BuildCalendar(user.ID, monthStart, now, handler.location)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"month": monthStart.Format("2006-01"),
		"days":  days,
	})
}

func (handler *Handler) HealthRecordTrends(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	points, err := handler.healthRecordService.BuildTrends(user.ID, c.Query("from"), c.Query("to"))
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"points": points})
}

func (handler *Handler) afterHealthRecordSaved(c *fiber.Ctx, user *models.User, record models.HealthRecord) {
	if services.IsHighBloodPressure(record) {
		handler.notificationService.NotifyHighBloodPressure(c.UserContext(), *user, record)
	}
}
