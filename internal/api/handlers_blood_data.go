package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/heartnote/internal/events"
	"github.com/terraincognita07/heartnote/internal/services"
)

const (
	bloodDataModeBlood = "blood"
	bloodDataModeCPX   = "cpx"
)

type bloodDataPayload struct {
	TestDate         string        `json:"testDate"`
	HbA1c            flexibleValue `json:"hba1c"`
	LDL              flexibleValue `json:"ldl"`
	HDL              flexibleValue `json:"hdl"`
	Triglycerides    flexibleValue `json:"triglycerides"`
	TotalCholesterol flexibleValue `json:"totalCholesterol"`
	BloodSugar       flexibleValue `json:"bloodSugar"`
	BNP              flexibleValue `json:"bnp"`
	NTProBNP         flexibleValue `json:"ntProbnp"`
	Creatinine       flexibleValue `json:"creatinine"`
	EGFR             flexibleValue `json:"egfr"`
	Hemoglobin       flexibleValue `json:"hemoglobin"`
	UricAcid         flexibleValue `json:"uricAcid"`
}

func (payload bloodDataPayload) input() services.BloodDataInput {
	return services.BloodDataInput{
		TestDate:         payload.TestDate,
		HbA1c:            payload.HbA1c.String(),
		LDL:              payload.LDL.String(),
		HDL:              payload.HDL.String(),
		Triglycerides:    payload.Triglycerides.String(),
		TotalCholesterol: payload.TotalCholesterol.String(),
		BloodSugar:       payload.BloodSugar.String(),
		BNP:              payload.BNP.String(),
		NTProBNP:         payload.NTProBNP.String(),
		Creatinine:       payload.Creatinine.String(),
		EGFR:             payload.EGFR.String(),
		Hemoglobin:       payload.Hemoglobin.String(),
		UricAcid:         payload.UricAcid.String(),
	}
}

type cpxPayload struct {
	BloodDataID flexibleValue `json:"bloodDataId"`
	TestRound   flexibleValue `json:"testRound"`
	LoadWeight  flexibleValue `json:"loadWeight"`
	VO2         flexibleValue `json:"vo2"`
	METs        flexibleValue `json:"mets"`
	HeartRate   flexibleValue `json:"heartRate"`
	SystolicBP  flexibleValue `json:"systolicBp"`
	MaxLoad     flexibleValue `json:"maxLoad"`
	ATOnset     flexibleValue `json:"atOnset"`
	Findings    string        `json:"findings"`
}

func (payload cpxPayload) input() services.CPXInput {
	return services.CPXInput{
		BloodDataID: payload.BloodDataID.id(),
		TestRound:   payload.TestRound.String(),
		LoadWeight:  payload.LoadWeight.String(),
		VO2:         payload.VO2.String(),
		METs:        payload.METs.String(),
		HeartRate:   payload.HeartRate.String(),
		SystolicBP:  payload.SystolicBP.String(),
		MaxLoad:     payload.MaxLoad.String(),
		ATOnset:     payload.ATOnset.String(),
		Findings:    payload.Findings,
	}
}

func bloodDataMode(c *fiber.Ctx) (string, bool) {
	mode := strings.ToLower(strings.TrimSpace(c.Query("mode", bloodDataModeBlood)))
	switch mode {
	case bloodDataModeBlood, bloodDataModeCPX:
		return mode, true
	default:
		return "", false
	}
}

func (handler *Handler) ListBloodData(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	entries, err := handler.bloodDataService.ListEntries(user.ID)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"entries": entries})
}

func (handler *Handler) CreateBloodData(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	mode, ok := bloodDataMode(c)
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_mode")
	}

	if mode == bloodDataModeCPX {
		var payload cpxPayload
		if err := parseJSONBody(c, &payload); err != nil {
			return handler.apiError(c, fiber.StatusBadRequest, "invalid_json")
		}
		test, err := handler.bloodDataService.CreateCPX(user.ID, payload.input())
		if err != nil {
			return handler.respondServiceError(c, err)
		}
		handler.publish(c, events.TypeBloodDataSaved, user.ID, user.ID, map[string]any{"kind": mode, "cpxId": test.ID})
		return c.Status(fiber.StatusCreated).JSON(test)
	}

	var payload bloodDataPayload
	if err := parseJSONBody(c, &payload); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_json")
	}
	entry, err := handler.bloodDataService.CreateEntry(user.ID, payload.input())
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	handler.publish(c, events.TypeBloodDataSaved, user.ID, user.ID, map[string]any{"kind": mode, "bloodDataId": entry.ID})
	return c.Status(fiber.StatusCreated).JSON(entry)
}

func (handler *Handler) UpdateBloodData(c *fiber.Ctx) error {
	user, _ := currentUser(c)
	mode, ok := bloodDataMode(c)
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_mode")
	}
	targetID, err := queryID(c, "id")
	if err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_id")
	}

	if mode == bloodDataModeCPX {
		var payload cpxPayload
		if err := parseJSONBody(c, &payload); err != nil {
			return handler.apiError(c, fiber.StatusBadRequest, "invalid_json")
		}
		test, err := handler.bloodDataService.UpdateCPX(user.ID, targetID, payload.input())
		if err != nil {
			return handler.respondServiceError(c, err)
		}
		handler.publish(c, events.TypeBloodDataSaved, user.ID, user.ID, map[string]any{"kind": mode, "cpxId": test.ID})
		return c.JSON(test)
	}

	var payload bloodDataPayload
	if err := parseJSONBody(c, &payload); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_json")
	}
	entry, err := handler.bloodDataService.UpdateEntry(user.ID, targetID, payload.input())
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	handler.publish(c, events.TypeBloodDataSaved, user.ID, user.ID, map[string]any{"kind": mode, "bloodDataId": entry.ID})
	return c.JSON(entry)
}

// DeleteBloodData removes a lab entry (?id=, cascading its CPX rows) or a
// single CPX row (?cpxId=).
func (handler *Handler) DeleteBloodData(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	if raw := c.Query("cpxId"); raw != "" {
		cpxID, err := parsePositiveID(raw)
		if err != nil {
			return handler.apiError(c, fiber.StatusBadRequest, "invalid_id")
		}
		if err := handler.bloodDataService.DeleteCPX(user.ID, cpxID); err != nil {
			return handler.respondServiceError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}

	entryID, err := queryID(c, "id")
	if err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_id")
	}
	if err := handler.bloodDataService.DeleteEntry(user.ID, entryID); err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
