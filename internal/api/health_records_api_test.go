package api

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestHealthRecordValidationReturnsEveryFieldError(t *testing.T) {
	env := newTestEnv(t)
	patient := env.signup(t, "patient@example.com", "Patient", "patient")

	body := healthRecordBody("2026-02-30", "25:00", "abc", 0, 1000.5)
	body["weight"] = ""
	response := env.expectStatus(t, http.MethodPost, "/api/health-records", body, patient.Token, fiber.StatusBadRequest)

	apiErr := readAPIError(t, response)
	if apiErr.Code != "validation_failed" {
		t.Fatalf("expected validation_failed, got %+v", apiErr)
	}
	want := map[string]string{
		"date":      "invalid_date",
		"timeSlot":  "invalid_time",
		"systolic":  "not_a_number",
		"diastolic": "out_of_range",
		"pulse":     "out_of_range",
	}
	for field, code := range want {
		if apiErr.FieldErrors[field] != code {
			t.Fatalf("expected %s=%s, got field errors %+v", field, code, apiErr.FieldErrors)
		}
	}
	if _, ok := apiErr.FieldErrors["weight"]; ok {
		t.Fatalf("blank optional weight must not be an error: %+v", apiErr.FieldErrors)
	}
	if count := countRows(t, env.db, "health_records"); count != 0 {
		t.Fatalf("expected nothing stored, got %d rows", count)
	}
}

func TestHealthRecordBoundaryValuesRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	patient := env.signup(t, "patient@example.com", "Patient", "patient")

	body := healthRecordBody("2026-03-01", "9:05", "1000", 0.5, 60)
	body["weight"] = 64.3
	env.expectStatus(t, http.MethodPost, "/api/health-records", body, patient.Token, fiber.StatusCreated)

	response := env.expectStatus(t, http.MethodGet, "/api/health-records", nil, patient.Token, fiber.StatusOK)
	var listed struct {
		Records []struct {
			TimeSlot  string   `json:"timeSlot"`
			Systolic  float64  `json:"systolic"`
			Diastolic float64  `json:"diastolic"`
			Weight    *float64 `json:"weight"`
		} `json:"records"`
	}
	decodeJSON(t, response, &listed)
	if len(listed.Records) != 1 {
		t.Fatalf("expected one record, got %+v", listed.Records)
	}
	got := listed.Records[0]
	if got.TimeSlot != "09:05" || got.Systolic != 1000 || got.Diastolic != 0.5 || got.Weight == nil || *got.Weight != 64.3 {
		t.Fatalf("unexpected stored record: %+v", got)
	}
}

func TestHealthRecordUpsertKeepsOneRowPerSlot(t *testing.T) {
	env := newTestEnv(t)
	patient := env.signup(t, "patient@example.com", "Patient", "patient")

	env.expectStatus(t, http.MethodPost, "/api/health-records", healthRecordBody("2026-03-03", "08:00", 150, 95, 80), patient.Token, fiber.StatusCreated)
	env.expectStatus(t, http.MethodPost, "/api/health-records", healthRecordBody("2026-03-03", "08:00", 122, 78, 66), patient.Token, fiber.StatusCreated)

	if count := countRows(t, env.db, "health_records"); count != 1 {
		t.Fatalf("expected one row for the slot, got %d", count)
	}

	response := env.expectStatus(t, http.MethodGet, "/api/health-records?from=2026-03-03&to=2026-03-03", nil, patient.Token, fiber.StatusOK)
	var listed struct {
		Records []struct {
			Systolic float64 `json:"systolic"`
			Pulse    float64 `json:"pulse"`
		} `json:"records"`
	}
	decodeJSON(t, response, &listed)
	if len(listed.Records) != 1 || listed.Records[0].Systolic != 122 || listed.Records[0].Pulse != 66 {
		t.Fatalf("expected the later write to win, got %+v", listed.Records)
	}
}

func TestHealthRecordUpdateAndDeleteAreScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.signup(t, "owner@example.com", "Owner", "patient")
	other := env.signup(t, "other@example.com", "Other", "patient")

	created := env.expectStatus(t, http.MethodPost, "/api/health-records", healthRecordBody("2026-03-04", "20:00", 118, 76, 62), owner.Token, fiber.StatusCreated)
	var record struct {
		ID uint `json:"id"`
	}
	decodeJSON(t, created, &record)
	path := "/api/health-records?id=" + strconv.FormatUint(uint64(record.ID), 10)

	env.expectStatus(t, http.MethodPut, path, healthRecordBody("2026-03-04", "20:00", 130, 80, 70), other.Token, fiber.StatusNotFound)
	env.expectStatus(t, http.MethodDelete, path, nil, other.Token, fiber.StatusNotFound)

	env.expectStatus(t, http.MethodPut, path, healthRecordBody("2026-03-04", "21:00", 130, 80, 70), owner.Token, fiber.StatusOK)
	env.expectStatus(t, http.MethodDelete, path, nil, owner.Token, fiber.StatusOK)
	if count := countRows(t, env.db, "health_records"); count != 0 {
		t.Fatalf("expected record deleted, got %d rows", count)
	}

	env.expectStatus(t, http.MethodDelete, "/api/health-records?id=abc", nil, owner.Token, fiber.StatusBadRequest)
}

func TestHealthRecordRangeValidation(t *testing.T) {
	env := newTestEnv(t)
	patient := env.signup(t, "patient@example.com", "Patient", "patient")

	response := env.expectStatus(t, http.MethodGet, "/api/health-records?from=2026-03-10&to=2026-03-01", nil, patient.Token, fiber.StatusBadRequest)
	if apiErr := readAPIError(t, response); apiErr.Code != "invalid_range" {
		t.Fatalf("expected invalid_range, got %+v", apiErr)
	}
}

func TestHealthRecordCalendarAndTrends(t *testing.T) {
	env := newTestEnv(t)
	patient := env.signup(t, "patient@example.com", "Patient", "patient")

	env.expectStatus(t, http.MethodPost, "/api/health-records", healthRecordBody("2026-03-05", "07:00", 130, 85, 70), patient.Token, fiber.StatusCreated)
	env.expectStatus(t, http.MethodPost, "/api/health-records", healthRecordBody("2026-03-05", "19:00", 120, 75, 60), patient.Token, fiber.StatusCreated)

	response := env.expectStatus(t, http.MethodGet, "/api/health-records/calendar?month=2026-03", nil, patient.Token, fiber.StatusOK)
	var calendar struct {
		Month string `json:"month"`
		Days  []struct {
			Date        string   `json:"date"`
			RecordCount int      `json:"recordCount"`
			TimeSlots   []string `json:"timeSlots"`
		} `json:"days"`
	}
	decodeJSON(t, response, &calendar)
	if calendar.Month != "2026-03" || len(calendar.Days) != 42 {
		t.Fatalf("unexpected calendar grid: month=%q days=%d", calendar.Month, len(calendar.Days))
	}
	found := false
	for _, day := range calendar.Days {
		if day.Date == "2026-03-05" {
			found = true
			if day.RecordCount != 2 || len(day.TimeSlots) != 2 {
				t.Fatalf("unexpected day aggregate: %+v", day)
			}
		}
	}
	if !found {
		t.Fatal("expected 2026-03-05 in the calendar grid")
	}

	env.expectStatus(t, http.MethodGet, "/api/health-records/calendar?month=2026-13", nil, patient.Token, fiber.StatusBadRequest)

	response = env.expectStatus(t, http.MethodGet, "/api/health-records/trends?from=2026-03-01&to=2026-03-31", nil, patient.Token, fiber.StatusOK)
	var trends struct {
		Points []struct {
			Date     string  `json:"date"`
			Count    int     `json:"count"`
			Systolic float64 `json:"systolic"`
			Pulse    float64 `json:"pulse"`
		} `json:"points"`
	}
	decodeJSON(t, response, &trends)
	if len(trends.Points) != 1 {
		t.Fatalf("expected one trend point, got %+v", trends.Points)
	}
	if point := trends.Points[0]; point.Count != 2 || point.Systolic != 125 || point.Pulse != 65 {
		t.Fatalf("unexpected trend point: %+v", point)
	}
}
