package services

import (
	"errors"
	"strings"
	"testing"
)

func TestParseMeasurementBounds(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		required bool
		want     float64
		wantCode string
	}{
		{name: "just above zero", raw: "0.1", want: 0.1},
		{name: "upper bound inclusive", raw: "1000", want: 1000},
		{name: "trimmed", raw: " 128 ", want: 128},
		{name: "zero rejected", raw: "0", wantCode: FieldOutOfRange},
		{name: "negative rejected", raw: "-5", wantCode: FieldOutOfRange},
		{name: "above bound rejected", raw: "1000.5", wantCode: FieldOutOfRange},
		{name: "text rejected", raw: "abc", wantCode: FieldNotANumber},
		{name: "infinity rejected", raw: "Inf", wantCode: FieldNotANumber},
		{name: "blank required", raw: "  ", required: true, wantCode: FieldRequired},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			errs := FieldErrors{}
			got := ParseMeasurement(errs, "value", testCase.raw, testCase.required)
			if testCase.wantCode != "" {
				if got != nil {
					t.Fatalf("expected nil value, got %v", *got)
				}
				if errs["value"] != testCase.wantCode {
					t.Fatalf("expected code %q, got %q", testCase.wantCode, errs["value"])
				}
				return
			}
			if got == nil || *got != testCase.want {
				t.Fatalf("expected %v, got %v (errors %v)", testCase.want, got, errs)
			}
			if errs.HasErrors() {
				t.Fatalf("expected no errors, got %v", errs)
			}
		})
	}
}

func TestParseMeasurementBlankOptionalIsNotProvided(t *testing.T) {
	errs := FieldErrors{}
	if got := ParseMeasurement(errs, "weight", "", false); got != nil {
		t.Fatalf("expected nil for blank optional value, got %v", *got)
	}
	if errs.HasErrors() {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		raw      string
		want     int
		wantCode string
	}{
		{raw: "1", want: 1},
		{raw: "1000", want: 1000},
		{raw: "1.5", wantCode: FieldNotAnInteger},
		{raw: "0", wantCode: FieldOutOfRange},
		{raw: "1001", wantCode: FieldOutOfRange},
		{raw: "two", wantCode: FieldNotANumber},
	}

	for _, testCase := range tests {
		errs := FieldErrors{}
		got := ParseCount(errs, "testRound", testCase.raw, true)
		if testCase.wantCode != "" {
			if errs["testRound"] != testCase.wantCode {
				t.Fatalf("ParseCount(%q): expected %q, got %q", testCase.raw, testCase.wantCode, errs["testRound"])
			}
			continue
		}
		if got == nil || *got != testCase.want {
			t.Fatalf("ParseCount(%q): expected %d, got %v", testCase.raw, testCase.want, got)
		}
	}
}

func TestParseTimeSlot(t *testing.T) {
	tests := []struct {
		raw      string
		want     string
		wantCode string
	}{
		{raw: "07:30", want: "07:30"},
		{raw: "8:05", want: "08:05"},
		{raw: "23:59", want: "23:59"},
		{raw: "24:00", wantCode: FieldInvalidTime},
		{raw: "7:5", wantCode: FieldInvalidTime},
		{raw: "", wantCode: FieldRequired},
	}

	for _, testCase := range tests {
		errs := FieldErrors{}
		got := ParseTimeSlot(errs, "timeSlot", testCase.raw)
		if got != testCase.want || errs["timeSlot"] != testCase.wantCode {
			t.Fatalf("ParseTimeSlot(%q) = %q/%q, want %q/%q", testCase.raw, got, errs["timeSlot"], testCase.want, testCase.wantCode)
		}
	}
}

func TestParseRecordDateRejectsImpossibleDates(t *testing.T) {
	errs := FieldErrors{}
	if got := ParseRecordDate(errs, "date", "2026-02-30"); got != "" {
		t.Fatalf("expected empty date, got %q", got)
	}
	if errs["date"] != FieldInvalidDate {
		t.Fatalf("expected invalid_date, got %q", errs["date"])
	}
}

func TestLimitedTextCountsRunes(t *testing.T) {
	errs := FieldErrors{}
	if got := LimitedText(errs, "note", strings.Repeat("心", 5), 5); got != strings.Repeat("心", 5) {
		t.Fatalf("expected five runes to fit, got %q", got)
	}
	LimitedText(errs, "note", strings.Repeat("心", 6), 5)
	if errs["note"] != FieldTooLong {
		t.Fatalf("expected too_long, got %q", errs["note"])
	}
}

func TestFieldErrorsKeepFirstCode(t *testing.T) {
	errs := FieldErrors{}
	errs.Add("systolic", FieldRequired)
	errs.Add("systolic", FieldOutOfRange)
	if errs["systolic"] != FieldRequired {
		t.Fatalf("expected first code to win, got %q", errs["systolic"])
	}
	if FieldErrors(nil).Err() != nil {
		t.Fatal("expected nil error for empty field errors")
	}

	var asFieldErrors FieldErrors
	if !errors.As(errs.Err(), &asFieldErrors) {
		t.Fatal("expected Err to expose FieldErrors")
	}
}
