package services

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	FieldRequired      = "required"
	FieldNotANumber    = "not_a_number"
	FieldOutOfRange    = "out_of_range"
	FieldNotAnInteger  = "not_an_integer"
	FieldInvalidDate   = "invalid_date"
	FieldInvalidTime   = "invalid_time"
	FieldTooLong       = "too_long"
	FieldInvalidChoice = "invalid_choice"
)

// MaxMeasurementValue is the inclusive ceiling for every vital and lab value.
// The floor is exclusive zero.
const MaxMeasurementValue = 1000

const recordDateLayout = "2006-01-02"

var timeSlotPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// FieldErrors collects one error code per input field so a client can mark
// every invalid field from a single response.
type FieldErrors map[string]string

func (errs FieldErrors) Add(field string, code string) {
	if _, exists := errs[field]; exists {
		return
	}
	errs[field] = code
}

func (errs FieldErrors) HasErrors() bool {
	return len(errs) > 0
}

func (errs FieldErrors) Error() string {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+errs[field])
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

// Err returns errs as an error, or nil when nothing was collected.
func (errs FieldErrors) Err() error {
	if !errs.HasErrors() {
		return nil
	}
	return errs
}

// ParseMeasurement reads a bounded numeric field. Blank input is "not
// provided": nil, or a required error when the field is mandatory.
func ParseMeasurement(errs FieldErrors, field string, raw string, required bool) *float64 {
	value := strings.TrimSpace(raw)
	if value == "" {
		if required {
			errs.Add(field, FieldRequired)
		}
		return nil
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		errs.Add(field, FieldNotANumber)
		return nil
	}
	if parsed <= 0 || parsed > MaxMeasurementValue {
		errs.Add(field, FieldOutOfRange)
		return nil
	}
	return &parsed
}

// ParseCount reads an integer-only field such as a test round or minutes.
func ParseCount(errs FieldErrors, field string, raw string, required bool) *int {
	value := strings.TrimSpace(raw)
	if value == "" {
		if required {
			errs.Add(field, FieldRequired)
		}
		return nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		if asFloat, floatErr := strconv.ParseFloat(value, 64); floatErr == nil && !math.IsNaN(asFloat) && !math.IsInf(asFloat, 0) {
			errs.Add(field, FieldNotAnInteger)
		} else {
			errs.Add(field, FieldNotANumber)
		}
		return nil
	}
	if parsed < 1 || parsed > MaxMeasurementValue {
		errs.Add(field, FieldOutOfRange)
		return nil
	}
	return &parsed
}

func ParseRecordDate(errs FieldErrors, field string, raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		errs.Add(field, FieldRequired)
		return ""
	}
	parsed, err := time.Parse(recordDateLayout, value)
	if err != nil {
		errs.Add(field, FieldInvalidDate)
		return ""
	}
	return parsed.Format(recordDateLayout)
}

func ParseTimeSlot(errs FieldErrors, field string, raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		errs.Add(field, FieldRequired)
		return ""
	}
	if len(value) == 4 && value[1] == ':' {
		value = "0" + value
	}
	if !timeSlotPattern.MatchString(value) {
		errs.Add(field, FieldInvalidTime)
		return ""
	}
	return value
}

func LimitedText(errs FieldErrors, field string, raw string, maxRunes int) string {
	value := strings.TrimSpace(raw)
	if utf8.RuneCountInString(value) > maxRunes {
		errs.Add(field, FieldTooLong)
		return ""
	}
	return value
}

// IsRecordDate reports whether value is a YYYY-MM-DD date. Used for optional
// range filters where a bad value is a request error rather than a field error.
func IsRecordDate(value string) bool {
	_, err := time.Parse(recordDateLayout, value)
	return err == nil
}
