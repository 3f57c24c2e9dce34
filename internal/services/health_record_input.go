package services

import (
	"github.com/terraincognita07/heartnote/internal/models"
	"gorm.io/datatypes"
)

const (
	MaxHealthRecordNotesLength = 2000
	maxDescriptorTextLength    = 200
)

type ExerciseInput struct {
	Kind      string
	Minutes   string
	Intensity string
}

type MealInput struct {
	Staple        string
	MainDish      string
	SideDish      string
	Dairy         string
	Fruit         string
	Other         string
	SaltConscious bool
}

// HealthRecordInput carries raw form values. Numbers stay strings until
// validation so "abc" and "" can be told apart from zero.
type HealthRecordInput struct {
	Date            string
	TimeSlot        string
	Systolic        string
	Diastolic       string
	Pulse           string
	Weight          string
	Exercise        ExerciseInput
	Meal            MealInput
	Notes           string
	MedicationTaken bool
}

// NormalizeHealthRecordInput validates every field and returns the record
// values without an owner. All field problems are returned together.
func NormalizeHealthRecordInput(input HealthRecordInput) (models.HealthRecord, error) {
	errs := FieldErrors{}

	record := models.HealthRecord{
		Date:            ParseRecordDate(errs, "date", input.Date),
		TimeSlot:        ParseTimeSlot(errs, "timeSlot", input.TimeSlot),
		Weight:          ParseMeasurement(errs, "weight", input.Weight, false),
		MedicationTaken: input.MedicationTaken,
	}
	if systolic := ParseMeasurement(errs, "systolic", input.Systolic, true); systolic != nil {
		record.Systolic = *systolic
	}
	if diastolic := ParseMeasurement(errs, "diastolic", input.Diastolic, true); diastolic != nil {
		record.Diastolic = *diastolic
	}
	if pulse := ParseMeasurement(errs, "pulse", input.Pulse, true); pulse != nil {
		record.Pulse = *pulse
	}

	record.Exercise = datatypes.NewJSONType(normalizeExerciseInput(errs, input.Exercise))
	record.Meal = datatypes.NewJSONType(normalizeMealInput(errs, input.Meal))
	record.Notes = TrimHealthRecordNotes(input.Notes)

	if err := errs.Err(); err != nil {
		return models.HealthRecord{}, err
	}
	return record, nil
}

func normalizeExerciseInput(errs FieldErrors, input ExerciseInput) models.ExerciseEntry {
	entry := models.ExerciseEntry{
		Kind:    LimitedText(errs, "exercise.kind", input.Kind, maxDescriptorTextLength),
		Minutes: ParseCount(errs, "exercise.minutes", input.Minutes, false),
	}

	intensity := trimLower(input.Intensity)
	switch intensity {
	case "", models.ExerciseIntensityLight, models.ExerciseIntensityModerate, models.ExerciseIntensityHard:
		entry.Intensity = intensity
	default:
		errs.Add("exercise.intensity", FieldInvalidChoice)
	}
	return entry
}

func normalizeMealInput(errs FieldErrors, input MealInput) models.MealEntry {
	return models.MealEntry{
		Staple:        LimitedText(errs, "meal.staple", input.Staple, maxDescriptorTextLength),
		MainDish:      LimitedText(errs, "meal.mainDish", input.MainDish, maxDescriptorTextLength),
		SideDish:      LimitedText(errs, "meal.sideDish", input.SideDish, maxDescriptorTextLength),
		Dairy:         LimitedText(errs, "meal.dairy", input.Dairy, maxDescriptorTextLength),
		Fruit:         LimitedText(errs, "meal.fruit", input.Fruit, maxDescriptorTextLength),
		Other:         LimitedText(errs, "meal.other", input.Other, maxDescriptorTextLength),
		SaltConscious: input.SaltConscious,
	}
}

func TrimHealthRecordNotes(value string) string {
	runes := []rune(value)
	if len(runes) <= MaxHealthRecordNotesLength {
		return value
	}
	return string(runes[:MaxHealthRecordNotesLength])
}
