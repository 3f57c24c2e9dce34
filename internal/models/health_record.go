package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ExerciseIntensityLight    = "light"
	ExerciseIntensityModerate = "moderate"
	ExerciseIntensityHard     = "hard"
)

type ExerciseEntry struct {
	Kind      string `json:"kind,omitempty"`
	Minutes   *int   `json:"minutes,omitempty"`
	Intensity string `json:"intensity,omitempty"`
}

type MealEntry struct {
	Staple        string `json:"staple,omitempty"`
	MainDish      string `json:"mainDish,omitempty"`
	SideDish      string `json:"sideDish,omitempty"`
	Dairy         string `json:"dairy,omitempty"`
	Fruit         string `json:"fruit,omitempty"`
	Other         string `json:"other,omitempty"`
	SaltConscious bool   `json:"saltConscious,omitempty"`
}

// HealthRecord is one vitals entry. Date is stored as YYYY-MM-DD in the
// patient's calendar and TimeSlot as HH:MM, so (UserID, Date, TimeSlot) is the
// natural key.
type HealthRecord struct {
	ID              uint                              `gorm:"primaryKey" json:"id"`
	UserID          uint                              `gorm:"not null;uniqueIndex:uidx_health_records_slot" json:"userId"`
	Date            string                            `gorm:"not null;uniqueIndex:uidx_health_records_slot" json:"date"`
	TimeSlot        string                            `gorm:"not null;uniqueIndex:uidx_health_records_slot" json:"timeSlot"`
	Systolic        float64                           `gorm:"not null" json:"systolic"`
	Diastolic       float64                           `gorm:"not null" json:"diastolic"`
	Pulse           float64                           `gorm:"not null" json:"pulse"`
	Weight          *float64                          `json:"weight"`
	Exercise        datatypes.JSONType[ExerciseEntry] `json:"exercise"`
	Meal            datatypes.JSONType[MealEntry]     `json:"meal"`
	Notes           string                            `gorm:"not null;default:''" json:"notes"`
	MedicationTaken bool                              `gorm:"not null;default:false" json:"medicationTaken"`
	CreatedAt       time.Time                         `json:"createdAt"`
	UpdatedAt       time.Time                         `json:"updatedAt"`
}
