package services

import (
	"math"
	"sort"
	"time"

	"github.com/terraincognita07/heartnote/internal/models"
)

const calendarGridDays = 42

type CalendarDayState struct {
	Date            string   `json:"date"`
	Day             int      `json:"day"`
	InMonth         bool     `json:"inMonth"`
	IsToday         bool     `json:"isToday"`
	HasData         bool     `json:"hasData"`
	RecordCount     int      `json:"recordCount"`
	TimeSlots       []string `json:"timeSlots"`
	MinSystolic     *float64 `json:"minSystolic,omitempty"`
	MaxSystolic     *float64 `json:"maxSystolic,omitempty"`
	AveragePulse    *float64 `json:"averagePulse,omitempty"`
	MedicationTaken bool     `json:"medicationTaken"`
}

type TrendPoint struct {
	Date      string   `json:"date"`
	Count     int      `json:"count"`
	Systolic  float64  `json:"systolic"`
	Diastolic float64  `json:"diastolic"`
	Pulse     float64  `json:"pulse"`
	Weight    *float64 `json:"weight,omitempty"`
}

// CalendarGridBounds returns the first and last day of the six week grid that
// shows monthStart's month, starting on a Sunday.
func CalendarGridBounds(monthStart time.Time) (time.Time, time.Time) {
	gridStart := monthStart.AddDate(0, 0, -int(monthStart.Weekday()))
	return gridStart, gridStart.AddDate(0, 0, calendarGridDays-1)
}

type calendarDayAggregate struct {
	count         int
	slots         []string
	minSystolic   float64
	maxSystolic   float64
	pulseTotal    float64
	allMedication bool
}

func BuildCalendarDayStates(monthStart time.Time, records []models.HealthRecord, now time.Time, location *time.Location) []CalendarDayState {
	gridStart, gridEnd := CalendarGridBounds(monthStart)

	aggregates := make(map[string]*calendarDayAggregate)
	for _, record := range records {
		aggregate, exists := aggregates[record.Date]
		if !exists {
			aggregate = &calendarDayAggregate{
				minSystolic:   record.Systolic,
				maxSystolic:   record.Systolic,
				allMedication: true,
			}
			aggregates[record.Date] = aggregate
		}
		aggregate.count++
		aggregate.slots = append(aggregate.slots, record.TimeSlot)
		aggregate.minSystolic = math.Min(aggregate.minSystolic, record.Systolic)
		aggregate.maxSystolic = math.Max(aggregate.maxSystolic, record.Systolic)
		aggregate.pulseTotal += record.Pulse
		aggregate.allMedication = aggregate.allMedication && record.MedicationTaken
	}

	todayKey := TodayKey(now, location)

	days := make([]CalendarDayState, 0, calendarGridDays)
	for day := gridStart; !day.After(gridEnd); day = day.AddDate(0, 0, 1) {
		key := day.Format(recordDateLayout)
		state := CalendarDayState{
			Date:      key,
			Day:       day.Day(),
			InMonth:   day.Month() == monthStart.Month(),
			IsToday:   key == todayKey,
			TimeSlots: []string{},
		}

		if aggregate, ok := aggregates[key]; ok {
			sort.Strings(aggregate.slots)
			minSystolic := aggregate.minSystolic
			maxSystolic := aggregate.maxSystolic
			averagePulse := roundTenth(aggregate.pulseTotal / float64(aggregate.count))

			state.HasData = true
			state.RecordCount = aggregate.count
			state.TimeSlots = aggregate.slots
			state.MinSystolic = &minSystolic
			state.MaxSystolic = &maxSystolic
			state.AveragePulse = &averagePulse
			state.MedicationTaken = aggregate.allMedication
		}

		days = append(days, state)
	}

	return days
}

// BuildTrendPoints averages records per day. Weight is averaged over the
// records that carry one. records must be ordered by date.
func BuildTrendPoints(records []models.HealthRecord) []TrendPoint {
	points := make([]TrendPoint, 0)

	var (
		current     *TrendPoint
		weightTotal float64
		weightCount int
	)
	flush := func() {
		if current == nil {
			return
		}
		count := float64(current.Count)
		current.Systolic = roundTenth(current.Systolic / count)
		current.Diastolic = roundTenth(current.Diastolic / count)
		current.Pulse = roundTenth(current.Pulse / count)
		if weightCount > 0 {
			weight := roundTenth(weightTotal / float64(weightCount))
			current.Weight = &weight
		}
		points = append(points, *current)
	}

	for _, record := range records {
		if current == nil || current.Date != record.Date {
			flush()
			current = &TrendPoint{Date: record.Date}
			weightTotal = 0
			weightCount = 0
		}
		current.Count++
		current.Systolic += record.Systolic
		current.Diastolic += record.Diastolic
		current.Pulse += record.Pulse
		if record.Weight != nil {
			weightTotal += *record.Weight
			weightCount++
		}
	}
	flush()

	return points
}

func roundTenth(value float64) float64 {
	return math.Round(value*10) / 10
}
