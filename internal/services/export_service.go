package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"github.com/terraincognita07/heartnote/internal/models"
)

var ErrExportLoadFailed = errors.New("load export data failed")

var ExportCSVHeaders = []string{
	"Date",
	"Time",
	"Systolic",
	"Diastolic",
	"Pulse",
	"Weight",
	"Exercise",
	"Exercise minutes",
	"Exercise intensity",
	"Staple",
	"Main dish",
	"Side dish",
	"Dairy",
	"Fruit",
	"Other food",
	"Salt conscious",
	"Medication taken",
	"Notes",
}

type ExportRecordReader interface {
	ListByUserRange(userID uint, from string, to string) ([]models.HealthRecord, error)
}

type ExportService struct {
	records ExportRecordReader
}

type ExportSummary struct {
	TotalEntries int    `json:"totalEntries"`
	HasData      bool   `json:"hasData"`
	DateFrom     string `json:"dateFrom"`
	DateTo       string `json:"dateTo"`
}

type ExportJSONEntry struct {
	Date            string               `json:"date"`
	TimeSlot        string               `json:"timeSlot"`
	Systolic        float64              `json:"systolic"`
	Diastolic       float64              `json:"diastolic"`
	Pulse           float64              `json:"pulse"`
	Weight          *float64             `json:"weight"`
	Exercise        models.ExerciseEntry `json:"exercise"`
	Meal            models.MealEntry     `json:"meal"`
	MedicationTaken bool                 `json:"medicationTaken"`
	Notes           string               `json:"notes"`
}

func NewExportService(records ExportRecordReader) *ExportService {
	return &ExportService{records: records}
}

func (service *ExportService) loadRecords(userID uint, from string, to string) ([]models.HealthRecord, error) {
	if err := ValidateRecordRange(from, to); err != nil {
		return nil, err
	}
	records, err := service.records.ListByUserRange(userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExportLoadFailed, err)
	}
	return records, nil
}

func (service *ExportService) BuildSummary(userID uint, from string, to string) (ExportSummary, error) {
	records, err := service.loadRecords(userID, from, to)
	if err != nil {
		return ExportSummary{}, err
	}
	if len(records) == 0 {
		return ExportSummary{}, nil
	}

	first := records[0].Date
	last := records[0].Date
	for _, record := range records[1:] {
		if record.Date < first {
			first = record.Date
		}
		if record.Date > last {
			last = record.Date
		}
	}

	return ExportSummary{
		TotalEntries: len(records),
		HasData:      true,
		DateFrom:     first,
		DateTo:       last,
	}, nil
}

func (service *ExportService) BuildJSONEntries(userID uint, from string, to string) ([]ExportJSONEntry, error) {
	records, err := service.loadRecords(userID, from, to)
	if err != nil {
		return nil, err
	}

	entries := make([]ExportJSONEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, ExportJSONEntry{
			Date:            record.Date,
			TimeSlot:        record.TimeSlot,
			Systolic:        record.Systolic,
			Diastolic:       record.Diastolic,
			Pulse:           record.Pulse,
			Weight:          record.Weight,
			Exercise:        record.Exercise.Data(),
			Meal:            record.Meal.Data(),
			MedicationTaken: record.MedicationTaken,
			Notes:           record.Notes,
		})
	}
	return entries, nil
}

// BuildCSV renders the records as CSV with a header row.
func (service *ExportService) BuildCSV(userID uint, from string, to string) ([]byte, error) {
	records, err := service.loadRecords(userID, from, to)
	if err != nil {
		return nil, err
	}

	var output bytes.Buffer
	writer := csv.NewWriter(&output)
	if err := writer.Write(ExportCSVHeaders); err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := writer.Write(exportCSVColumns(record)); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}

func exportCSVColumns(record models.HealthRecord) []string {
	exercise := record.Exercise.Data()
	meal := record.Meal.Data()

	minutes := ""
	if exercise.Minutes != nil {
		minutes = strconv.Itoa(*exercise.Minutes)
	}
	weight := ""
	if record.Weight != nil {
		weight = formatMeasurement(*record.Weight)
	}

	return []string{
		record.Date,
		record.TimeSlot,
		formatMeasurement(record.Systolic),
		formatMeasurement(record.Diastolic),
		formatMeasurement(record.Pulse),
		weight,
		exercise.Kind,
		minutes,
		exercise.Intensity,
		meal.Staple,
		meal.MainDish,
		meal.SideDish,
		meal.Dairy,
		meal.Fruit,
		meal.Other,
		csvYesNo(meal.SaltConscious),
		csvYesNo(record.MedicationTaken),
		record.Notes,
	}
}

func csvYesNo(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}
