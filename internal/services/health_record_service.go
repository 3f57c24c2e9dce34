package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/terraincognita07/heartnote/internal/models"
)

var (
	ErrHealthRecordNotFound     = errors.New("health record not found")
	ErrHealthRecordSlotTaken    = errors.New("health record slot taken")
	ErrHealthRecordLoadFailed   = errors.New("load health records failed")
	ErrHealthRecordSaveFailed   = errors.New("save health record failed")
	ErrHealthRecordDeleteFailed = errors.New("delete health record failed")
	ErrInvalidRecordRange       = errors.New("invalid record range")
)

// High blood pressure threshold for follower alerts.
const (
	HighSystolicThreshold  = 180
	HighDiastolicThreshold = 110
)

type HealthRecordRepository interface {
	UpsertBySlot(record *models.HealthRecord) error
	FindByID(recordID uint) (models.HealthRecord, bool, error)
	FindBySlot(userID uint, date string, timeSlot string) (models.HealthRecord, bool, error)
	ListByUserRange(userID uint, from string, to string) ([]models.HealthRecord, error)
	Save(record *models.HealthRecord) error
	DeleteForUser(userID uint, recordID uint) (bool, error)
}

type HealthRecordService struct {
	records HealthRecordRepository
}

func NewHealthRecordService(records HealthRecordRepository) *HealthRecordService {
	return &HealthRecordService{records: records}
}

func (service *HealthRecordService) ListRecords(userID uint, from string, to string) ([]models.HealthRecord, error) {
	if err := ValidateRecordRange(from, to); err != nil {
		return nil, err
	}
	records, err := service.records.ListByUserRange(userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHealthRecordLoadFailed, err)
	}
	return records, nil
}

// UpsertRecord stores the input under its (date, time slot) key, replacing
// whatever was there.
func (service *HealthRecordService) UpsertRecord(userID uint, input HealthRecordInput) (models.HealthRecord, error) {
	record, err := NormalizeHealthRecordInput(input)
	if err != nil {
		return models.HealthRecord{}, err
	}
	record.UserID = userID

	if err := service.records.UpsertBySlot(&record); err != nil {
		return models.HealthRecord{}, fmt.Errorf("%w: %w", ErrHealthRecordSaveFailed, err)
	}
	return record, nil
}

func (service *HealthRecordService) UpdateRecord(userID uint, recordID uint, input HealthRecordInput) (models.HealthRecord, error) {
	existing, err := service.findOwned(userID, recordID)
	if err != nil {
		return models.HealthRecord{}, err
	}

	values, err := NormalizeHealthRecordInput(input)
	if err != nil {
		return models.HealthRecord{}, err
	}

	if values.Date != existing.Date || values.TimeSlot != existing.TimeSlot {
		occupant, found, err := service.records.FindBySlot(userID, values.Date, values.TimeSlot)
		if err != nil {
			return models.HealthRecord{}, fmt.Errorf("%w: %w", ErrHealthRecordLoadFailed, err)
		}
		if found && occupant.ID != existing.ID {
			return models.HealthRecord{}, ErrHealthRecordSlotTaken
		}
	}

	values.ID = existing.ID
	values.UserID = existing.UserID
	values.CreatedAt = existing.CreatedAt
	if err := service.records.Save(&values); err != nil {
		return models.HealthRecord{}, fmt.Errorf("%w: %w", ErrHealthRecordSaveFailed, err)
	}
	return values, nil
}

func (service *HealthRecordService) DeleteRecord(userID uint, recordID uint) error {
	deleted, err := service.records.DeleteForUser(userID, recordID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHealthRecordDeleteFailed, err)
	}
	if !deleted {
		return ErrHealthRecordNotFound
	}
	return nil
}

func (service *HealthRecordService) findOwned(userID uint, recordID uint) (models.HealthRecord, error) {
	record, found, err := service.records.FindByID(recordID)
	if err != nil {
		return models.HealthRecord{}, fmt.Errorf("%w: %w", ErrHealthRecordLoadFailed, err)
	}
	if !found || record.UserID != userID {
		return models.HealthRecord{}, ErrHealthRecordNotFound
	}
	return record, nil
}

func (service *HealthRecordService) BuildCalendar(userID uint, monthStart time.Time, now time.Time, location *time.Location) ([]CalendarDayState, error) {
	gridStart, gridEnd := CalendarGridBounds(monthStart)
	records, err := service.records.ListByUserRange(userID, gridStart.Format(recordDateLayout), gridEnd.Format(recordDateLayout))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHealthRecordLoadFailed, err)
	}
	return BuildCalendarDayStates(monthStart, records, now, location), nil
}

func (service *HealthRecordService) BuildTrends(userID uint, from string, to string) ([]TrendPoint, error) {
	records, err := service.ListRecords(userID, from, to)
	if err != nil {
		return nil, err
	}
	return BuildTrendPoints(records), nil
}

// ValidateRecordRange accepts blank bounds as open and rejects reversed ranges.
func ValidateRecordRange(from string, to string) error {
	if from != "" && !IsRecordDate(from) {
		return ErrInvalidRecordRange
	}
	if to != "" && !IsRecordDate(to) {
		return ErrInvalidRecordRange
	}
	if from != "" && to != "" && from > to {
		return ErrInvalidRecordRange
	}
	return nil
}

func IsHighBloodPressure(record models.HealthRecord) bool {
	return record.Systolic > HighSystolicThreshold || record.Diastolic > HighDiastolicThreshold
}
