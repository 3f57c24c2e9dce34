package db

import (
	"github.com/terraincognita07/heartnote/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type HealthRecordRepository struct {
	database *gorm.DB
}

func NewHealthRecordRepository(database *gorm.DB) *HealthRecordRepository {
	return &HealthRecordRepository{database: database}
}

var healthRecordUpsertColumns = []string{
	"systolic",
	"diastolic",
	"pulse",
	"weight",
	"exercise",
	"meal",
	"notes",
	"medication_taken",
	"updated_at",
}

// UpsertBySlot writes the record in one INSERT ... ON CONFLICT statement keyed
// on (user_id, date, time_slot) and reloads the stored row into record.
func (repo *HealthRecordRepository) UpsertBySlot(record *models.HealthRecord) error {
	return repo.database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}, {Name: "time_slot"}},
			DoUpdates: clause.AssignmentColumns(healthRecordUpsertColumns),
		}).Create(record).Error; err != nil {
			return err
		}

		var stored models.HealthRecord
		if err := tx.
			Where("user_id = ? AND date = ? AND time_slot = ?", record.UserID, record.Date, record.TimeSlot).
			First(&stored).Error; err != nil {
			return err
		}
		*record = stored
		return nil
	})
}

func (repo *HealthRecordRepository) FindByID(recordID uint) (models.HealthRecord, bool, error) {
	var record models.HealthRecord
	result := repo.database.Where("id = ?", recordID).Limit(1).Find(&record)
	if result.Error != nil {
		return models.HealthRecord{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.HealthRecord{}, false, nil
	}
	return record, true, nil
}

func (repo *HealthRecordRepository) FindBySlot(userID uint, date string, timeSlot string) (models.HealthRecord, bool, error) {
	var record models.HealthRecord
	result := repo.database.
		Where("user_id = ? AND date = ? AND time_slot = ?", userID, date, timeSlot).
		Limit(1).
		Find(&record)
	if result.Error != nil {
		return models.HealthRecord{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.HealthRecord{}, false, nil
	}
	return record, true, nil
}

// ListByUserRange returns records ordered by date and slot. Empty bounds are
// open; both bounds are inclusive YYYY-MM-DD strings.
func (repo *HealthRecordRepository) ListByUserRange(userID uint, from string, to string) ([]models.HealthRecord, error) {
	query := repo.database.Model(&models.HealthRecord{}).Where("user_id = ?", userID)
	if from != "" {
		query = query.Where("date >= ?", from)
	}
	if to != "" {
		query = query.Where("date <= ?", to)
	}

	records := make([]models.HealthRecord, 0)
	if err := query.Order("date ASC, time_slot ASC, id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (repo *HealthRecordRepository) ExistsForUserOnDate(userID uint, date string) (bool, error) {
	var matched int64
	if err := repo.database.Model(&models.HealthRecord{}).
		Where("user_id = ? AND date = ?", userID, date).
		Count(&matched).Error; err != nil {
		return false, err
	}
	return matched > 0, nil
}

func (repo *HealthRecordRepository) Save(record *models.HealthRecord) error {
	return repo.database.Save(record).Error
}

func (repo *HealthRecordRepository) DeleteForUser(userID uint, recordID uint) (bool, error) {
	result := repo.database.Where("id = ? AND user_id = ?", recordID, userID).Delete(&models.HealthRecord{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
