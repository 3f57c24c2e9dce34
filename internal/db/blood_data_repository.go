package db

import (
	"github.com/terraincognita07/heartnote/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BloodDataRepository struct {
	database *gorm.DB
}

func NewBloodDataRepository(database *gorm.DB) *BloodDataRepository {
	return &BloodDataRepository{database: database}
}

func orderCPXTests(tx *gorm.DB) *gorm.DB {
	return tx.Order("test_round ASC, id ASC")
}

func (repo *BloodDataRepository) ListByUser(userID uint) ([]models.BloodData, error) {
	entries := make([]models.BloodData, 0)
	if err := repo.database.
		Preload("CPXTests", orderCPXTests).
		Where("user_id = ?", userID).
		Order("test_date DESC, id DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (repo *BloodDataRepository) FindByID(entryID uint) (models.BloodData, bool, error) {
	var entry models.BloodData
	result := repo.database.Preload("CPXTests", orderCPXTests).Where("id = ?", entryID).Limit(1).Find(&entry)
	if result.Error != nil {
		return models.BloodData{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.BloodData{}, false, nil
	}
	return entry, true, nil
}

func (repo *BloodDataRepository) Create(entry *models.BloodData) error {
	return repo.database.Omit(clause.Associations).Create(entry).Error
}

func (repo *BloodDataRepository) Save(entry *models.BloodData) error {
	return repo.database.Omit(clause.Associations).Save(entry).Error
}

func (repo *BloodDataRepository) DeleteForUser(userID uint, entryID uint) (bool, error) {
	deleted := false
	err := repo.database.Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&models.BloodData{}).
			Where("id = ? AND user_id = ?", entryID, userID).
			Count(&owned).Error; err != nil {
			return err
		}
		if owned == 0 {
			return nil
		}
		if err := tx.Where("blood_data_id = ?", entryID).Delete(&models.CPXTest{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.BloodData{}, entryID).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// FindCPXForUser loads a CPX row only when its parent lab entry belongs to userID.
func (repo *BloodDataRepository) FindCPXForUser(userID uint, cpxID uint) (models.CPXTest, bool, error) {
	var test models.CPXTest
	result := repo.database.
		Joins("JOIN blood_data ON blood_data.id = cpx_tests.blood_data_id").
		Where("cpx_tests.id = ? AND blood_data.user_id = ?", cpxID, userID).
		Limit(1).
		Find(&test)
	if result.Error != nil {
		return models.CPXTest{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.CPXTest{}, false, nil
	}
	return test, true, nil
}

func (repo *BloodDataRepository) CreateCPX(test *models.CPXTest) error {
	return repo.database.Create(test).Error
}

func (repo *BloodDataRepository) SaveCPX(test *models.CPXTest) error {
	return repo.database.Save(test).Error
}

func (repo *BloodDataRepository) DeleteCPX(cpxID uint) error {
	return repo.database.Delete(&models.CPXTest{}, cpxID).Error
}
