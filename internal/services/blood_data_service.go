package services

import (
	"errors"
	"fmt"

	"github.com/terraincognita07/heartnote/internal/models"
)

var (
	ErrBloodDataNotFound     = errors.New("blood data not found")
	ErrCPXNotFound           = errors.New("cpx test not found")
	ErrBloodDataLoadFailed   = errors.New("load blood data failed")
	ErrBloodDataSaveFailed   = errors.New("save blood data failed")
	ErrBloodDataDeleteFailed = errors.New("delete blood data failed")
)

type BloodDataRepository interface {
	ListByUser(userID uint) ([]models.BloodData, error)
	FindByID(entryID uint) (models.BloodData, bool, error)
	Create(entry *models.BloodData) error
	Save(entry *models.BloodData) error
	DeleteForUser(userID uint, entryID uint) (bool, error)
	FindCPXForUser(userID uint, cpxID uint) (models.CPXTest, bool, error)
	CreateCPX(test *models.CPXTest) error
	SaveCPX(test *models.CPXTest) error
	DeleteCPX(cpxID uint) error
}

type BloodDataService struct {
	entries BloodDataRepository
}

func NewBloodDataService(entries BloodDataRepository) *BloodDataService {
	return &BloodDataService{entries: entries}
}

func (service *BloodDataService) ListEntries(userID uint) ([]models.BloodData, error) {
	entries, err := service.entries.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBloodDataLoadFailed, err)
	}
	return entries, nil
}

func (service *BloodDataService) CreateEntry(userID uint, input BloodDataInput) (models.BloodData, error) {
	entry, err := NormalizeBloodDataInput(input)
	if err != nil {
		return models.BloodData{}, err
	}
	entry.UserID = userID
	if err := service.entries.Create(&entry); err != nil {
		return models.BloodData{}, fmt.Errorf("%w: %w", ErrBloodDataSaveFailed, err)
	}
	entry.CPXTests = []models.CPXTest{}
	return entry, nil
}

func (service *BloodDataService) UpdateEntry(userID uint, entryID uint, input BloodDataInput) (models.BloodData, error) {
	existing, err := service.FindOwnedEntry(userID, entryID)
	if err != nil {
		return models.BloodData{}, err
	}

	values, err := NormalizeBloodDataInput(input)
	if err != nil {
		return models.BloodData{}, err
	}
	values.ID = existing.ID
	values.UserID = existing.UserID
	values.CreatedAt = existing.CreatedAt
	if err := service.entries.Save(&values); err != nil {
		return models.BloodData{}, fmt.Errorf("%w: %w", ErrBloodDataSaveFailed, err)
	}
	values.CPXTests = existing.CPXTests
	if values.CPXTests == nil {
		values.CPXTests = []models.CPXTest{}
	}
	return values, nil
}

// DeleteEntry removes a lab entry together with its CPX rows.
func (service *BloodDataService) DeleteEntry(userID uint, entryID uint) error {
	deleted, err := service.entries.DeleteForUser(userID, entryID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBloodDataDeleteFailed, err)
	}
	if !deleted {
		return ErrBloodDataNotFound
	}
	return nil
}

func (service *BloodDataService) FindOwnedEntry(userID uint, entryID uint) (models.BloodData, error) {
	entry, found, err := service.entries.FindByID(entryID)
	if err != nil {
		return models.BloodData{}, fmt.Errorf("%w: %w", ErrBloodDataLoadFailed, err)
	}
	if !found || entry.UserID != userID {
		return models.BloodData{}, ErrBloodDataNotFound
	}
	return entry, nil
}

func (service *BloodDataService) FindOwnedCPX(userID uint, cpxID uint) (models.CPXTest, error) {
	test, found, err := service.entries.FindCPXForUser(userID, cpxID)
	if err != nil {
		return models.CPXTest{}, fmt.Errorf("%w: %w", ErrBloodDataLoadFailed, err)
	}
	if !found {
		return models.CPXTest{}, ErrCPXNotFound
	}
	return test, nil
}

func (service *BloodDataService) CreateCPX(userID uint, input CPXInput) (models.CPXTest, error) {
	if input.BloodDataID == 0 {
		errs := FieldErrors{}
		errs.Add("bloodDataId", FieldRequired)
		if _, err := NormalizeCPXInput(input); err != nil {
			var fieldErrs FieldErrors
			if errors.As(err, &fieldErrs) {
				for field, code := range fieldErrs {
					errs.Add(field, code)
				}
			}
		}
		return models.CPXTest{}, errs
	}

	test, err := NormalizeCPXInput(input)
	if err != nil {
		return models.CPXTest{}, err
	}
	if _, err := service.FindOwnedEntry(userID, input.BloodDataID); err != nil {
		return models.CPXTest{}, err
	}
	if err := service.entries.CreateCPX(&test); err != nil {
		return models.CPXTest{}, fmt.Errorf("%w: %w", ErrBloodDataSaveFailed, err)
	}
	return test, nil
}

// UpdateCPX rewrites the measurements of a CPX row. The parent entry never
// changes.
func (service *BloodDataService) UpdateCPX(userID uint, cpxID uint, input CPXInput) (models.CPXTest, error) {
	existing, err := service.FindOwnedCPX(userID, cpxID)
	if err != nil {
		return models.CPXTest{}, err
	}

	input.BloodDataID = existing.BloodDataID
	values, err := NormalizeCPXInput(input)
	if err != nil {
		return models.CPXTest{}, err
	}
	values.ID = existing.ID
	values.CreatedAt = existing.CreatedAt
	if err := service.entries.SaveCPX(&values); err != nil {
		return models.CPXTest{}, fmt.Errorf("%w: %w", ErrBloodDataSaveFailed, err)
	}
	return values, nil
}

func (service *BloodDataService) DeleteCPX(userID uint, cpxID uint) error {
	if _, err := service.FindOwnedCPX(userID, cpxID); err != nil {
		return err
	}
	if err := service.entries.DeleteCPX(cpxID); err != nil {
		return fmt.Errorf("%w: %w", ErrBloodDataDeleteFailed, err)
	}
	return nil
}
