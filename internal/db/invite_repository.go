package db

import (
	"time"

	"github.com/terraincognita07/heartnote/internal/models"
	"gorm.io/gorm"
)

type InviteRepository struct {
	database *gorm.DB
}

func NewInviteRepository(database *gorm.DB) *InviteRepository {
	return &InviteRepository{database: database}
}

func (repo *InviteRepository) Create(invite *models.Invite) error {
	return repo.database.Create(invite).Error
}

func (repo *InviteRepository) FindByID(inviteID uint) (models.Invite, bool, error) {
	var invite models.Invite
	result := repo.database.Where("id = ?", inviteID).Limit(1).Find(&invite)
	if result.Error != nil {
		return models.Invite{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Invite{}, false, nil
	}
	return invite, true, nil
}

func (repo *InviteRepository) ExistsWithStatus(providerID uint, patientID uint, statuses ...string) (bool, error) {
	var matched int64
	if err := repo.database.Model(&models.Invite{}).
		Where("provider_id = ? AND patient_id = ? AND status IN ?", providerID, patientID, statuses).
		Count(&matched).Error; err != nil {
		return false, err
	}
	return matched > 0, nil
}

func (repo *InviteRepository) ListByPatient(patientID uint, status string) ([]models.Invite, error) {
	query := repo.database.Where("patient_id = ?", patientID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	invites := make([]models.Invite, 0)
	if err := query.Order("created_at DESC, id DESC").Find(&invites).Error; err != nil {
		return nil, err
	}
	return invites, nil
}

func (repo *InviteRepository) ListByProvider(providerID uint) ([]models.Invite, error) {
	invites := make([]models.Invite, 0)
	if err := repo.database.
		Where("provider_id = ?", providerID).
		Order("created_at DESC, id DESC").
		Find(&invites).Error; err != nil {
		return nil, err
	}
	return invites, nil
}

// ListByProviderAndPatients returns every invite the provider sent to any of
// patientIDs, newest first.
func (repo *InviteRepository) ListByProviderAndPatients(providerID uint, patientIDs []uint) ([]models.Invite, error) {
	invites := make([]models.Invite, 0)
	if len(patientIDs) == 0 {
		return invites, nil
	}
	if err := repo.database.
		Where("provider_id = ? AND patient_id IN ?", providerID, patientIDs).
		Order("id DESC").
		Find(&invites).Error; err != nil {
		return nil, err
	}
	return invites, nil
}

// TransitionStatus moves an invite out of fromStatus. It reports false when
// the row was not in fromStatus anymore, so two concurrent responses cannot
// both win.
func (repo *InviteRepository) TransitionStatus(inviteID uint, fromStatus string, toStatus string, at time.Time) (bool, error) {
	result := repo.database.Model(&models.Invite{}).
		Where("id = ? AND status = ?", inviteID, fromStatus).
		Updates(map[string]any{
			"status":       toStatus,
			"responded_at": at,
			"updated_at":   at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
