package db

import (
	"time"

	"github.com/terraincognita07/heartnote/internal/models"
	"gorm.io/gorm"
)

type FamilyRepository struct {
	database *gorm.DB
}

func NewFamilyRepository(database *gorm.DB) *FamilyRepository {
	return &FamilyRepository{database: database}
}

func (repo *FamilyRepository) CreateInvite(invite *models.FamilyInvite) error {
	return repo.database.Create(invite).Error
}

func (repo *FamilyRepository) FindInviteByTokenHash(tokenHash string) (models.FamilyInvite, bool, error) {
	var invite models.FamilyInvite
	result := repo.database.Where("token_hash = ?", tokenHash).Limit(1).Find(&invite)
	if result.Error != nil {
		return models.FamilyInvite{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.FamilyInvite{}, false, nil
	}
	return invite, true, nil
}

// RedeemInvite marks the invite used and creates the member row in one
// transaction. It reports false without writing anything when the invite was
// already used.
func (repo *FamilyRepository) RedeemInvite(inviteID uint, member *models.FamilyMember, usedAt time.Time) (bool, error) {
	redeemed := false
	err := repo.database.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.FamilyInvite{}).
			Where("id = ? AND used_at IS NULL", inviteID).
			Update("used_at", usedAt)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		redeemed = true
		return nil
	})
	return redeemed, err
}

func (repo *FamilyRepository) IsLinked(patientID uint, memberUserID uint) (bool, error) {
	var matched int64
	if err := repo.database.Model(&models.FamilyMember{}).
		Where("patient_id = ? AND member_user_id = ?", patientID, memberUserID).
		Count(&matched).Error; err != nil {
		return false, err
	}
	return matched > 0, nil
}

func (repo *FamilyRepository) ListMembersByPatient(patientID uint) ([]models.FamilyMember, error) {
	members := make([]models.FamilyMember, 0)
	if err := repo.database.
		Where("patient_id = ?", patientID).
		Order("created_at ASC, id ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (repo *FamilyRepository) ListMembershipsByMember(memberUserID uint) ([]models.FamilyMember, error) {
	members := make([]models.FamilyMember, 0)
	if err := repo.database.
		Where("member_user_id = ?", memberUserID).
		Order("created_at ASC, id ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (repo *FamilyRepository) FindMemberByID(memberID uint) (models.FamilyMember, bool, error) {
	var member models.FamilyMember
	result := repo.database.Where("id = ?", memberID).Limit(1).Find(&member)
	if result.Error != nil {
		return models.FamilyMember{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.FamilyMember{}, false, nil
	}
	return member, true, nil
}

func (repo *FamilyRepository) SaveMember(member *models.FamilyMember) error {
	return repo.database.Save(member).Error
}
