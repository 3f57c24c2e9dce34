package db

import (
	"time"

	"github.com/terraincognita07/heartnote/internal/models"
	"gorm.io/gorm"
)

type SessionRepository struct {
	database *gorm.DB
}

func NewSessionRepository(database *gorm.DB) *SessionRepository {
	return &SessionRepository{database: database}
}

func (repo *SessionRepository) Create(session *models.Session) error {
	return repo.database.Create(session).Error
}

func (repo *SessionRepository) FindByTokenID(tokenID string) (models.Session, bool, error) {
	var session models.Session
	result := repo.database.Where("token_id = ?", tokenID).Limit(1).Find(&session)
	if result.Error != nil {
		return models.Session{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Session{}, false, nil
	}
	return session, true, nil
}

func (repo *SessionRepository) Revoke(tokenID string, at time.Time) error {
	return repo.database.Model(&models.Session{}).
		Where("token_id = ? AND revoked_at IS NULL", tokenID).
		Update("revoked_at", at).Error
}

func (repo *SessionRepository) RevokeAllForUser(userID uint, at time.Time) error {
	return repo.database.Model(&models.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at).Error
}
