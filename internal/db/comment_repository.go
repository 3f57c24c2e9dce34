package db

import (
	"github.com/terraincognita07/heartnote/internal/models"
	"gorm.io/gorm"
)

type CommentRepository struct {
	database *gorm.DB
}

func NewCommentRepository(database *gorm.DB) *CommentRepository {
	return &CommentRepository{database: database}
}

func (repo *CommentRepository) Create(comment *models.Comment) error {
	return repo.database.Create(comment).Error
}

func (repo *CommentRepository) ListByPatient(patientID uint) ([]models.Comment, error) {
	comments := make([]models.Comment, 0)
	if err := repo.database.
		Where("patient_id = ?", patientID).
		Order("created_at DESC, id DESC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
