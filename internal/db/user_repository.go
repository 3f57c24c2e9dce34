package db

import (
	"strings"

	"github.com/terraincognita07/heartnote/internal/models"
	"gorm.io/gorm"
)

type UserRepository struct {
	database *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{database: database}
}

func (repo *UserRepository) FindByID(userID uint) (models.User, error) {
	var user models.User
	if err := repo.database.First(&user, userID).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (repo *UserRepository) FindByIDs(userIDs []uint) ([]models.User, error) {
	users := make([]models.User, 0, len(userIDs))
	if len(userIDs) == 0 {
		return users, nil
	}
	if err := repo.database.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (repo *UserRepository) FindByNormalizedEmail(email string) (models.User, error) {
	var user models.User
	if err := repo.database.Where("lower(trim(email)) = ?", email).First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (repo *UserRepository) ExistsByNormalizedEmail(email string) (bool, error) {
	var matched int64
	if err := repo.database.Model(&models.User{}).
		Where("lower(trim(email)) = ?", email).
		Count(&matched).Error; err != nil {
		return false, err
	}
	return matched > 0, nil
}

func (repo *UserRepository) FindByLineUserID(lineUserID string) (models.User, bool, error) {
	var user models.User
	result := repo.database.Where("line_user_id = ?", lineUserID).Limit(1).Find(&user)
	if result.Error != nil {
		return models.User{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.User{}, false, nil
	}
	return user, true, nil
}

func (repo *UserRepository) Create(user *models.User) error {
	return repo.database.Create(user).Error
}

func (repo *UserRepository) Save(user *models.User) error {
	return repo.database.Save(user).Error
}

func (repo *UserRepository) UpdateRole(userID uint, role string) error {
	return repo.database.Model(&models.User{}).Where("id = ?", userID).Update("role", role).Error
}

func (repo *UserRepository) UpdatePassword(userID uint, passwordHash string, mustChangePassword bool) error {
	return repo.database.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"password_hash":        passwordHash,
		"must_change_password": mustChangePassword,
	}).Error
}

// SearchPatientsByName matches a case-insensitive substring of the display
// name. LIKE wildcards in the fragment are matched literally.
func (repo *UserRepository) SearchPatientsByName(fragment string, limit int) ([]models.User, error) {
	pattern := "%" + escapeLikePattern(strings.ToLower(fragment)) + "%"
	users := make([]models.User, 0)
	query := repo.database.
		Where("role = ? AND lower(display_name) LIKE ? ESCAPE '\\'", models.RolePatient, pattern).
		Order("display_name ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (repo *UserRepository) ListPatientsWithLineIdentity() ([]models.User, error) {
	users := make([]models.User, 0)
	if err := repo.database.
		Where("role = ? AND line_user_id IS NOT NULL AND line_user_id <> ''", models.RolePatient).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func escapeLikePattern(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
