package services

import "github.com/terraincognita07/heartnote/internal/models"

func IsPatientUser(user *models.User) bool {
	return user != nil && user.Role == models.RolePatient
}

func IsMedicalUser(user *models.User) bool {
	return user != nil && user.Role == models.RoleMedical
}

// SanitizeRecordForFamily hides the patient's private notes from relatives.
func SanitizeRecordForFamily(record models.HealthRecord) models.HealthRecord {
	record.Notes = ""
	return record
}

func SanitizeRecordsForFamily(records []models.HealthRecord) {
	for index := range records {
		records[index] = SanitizeRecordForFamily(records[index])
	}
}
