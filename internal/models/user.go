package models

import "time"

const (
	RolePatient = "patient"
	RoleMedical = "medical"
)

type User struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Role               string    `gorm:"not null;default:patient" json:"role"`
	DisplayName        string    `gorm:"not null;default:''" json:"displayName"`
	Email              *string   `gorm:"uniqueIndex" json:"email,omitempty"`
	PasswordHash       string    `gorm:"not null;default:''" json:"-"`
	LineUserID         *string   `gorm:"uniqueIndex" json:"-"`
	MustChangePassword bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func IsValidRole(role string) bool {
	return role == RolePatient || role == RoleMedical
}

// PromoteRole returns the role a user ends up with after asking for requested.
// Roles only move from patient to medical; nothing demotes a medical account.
func PromoteRole(current string, requested string) string {
	if current == RoleMedical || requested == RoleMedical {
		return RoleMedical
	}
	return RolePatient
}
