package models

import "time"

const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusDeclined = "declined"
)

type Invite struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ProviderID  uint       `gorm:"not null;index:idx_invites_pair" json:"providerId"`
	PatientID   uint       `gorm:"not null;index:idx_invites_pair" json:"patientId"`
	Status      string     `gorm:"not null;default:pending" json:"status"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
