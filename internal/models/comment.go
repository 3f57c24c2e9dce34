package models

import "time"

const (
	CommentTargetHealthRecord = "health_record"
	CommentTargetBloodData    = "blood_data"
	CommentTargetCPX          = "cpx"
)

type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProviderID uint      `gorm:"not null;index" json:"providerId"`
	PatientID  uint      `gorm:"not null;index" json:"patientId"`
	TargetKind string    `gorm:"not null" json:"targetKind"`
	TargetID   uint      `gorm:"not null" json:"targetId"`
	Content    string    `gorm:"not null" json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

func IsValidCommentTarget(kind string) bool {
	switch kind {
	case CommentTargetHealthRecord, CommentTargetBloodData, CommentTargetCPX:
		return true
	default:
		return false
	}
}
