package models

import "time"

type FamilyInvite struct {
	ID        uint      `gorm:"primaryKey"`
	PatientID uint      `gorm:"not null;index"`
	TokenHash string    `gorm:"not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null"`
	UsedAt    *time.Time
	CreatedAt time.Time
}

type FamilyMember struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	PatientID            uint      `gorm:"not null;uniqueIndex:uidx_family_members_pair" json:"patientId"`
	MemberUserID         uint      `gorm:"not null;uniqueIndex:uidx_family_members_pair" json:"memberUserId"`
	DisplayName          string    `gorm:"not null;default:''" json:"displayName"`
	Relationship         string    `gorm:"not null;default:''" json:"relationship"`
	ReceiveNotifications bool      `gorm:"not null" json:"receiveNotifications"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}
