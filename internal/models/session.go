package models

import "time"

type Session struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index"`
	TokenID   string    `gorm:"not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null"`
	RevokedAt *time.Time
	CreatedAt time.Time
}

func (session Session) ActiveAt(now time.Time) bool {
	return session.RevokedAt == nil && now.Before(session.ExpiresAt)
}
