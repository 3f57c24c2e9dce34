package db

import "gorm.io/gorm"

type Repositories struct {
	Users         *UserRepository
	Sessions      *SessionRepository
	HealthRecords *HealthRecordRepository
	BloodData     *BloodDataRepository
	Invites       *InviteRepository
	Comments      *CommentRepository
	Family        *FamilyRepository
}

func NewRepositories(database *gorm.DB) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(database),
		Sessions:      NewSessionRepository(database),
		HealthRecords: NewHealthRecordRepository(database),
		BloodData:     NewBloodDataRepository(database),
		Invites:       NewInviteRepository(database),
		Comments:      NewCommentRepository(database),
		Family:        NewFamilyRepository(database),
	}
}
