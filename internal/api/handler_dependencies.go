package api

import (
	"github.com/terraincognita07/heartnote/internal/db"
	"github.com/terraincognita07/heartnote/internal/services"
)

func (handler *Handler) wireServices(options Options) {
	repositories := db.NewRepositories(handler.db)
	handler.repositories = repositories

	// A nil *line.Client must reach the services as a nil interface.
	var (
		lineVerifier services.LineTokenVerifier
		lineAuth     services.LineAuthClient
		linePusher   services.LinePusher
	)
	if options.LineClient != nil {
		lineVerifier = options.LineClient
		lineAuth = options.LineClient
		linePusher = options.LineClient
	}

	handler.identityService = services.NewIdentityService(repositories.Sessions, repositories.Users, lineVerifier)
	handler.authService = services.NewAuthService(repositories.Users, repositories.Sessions, lineAuth)
	handler.directoryService = services.NewDirectoryService(repositories.Users, repositories.Invites)
	handler.consentService = services.NewConsentService(repositories.Invites, repositories.Users)
	handler.commentService = services.NewCommentService(
		repositories.Comments,
		handler.consentService,
		repositories.HealthRecords,
		repositories.BloodData,
		repositories.Users,
	)
	handler.healthRecordService = services.NewHealthRecordService(repositories.HealthRecords)
	handler.bloodDataService = services.NewBloodDataService(repositories.BloodData)
	handler.familyService = services.NewFamilyService(repositories.Family, repositories.Users, options.FamilyInviteTTL)
	handler.exportService = services.NewExportService(repositories.HealthRecords)
	handler.notificationService = services.NewNotificationService(
		linePusher,
		handler.i18n,
		repositories.Users,
		repositories.HealthRecords,
		repositories.Family,
		handler.logger,
		services.NotificationConfig{
			Language:        handler.i18n.DefaultLanguage(),
			Location:        handler.location,
			ReminderEnabled: options.ReminderEnabled,
		},
	)
}
