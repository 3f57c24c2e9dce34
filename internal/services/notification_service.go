package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/terraincognita07/heartnote/internal/models"
)

const defaultReminderInterval = time.Hour

type LinePusher interface {
	CanPush() bool
	PushMessage(ctx context.Context, to string, text string) error
}

type MessageTranslator interface {
	Translate(language string, key string) string
	Translatef(language string, key string, args ...any) string
}

type NotificationUserReader interface {
	FindByID(userID uint) (models.User, error)
	ListPatientsWithLineIdentity() ([]models.User, error)
}

type NotificationRecordReader interface {
	ExistsForUserOnDate(userID uint, date string) (bool, error)
}

type NotificationFamilyReader interface {
	ListMembersByPatient(patientID uint) ([]models.FamilyMember, error)
}

type NotificationConfig struct {
	Language         string
	Location         *time.Location
	ReminderEnabled  bool
	ReminderInterval time.Duration
}

// NotificationService pushes LINE messages for invite, comment and blood
// pressure events, and runs the optional daily reminder loop. Delivery
// failures are logged and never surface to the caller.
type NotificationService struct {
	pusher           LinePusher
	messages         MessageTranslator
	users            NotificationUserReader
	records          NotificationRecordReader
	family           NotificationFamilyReader
	logger           zerolog.Logger
	language         string
	location         *time.Location
	reminderEnabled  bool
	reminderInterval time.Duration
	now              func() time.Time

	mu           sync.Mutex
	remindedOn   string
	remindedUser map[uint]struct{}
}

func NewNotificationService(
	pusher LinePusher,
	messages MessageTranslator,
	users NotificationUserReader,
	records NotificationRecordReader,
	family NotificationFamilyReader,
	logger zerolog.Logger,
	cfg NotificationConfig,
) *NotificationService {
	location := cfg.Location
	if location == nil {
		location = time.Local
	}
	interval := cfg.ReminderInterval
	if interval <= 0 {
		interval = defaultReminderInterval
	}
	return &NotificationService{
		pusher:           pusher,
		messages:         messages,
		users:            users,
		records:          records,
		family:           family,
		logger:           logger.With().Str("component", "notifications").Logger(),
		language:         cfg.Language,
		location:         location,
		reminderEnabled:  cfg.ReminderEnabled,
		reminderInterval: interval,
		now:              time.Now,
		remindedUser:     make(map[uint]struct{}),
	}
}

func (service *NotificationService) enabled() bool {
	return service != nil && service.pusher != nil && service.pusher.CanPush()
}

func (service *NotificationService) NotifyInviteReceived(ctx context.Context, invite models.Invite, providerName string) {
	if !service.enabled() {
		return
	}
	text := service.messages.Translatef(service.language, "notify.invite_received", providerName)
	service.pushToUser(ctx, invite.PatientID, text)
}

func (service *NotificationService) NotifyCommentPosted(ctx context.Context, comment models.Comment, providerName string) {
	if !service.enabled() {
		return
	}
	text := service.messages.Translatef(service.language, "notify.comment_posted", providerName, comment.Content)
	service.pushToUser(ctx, comment.PatientID, text)
}

// NotifyHighBloodPressure alerts every relative who follows the patient with
// notifications switched on.
func (service *NotificationService) NotifyHighBloodPressure(ctx context.Context, patient models.User, record models.HealthRecord) {
	if !service.enabled() || !IsHighBloodPressure(record) {
		return
	}

	members, err := service.family.ListMembersByPatient(patient.ID)
	if err != nil {
		service.logger.Error().Err(err).Uint("patient_id", patient.ID).Msg("load family members failed")
		return
	}

	text := service.messages.Translatef(service.language, "notify.high_blood_pressure",
		patient.DisplayName,
		formatMeasurement(record.Systolic),
		formatMeasurement(record.Diastolic),
		record.Date,
		record.TimeSlot,
	)
	for _, member := range members {
		if !member.ReceiveNotifications {
			continue
		}
		service.pushToUser(ctx, member.MemberUserID, text)
	}
}

func (service *NotificationService) Start(ctx context.Context) {
	if !service.reminderEnabled || !service.enabled() {
		return
	}

	ticker := time.NewTicker(service.reminderInterval)
	go func() {
		defer ticker.Stop()

		service.RunReminders(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				service.RunReminders(ctx)
			}
		}
	}()
}

// RunReminders sends at most one reminder per patient per day to patients
// with a LINE identity who have not recorded anything today. It returns the
// number of reminders sent.
func (service *NotificationService) RunReminders(ctx context.Context) int {
	if !service.enabled() {
		return 0
	}

	patients, err := service.users.ListPatientsWithLineIdentity()
	if err != nil {
		service.logger.Error().Err(err).Msg("fetch reminder recipients failed")
		return 0
	}

	now := service.now().In(service.location)
	todayKey := DateAtLocation(now, service.location).Format(recordDateLayout)
	text := service.messages.Translate(service.language, "notify.daily_reminder")

	sent := 0
	for _, patient := range patients {
		if patient.LineUserID == nil {
			continue
		}
		recorded, err := service.records.ExistsForUserOnDate(patient.ID, todayKey)
		if err != nil {
			service.logger.Error().Err(err).Uint("user_id", patient.ID).Msg("check today's records failed")
			continue
		}
		if recorded {
			continue
		}

		if service.remindedToday(patient.ID, todayKey) {
			continue
		}
		if err := service.pusher.PushMessage(ctx, *patient.LineUserID, text); err != nil {
			service.logger.Warn().Err(err).Uint("user_id", patient.ID).Msg("send daily reminder failed")
			continue
		}
		service.markReminded(patient.ID, todayKey)
		sent++
	}
	return sent
}

// remindedToday reports whether the patient already got today's reminder.
// The set only ever holds one day, so it is cleared when the date rolls over.
func (service *NotificationService) remindedToday(userID uint, day string) bool {
	service.mu.Lock()
	defer service.mu.Unlock()

	service.rollReminderDay(day)
	_, ok := service.remindedUser[userID]
	return ok
}

func (service *NotificationService) markReminded(userID uint, day string) {
	service.mu.Lock()
	defer service.mu.Unlock()

	service.rollReminderDay(day)
	service.remindedUser[userID] = struct{}{}
}

func (service *NotificationService) rollReminderDay(day string) {
	if service.remindedOn == day {
		return
	}
	service.remindedOn = day
	service.remindedUser = make(map[uint]struct{})
}

func (service *NotificationService) pushToUser(ctx context.Context, userID uint, text string) {
	user, err := service.users.FindByID(userID)
	if err != nil {
		service.logger.Error().Err(err).Uint("user_id", userID).Msg("load notification recipient failed")
		return
	}
	if user.LineUserID == nil || *user.LineUserID == "" {
		return
	}
	if err := service.pusher.PushMessage(ctx, *user.LineUserID, text); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		service.logger.Warn().Err(err).Uint("user_id", userID).Msg("line push failed")
	}
}

func formatMeasurement(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
