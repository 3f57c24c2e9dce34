package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/terraincognita07/heartnote/internal/models"
)

type notificationFixture struct {
	service *NotificationService
	pusher  *stubPusher
	users   *memoryUserRepo
	records *memoryHealthRecordRepo
	family  *memoryFamilyRepo
	patient models.User
}

func newNotificationFixture() *notificationFixture {
	users := newMemoryUserRepo()
	records := newMemoryHealthRecordRepo()
	family := &memoryFamilyRepo{}
	pusher := &stubPusher{}
	fixture := &notificationFixture{
		pusher:  pusher,
		users:   users,
		records: records,
		family:  family,
		patient: users.addWithLine("山田太郎", models.RolePatient, "U-patient"),
	}
	fixture.service = NewNotificationService(pusher, stubTranslator{}, users, records, family, zerolog.New(io.Discard), NotificationConfig{
		Language: "ja",
		Location: time.UTC,
	})
	fixture.service.now = func() time.Time { return stubClockStart }
	return fixture
}

func TestNotifyHighBloodPressureOnlyReachesSubscribedRelatives(t *testing.T) {
	fixture := newNotificationFixture()
	wife := fixture.users.addWithLine("山田花子", models.RolePatient, "U-wife")
	son := fixture.users.addWithLine("山田一郎", models.RolePatient, "U-son")
	daughter := fixture.users.add("山田二葉", models.RolePatient)
	fixture.family.members = []models.FamilyMember{
		{ID: 1, PatientID: fixture.patient.ID, MemberUserID: wife.ID, ReceiveNotifications: true},
		{ID: 2, PatientID: fixture.patient.ID, MemberUserID: son.ID, ReceiveNotifications: false},
		{ID: 3, PatientID: fixture.patient.ID, MemberUserID: daughter.ID, ReceiveNotifications: true},
	}

	normal := models.HealthRecord{UserID: fixture.patient.ID, Date: "2026-03-01", TimeSlot: "07:00", Systolic: 180, Diastolic: 110}
	fixture.service.NotifyHighBloodPressure(context.Background(), fixture.patient, normal)
	if len(fixture.pusher.messages) != 0 {
		t.Fatalf("expected no alert at the threshold, got %v", fixture.pusher.messages)
	}

	high := models.HealthRecord{UserID: fixture.patient.ID, Date: "2026-03-01", TimeSlot: "07:00", Systolic: 185, Diastolic: 100}
	fixture.service.NotifyHighBloodPressure(context.Background(), fixture.patient, high)
	if len(fixture.pusher.messages) != 1 || fixture.pusher.messages[0].to != "U-wife" {
		t.Fatalf("expected a single alert to the subscribed LINE relative, got %v", fixture.pusher.messages)
	}
	if !strings.HasPrefix(fixture.pusher.messages[0].text, "notify.high_blood_pressure") {
		t.Fatalf("unexpected alert text %q", fixture.pusher.messages[0].text)
	}
}

func TestNotifyInviteAndCommentReachPatient(t *testing.T) {
	fixture := newNotificationFixture()

	fixture.service.NotifyInviteReceived(context.Background(), models.Invite{PatientID: fixture.patient.ID}, "佐藤医師")
	fixture.service.NotifyCommentPosted(context.Background(), models.Comment{PatientID: fixture.patient.ID, Content: "順調です"}, "佐藤医師")

	if len(fixture.pusher.messages) != 2 {
		t.Fatalf("expected two pushes, got %v", fixture.pusher.messages)
	}
	for _, message := range fixture.pusher.messages {
		if message.to != "U-patient" {
			t.Fatalf("expected push to patient, got %q", message.to)
		}
	}
}

func TestNotificationsSkippedWhenPushDisabled(t *testing.T) {
	fixture := newNotificationFixture()
	fixture.pusher.disabled = true

	fixture.service.NotifyInviteReceived(context.Background(), models.Invite{PatientID: fixture.patient.ID}, "佐藤医師")
	if sent := fixture.service.RunReminders(context.Background()); sent != 0 {
		t.Fatalf("expected no reminders, got %d", sent)
	}
	if len(fixture.pusher.messages) != 0 {
		t.Fatalf("expected no pushes, got %v", fixture.pusher.messages)
	}
}

func TestRunRemindersOncePerDayForPatientsWithoutRecords(t *testing.T) {
	fixture := newNotificationFixture()
	recorded := fixture.users.addWithLine("記録済み", models.RolePatient, "U-recorded")
	fixture.users.add("LINEなし", models.RolePatient)
	fixture.users.addWithLine("医師", models.RoleMedical, "U-medical")

	record := models.HealthRecord{UserID: recorded.ID, Date: "2026-03-01", TimeSlot: "07:00", Systolic: 120, Diastolic: 80, Pulse: 60}
	if err := fixture.records.UpsertBySlot(&record); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	if sent := fixture.service.RunReminders(context.Background()); sent != 1 {
		t.Fatalf("expected one reminder, got %d", sent)
	}
	if fixture.pusher.messages[0].to != "U-patient" || fixture.pusher.messages[0].text != "notify.daily_reminder" {
		t.Fatalf("unexpected reminder: %+v", fixture.pusher.messages[0])
	}

	if sent := fixture.service.RunReminders(context.Background()); sent != 0 {
		t.Fatalf("expected no second reminder the same day, got %d", sent)
	}

	fixture.service.now = func() time.Time { return stubClockStart.Add(24 * time.Hour) }
	if sent := fixture.service.RunReminders(context.Background()); sent != 2 {
		t.Fatalf("expected reminders for both patients the next day, got %d", sent)
	}
}

func TestRunRemindersRemembersEveryPatientInLargeCohorts(t *testing.T) {
	fixture := newNotificationFixture()
	for index := 0; index < 600; index++ {
		fixture.users.addWithLine(fmt.Sprintf("患者%d", index), models.RolePatient, fmt.Sprintf("U-%d", index))
	}

	if sent := fixture.service.RunReminders(context.Background()); sent != 601 {
		t.Fatalf("expected 601 reminders, got %d", sent)
	}
	if sent := fixture.service.RunReminders(context.Background()); sent != 0 {
		t.Fatalf("expected no repeats the same day, got %d", sent)
	}

	fixture.service.now = func() time.Time { return stubClockStart.Add(24 * time.Hour) }
	if sent := fixture.service.RunReminders(context.Background()); sent != 601 {
		t.Fatalf("expected a fresh round the next day, got %d", sent)
	}
}

func TestRunRemindersRetriesAfterFailedPush(t *testing.T) {
	fixture := newNotificationFixture()
	fixture.pusher.err = errors.New("line unavailable")

	if sent := fixture.service.RunReminders(context.Background()); sent != 0 {
		t.Fatalf("expected no reminders while LINE fails, got %d", sent)
	}

	fixture.pusher.err = nil
	if sent := fixture.service.RunReminders(context.Background()); sent != 1 {
		t.Fatalf("expected the reminder on the next tick, got %d", sent)
	}
	if sent := fixture.service.RunReminders(context.Background()); sent != 0 {
		t.Fatalf("expected no repeat after a delivered reminder, got %d", sent)
	}
}
