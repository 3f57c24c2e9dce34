package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/terraincognita07/heartnote/internal/models"
	"gorm.io/gorm"
)

const (
	InviteActionAccept  = "accept"
	InviteActionDecline = "decline"
)

var (
	ErrConsentRequired     = errors.New("consent required")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrInviteNotFound      = errors.New("invite not found")
	ErrInviteAlreadyActive = errors.New("invite already active")
	ErrInviteNotPending    = errors.New("invite not pending")
	ErrInvalidInviteAction = errors.New("invalid invite action")
	ErrConsentLoadFailed   = errors.New("load consent failed")
	ErrConsentSaveFailed   = errors.New("save consent failed")
)

type ConsentInviteRepository interface {
	Create(invite *models.Invite) error
	FindByID(inviteID uint) (models.Invite, bool, error)
	ExistsWithStatus(providerID uint, patientID uint, statuses ...string) (bool, error)
	ListByPatient(patientID uint, status string) ([]models.Invite, error)
	ListByProvider(providerID uint) ([]models.Invite, error)
	TransitionStatus(inviteID uint, fromStatus string, toStatus string, at time.Time) (bool, error)
}

type ConsentUserRepository interface {
	FindByID(userID uint) (models.User, error)
	FindByIDs(userIDs []uint) ([]models.User, error)
}

type InviteSummary struct {
	ID           uint       `json:"id"`
	ProviderID   uint       `json:"providerId"`
	ProviderName string     `json:"providerName"`
	PatientID    uint       `json:"patientId"`
	PatientName  string     `json:"patientName"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	RespondedAt  *time.Time `json:"respondedAt,omitempty"`
}

// ConsentService owns the provider invite ledger and the consent gate. A
// provider may read a patient's data only while an accepted invite exists
// for that exact pair.
type ConsentService struct {
	invites ConsentInviteRepository
	users   ConsentUserRepository
	now     func() time.Time
}

func NewConsentService(invites ConsentInviteRepository, users ConsentUserRepository) *ConsentService {
	return &ConsentService{
		invites: invites,
		users:   users,
		now:     time.Now,
	}
}

// CreateInvite records a pending invite. A pair that already has a pending
// or accepted invite is rejected; after a decline a new invite may be sent.
func (service *ConsentService) CreateInvite(providerID uint, patientID uint) (models.Invite, error) {
	patient, err := service.users.FindByID(patientID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Invite{}, ErrPatientNotFound
	}
	if err != nil {
		return models.Invite{}, fmt.Errorf("%w: %w", ErrConsentLoadFailed, err)
	}
	if patient.Role != models.RolePatient || patient.ID == providerID {
		return models.Invite{}, ErrPatientNotFound
	}

	active, err := service.invites.ExistsWithStatus(providerID, patientID, models.InviteStatusPending, models.InviteStatusAccepted)
	if err != nil {
		return models.Invite{}, fmt.Errorf("%w: %w", ErrConsentLoadFailed, err)
	}
	if active {
		return models.Invite{}, ErrInviteAlreadyActive
	}

	invite := models.Invite{
		ProviderID: providerID,
		PatientID:  patientID,
		Status:     models.InviteStatusPending,
	}
	if err := service.invites.Create(&invite); err != nil {
		// A concurrent invite for the same pair loses on the active-pair index.
		if raced, checkErr := service.invites.ExistsWithStatus(providerID, patientID, models.InviteStatusPending, models.InviteStatusAccepted); checkErr == nil && raced {
			return models.Invite{}, ErrInviteAlreadyActive
		}
		return models.Invite{}, fmt.Errorf("%w: %w", ErrConsentSaveFailed, err)
	}
	return invite, nil
}

// Respond applies the patient's answer. Only the invited patient may answer
// and only while the invite is pending.
func (service *ConsentService) Respond(patientID uint, inviteID uint, action string) (models.Invite, error) {
	nextStatus, err := inviteStatusForAction(action)
	if err != nil {
		return models.Invite{}, err
	}

	invite, found, err := service.invites.FindByID(inviteID)
	if err != nil {
		return models.Invite{}, fmt.Errorf("%w: %w", ErrConsentLoadFailed, err)
	}
	if !found || invite.PatientID != patientID {
		return models.Invite{}, ErrInviteNotFound
	}
	if invite.Status != models.InviteStatusPending {
		return models.Invite{}, ErrInviteNotPending
	}

	respondedAt := service.now()
	moved, err := service.invites.TransitionStatus(invite.ID, models.InviteStatusPending, nextStatus, respondedAt)
	if err != nil {
		return models.Invite{}, fmt.Errorf("%w: %w", ErrConsentSaveFailed, err)
	}
	if !moved {
		return models.Invite{}, ErrInviteNotPending
	}

	invite.Status = nextStatus
	invite.RespondedAt = &respondedAt
	invite.UpdatedAt = respondedAt
	return invite, nil
}

func (service *ConsentService) CanAccess(providerID uint, patientID uint) (bool, error) {
	accepted, err := service.invites.ExistsWithStatus(providerID, patientID, models.InviteStatusAccepted)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrConsentLoadFailed, err)
	}
	return accepted, nil
}

// RequireAccess is the gate every provider read and write goes through.
func (service *ConsentService) RequireAccess(providerID uint, patientID uint) error {
	allowed, err := service.CanAccess(providerID, patientID)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrConsentRequired
	}
	return nil
}

func (service *ConsentService) ListPendingForPatient(patientID uint) ([]InviteSummary, error) {
	invites, err := service.invites.ListByPatient(patientID, models.InviteStatusPending)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConsentLoadFailed, err)
	}
	return service.summarize(invites)
}

func (service *ConsentService) ListForProvider(providerID uint) ([]InviteSummary, error) {
	invites, err := service.invites.ListByProvider(providerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConsentLoadFailed, err)
	}
	return service.summarize(invites)
}

func (service *ConsentService) summarize(invites []models.Invite) ([]InviteSummary, error) {
	userIDs := make([]uint, 0, len(invites)*2)
	for _, invite := range invites {
		userIDs = append(userIDs, invite.ProviderID, invite.PatientID)
	}
	names, err := loadDisplayNames(service.users, userIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConsentLoadFailed, err)
	}

	summaries := make([]InviteSummary, 0, len(invites))
	for _, invite := range invites {
		summaries = append(summaries, InviteSummary{
			ID:           invite.ID,
			ProviderID:   invite.ProviderID,
			ProviderName: names[invite.ProviderID],
			PatientID:    invite.PatientID,
			PatientName:  names[invite.PatientID],
			Status:       invite.Status,
			CreatedAt:    invite.CreatedAt,
			RespondedAt:  invite.RespondedAt,
		})
	}
	return summaries, nil
}

func inviteStatusForAction(action string) (string, error) {
	switch trimLower(action) {
	case InviteActionAccept:
		return models.InviteStatusAccepted, nil
	case InviteActionDecline:
		return models.InviteStatusDeclined, nil
	default:
		return "", ErrInvalidInviteAction
	}
}

type displayNameReader interface {
	FindByIDs(userIDs []uint) ([]models.User, error)
}

func loadDisplayNames(users displayNameReader, userIDs []uint) (map[uint]string, error) {
	unique := make([]uint, 0, len(userIDs))
	seen := make(map[uint]struct{}, len(userIDs))
	for _, userID := range userIDs {
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		unique = append(unique, userID)
	}

	names := make(map[uint]string, len(unique))
	if len(unique) == 0 {
		return names, nil
	}
	loaded, err := users.FindByIDs(unique)
	if err != nil {
		return nil, err
	}
	for _, user := range loaded {
		names[user.ID] = user.DisplayName
	}
	return names, nil
}
