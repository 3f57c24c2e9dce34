package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/terraincognita07/heartnote/internal/models"
)

const (
	MaxDirectoryResults = 50
	InviteStatusNone    = "none"
)

var ErrDirectorySearchFailed = errors.New("directory search failed")

type DirectoryUserRepository interface {
	SearchPatientsByName(fragment string, limit int) ([]models.User, error)
}

type DirectoryInviteRepository interface {
	ListByProviderAndPatients(providerID uint, patientIDs []uint) ([]models.Invite, error)
}

type PatientSummary struct {
	ID           uint   `json:"id"`
	DisplayName  string `json:"displayName"`
	InviteStatus string `json:"inviteStatus"`
}

type DirectoryService struct {
	users   DirectoryUserRepository
	invites DirectoryInviteRepository
}

func NewDirectoryService(users DirectoryUserRepository, invites DirectoryInviteRepository) *DirectoryService {
	return &DirectoryService{users: users, invites: invites}
}

// Search matches patients by a case-insensitive display name fragment. Blank
// input returns nothing instead of the whole directory.
func (service *DirectoryService) Search(providerID uint, namePart string) ([]PatientSummary, error) {
	fragment := strings.Join(strings.Fields(namePart), " ")
	if fragment == "" {
		return []PatientSummary{}, nil
	}

	patients, err := service.users.SearchPatientsByName(fragment, MaxDirectoryResults)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectorySearchFailed, err)
	}

	patientIDs := make([]uint, 0, len(patients))
	for _, patient := range patients {
		patientIDs = append(patientIDs, patient.ID)
	}
	invites, err := service.invites.ListByProviderAndPatients(providerID, patientIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectorySearchFailed, err)
	}

	// invites arrive newest first, so the first status seen per patient wins
	latestStatus := make(map[uint]string, len(invites))
	for _, invite := range invites {
		if _, seen := latestStatus[invite.PatientID]; !seen {
			latestStatus[invite.PatientID] = invite.Status
		}
	}

	results := make([]PatientSummary, 0, len(patients))
	for _, patient := range patients {
		status, ok := latestStatus[patient.ID]
		if !ok {
			status = InviteStatusNone
		}
		results = append(results, PatientSummary{
			ID:           patient.ID,
			DisplayName:  patient.DisplayName,
			InviteStatus: status,
		})
	}
	return results, nil
}
