package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/terraincognita07/heartnote/internal/models"
	"github.com/terraincognita07/heartnote/internal/security"
)

const (
	DefaultFamilyInviteTTL   = 72 * time.Hour
	MaxFamilyRelationshipLen = 32
)

var (
	ErrFamilyInviteNotFound = errors.New("family invite not found")
	ErrFamilyInviteExpired  = errors.New("family invite expired")
	ErrFamilyAlreadyLinked  = errors.New("family already linked")
	ErrFamilySelfLink       = errors.New("family self link")
	ErrFamilyMemberNotFound = errors.New("family member not found")
	ErrFamilyAccessDenied   = errors.New("family access denied")
	ErrFamilyLoadFailed     = errors.New("load family failed")
	ErrFamilySaveFailed     = errors.New("save family failed")
)

type FamilyRepository interface {
	CreateInvite(invite *models.FamilyInvite) error
	FindInviteByTokenHash(tokenHash string) (models.FamilyInvite, bool, error)
	RedeemInvite(inviteID uint, member *models.FamilyMember, usedAt time.Time) (bool, error)
	IsLinked(patientID uint, memberUserID uint) (bool, error)
	ListMembersByPatient(patientID uint) ([]models.FamilyMember, error)
	ListMembershipsByMember(memberUserID uint) ([]models.FamilyMember, error)
	FindMemberByID(memberID uint) (models.FamilyMember, bool, error)
	SaveMember(member *models.FamilyMember) error
}

type FamilyUserReader interface {
	FindByIDs(userIDs []uint) ([]models.User, error)
}

type FamilyInviteTicket struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type FamilyRedeemInput struct {
	Token        string
	DisplayName  string
	Relationship string
}

type FamilyMemberUpdate struct {
	MemberID             uint
	Relationship         *string
	ReceiveNotifications *bool
}

type FollowedPatient struct {
	MembershipID         uint   `json:"membershipId"`
	PatientID            uint   `json:"patientId"`
	PatientName          string `json:"patientName"`
	Relationship         string `json:"relationship"`
	ReceiveNotifications bool   `json:"receiveNotifications"`
}

type FamilyService struct {
	family    FamilyRepository
	users     FamilyUserReader
	inviteTTL time.Duration
	now       func() time.Time
}

func NewFamilyService(family FamilyRepository, users FamilyUserReader, inviteTTL time.Duration) *FamilyService {
	if inviteTTL <= 0 {
		inviteTTL = DefaultFamilyInviteTTL
	}
	return &FamilyService{
		family:    family,
		users:     users,
		inviteTTL: inviteTTL,
		now:       time.Now,
	}
}

// CreateInvite mints a single-use token. The plain token is returned once;
// only its hash is stored.
func (service *FamilyService) CreateInvite(patientID uint) (FamilyInviteTicket, error) {
	token, err := security.NewFamilyToken()
	if err != nil {
		return FamilyInviteTicket{}, fmt.Errorf("generate family token: %w", err)
	}

	invite := models.FamilyInvite{
		PatientID: patientID,
		TokenHash: security.HashToken(token),
		ExpiresAt: service.now().Add(service.inviteTTL).UTC(),
	}
	if err := service.family.CreateInvite(&invite); err != nil {
		return FamilyInviteTicket{}, fmt.Errorf("%w: %w", ErrFamilySaveFailed, err)
	}
	return FamilyInviteTicket{Token: token, ExpiresAt: invite.ExpiresAt}, nil
}

func (service *FamilyService) Redeem(memberUserID uint, input FamilyRedeemInput) (models.FamilyMember, error) {
	token := strings.TrimSpace(input.Token)
	if token == "" {
		return models.FamilyMember{}, ErrFamilyInviteNotFound
	}

	invite, found, err := service.family.FindInviteByTokenHash(security.HashToken(token))
	if err != nil {
		return models.FamilyMember{}, fmt.Errorf("%w: %w", ErrFamilyLoadFailed, err)
	}
	if !found || invite.UsedAt != nil {
		return models.FamilyMember{}, ErrFamilyInviteNotFound
	}
	now := service.now()
	if !now.Before(invite.ExpiresAt) {
		return models.FamilyMember{}, ErrFamilyInviteExpired
	}
	if invite.PatientID == memberUserID {
		return models.FamilyMember{}, ErrFamilySelfLink
	}

	linked, err := service.family.IsLinked(invite.PatientID, memberUserID)
	if err != nil {
		return models.FamilyMember{}, fmt.Errorf("%w: %w", ErrFamilyLoadFailed, err)
	}
	if linked {
		return models.FamilyMember{}, ErrFamilyAlreadyLinked
	}

	errs := FieldErrors{}
	relationship := LimitedText(errs, "relationship", input.Relationship, MaxFamilyRelationshipLen)
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName != "" {
		normalized, err := NormalizeDisplayName(displayName)
		if err != nil {
			errs.Add("displayName", FieldTooLong)
		}
		displayName = normalized
	}
	if err := errs.Err(); err != nil {
		return models.FamilyMember{}, err
	}
	if displayName == "" {
		names, err := loadDisplayNames(service.users, []uint{memberUserID})
		if err != nil {
			return models.FamilyMember{}, fmt.Errorf("%w: %w", ErrFamilyLoadFailed, err)
		}
		displayName = names[memberUserID]
	}

	member := models.FamilyMember{
		PatientID:            invite.PatientID,
		MemberUserID:         memberUserID,
		DisplayName:          displayName,
		Relationship:         relationship,
		ReceiveNotifications: true,
	}
	redeemed, err := service.family.RedeemInvite(invite.ID, &member, now)
	if err != nil {
		return models.FamilyMember{}, fmt.Errorf("%w: %w", ErrFamilySaveFailed, err)
	}
	if !redeemed {
		return models.FamilyMember{}, ErrFamilyInviteNotFound
	}
	return member, nil
}

func (service *FamilyService) ListMembers(patientID uint) ([]models.FamilyMember, error) {
	members, err := service.family.ListMembersByPatient(patientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFamilyLoadFailed, err)
	}
	return members, nil
}

func (service *FamilyService) ListFollowed(memberUserID uint) ([]FollowedPatient, error) {
	memberships, err := service.family.ListMembershipsByMember(memberUserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFamilyLoadFailed, err)
	}

	patientIDs := make([]uint, 0, len(memberships))
	for _, membership := range memberships {
		patientIDs = append(patientIDs, membership.PatientID)
	}
	names, err := loadDisplayNames(service.users, patientIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFamilyLoadFailed, err)
	}

	followed := make([]FollowedPatient, 0, len(memberships))
	for _, membership := range memberships {
		followed = append(followed, FollowedPatient{
			MembershipID:         membership.ID,
			PatientID:            membership.PatientID,
			PatientName:          names[membership.PatientID],
			Relationship:         membership.Relationship,
			ReceiveNotifications: membership.ReceiveNotifications,
		})
	}
	return followed, nil
}

// UpdateMember lets the patient relabel a relative or mute their alerts.
func (service *FamilyService) UpdateMember(patientID uint, update FamilyMemberUpdate) (models.FamilyMember, error) {
	member, found, err := service.family.FindMemberByID(update.MemberID)
	if err != nil {
		return models.FamilyMember{}, fmt.Errorf("%w: %w", ErrFamilyLoadFailed, err)
	}
	if !found || member.PatientID != patientID {
		return models.FamilyMember{}, ErrFamilyMemberNotFound
	}

	if update.Relationship != nil {
		errs := FieldErrors{}
		member.Relationship = LimitedText(errs, "relationship", *update.Relationship, MaxFamilyRelationshipLen)
		if err := errs.Err(); err != nil {
			return models.FamilyMember{}, err
		}
	}
	if update.ReceiveNotifications != nil {
		member.ReceiveNotifications = *update.ReceiveNotifications
	}

	if err := service.family.SaveMember(&member); err != nil {
		return models.FamilyMember{}, fmt.Errorf("%w: %w", ErrFamilySaveFailed, err)
	}
	return member, nil
}

func (service *FamilyService) RequireViewer(patientID uint, memberUserID uint) error {
	linked, err := service.family.IsLinked(patientID, memberUserID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFamilyLoadFailed, err)
	}
	if !linked {
		return ErrFamilyAccessDenied
	}
	return nil
}
