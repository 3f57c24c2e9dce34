package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/terraincognita07/heartnote/internal/models"
)

const MaxCommentLength = 2000

var (
	ErrCommentTargetNotFound = errors.New("comment target not found")
	ErrCommentLoadFailed     = errors.New("load comments failed")
	ErrCommentSaveFailed     = errors.New("save comment failed")
)

type CommentRepository interface {
	Create(comment *models.Comment) error
	ListByPatient(patientID uint) ([]models.Comment, error)
}

type CommentConsentGate interface {
	RequireAccess(providerID uint, patientID uint) error
}

type CommentHealthRecordReader interface {
	FindByID(recordID uint) (models.HealthRecord, bool, error)
}

type CommentBloodDataReader interface {
	FindByID(entryID uint) (models.BloodData, bool, error)
	FindCPXForUser(userID uint, cpxID uint) (models.CPXTest, bool, error)
}

type CommentUserReader interface {
	FindByIDs(userIDs []uint) ([]models.User, error)
}

type CommentInput struct {
	PatientID  uint
	TargetKind string
	TargetID   uint
	Content    string
}

type CommentView struct {
	ID           uint      `json:"id"`
	ProviderID   uint      `json:"providerId"`
	ProviderName string    `json:"providerName"`
	PatientID    uint      `json:"patientId"`
	TargetKind   string    `json:"targetKind"`
	TargetID     uint      `json:"targetId"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CommentService is the provider comment ledger. Comments are append-only.
type CommentService struct {
	comments      CommentRepository
	consent       CommentConsentGate
	healthRecords CommentHealthRecordReader
	bloodData     CommentBloodDataReader
	users         CommentUserReader
}

func NewCommentService(
	comments CommentRepository,
	consent CommentConsentGate,
	healthRecords CommentHealthRecordReader,
	bloodData CommentBloodDataReader,
	users CommentUserReader,
) *CommentService {
	return &CommentService{
		comments:      comments,
		consent:       consent,
		healthRecords: healthRecords,
		bloodData:     bloodData,
		users:         users,
	}
}

// AddComment checks the consent gate before anything else, so a provider
// without an accepted invite learns nothing about the patient's records.
func (service *CommentService) AddComment(providerID uint, input CommentInput) (models.Comment, error) {
	if err := service.consent.RequireAccess(providerID, input.PatientID); err != nil {
		return models.Comment{}, err
	}

	errs := FieldErrors{}
	content := normalizeCommentContent(errs, input.Content)
	if !models.IsValidCommentTarget(input.TargetKind) {
		errs.Add("targetKind", FieldInvalidChoice)
	}
	if input.TargetID == 0 {
		errs.Add("targetId", FieldRequired)
	}
	if err := errs.Err(); err != nil {
		return models.Comment{}, err
	}

	if err := service.ensureTargetBelongsToPatient(input.PatientID, input.TargetKind, input.TargetID); err != nil {
		return models.Comment{}, err
	}

	comment := models.Comment{
		ProviderID: providerID,
		PatientID:  input.PatientID,
		TargetKind: input.TargetKind,
		TargetID:   input.TargetID,
		Content:    content,
	}
	if err := service.comments.Create(&comment); err != nil {
		return models.Comment{}, fmt.Errorf("%w: %w", ErrCommentSaveFailed, err)
	}
	return comment, nil
}

// ListForPatient returns the patient's inbox, newest first.
func (service *CommentService) ListForPatient(patientID uint) ([]CommentView, error) {
	comments, err := service.comments.ListByPatient(patientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCommentLoadFailed, err)
	}

	providerIDs := make([]uint, 0, len(comments))
	for _, comment := range comments {
		providerIDs = append(providerIDs, comment.ProviderID)
	}
	names, err := loadDisplayNames(service.users, providerIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCommentLoadFailed, err)
	}

	views := make([]CommentView, 0, len(comments))
	for _, comment := range comments {
		views = append(views, CommentView{
			ID:           comment.ID,
			ProviderID:   comment.ProviderID,
			ProviderName: names[comment.ProviderID],
			PatientID:    comment.PatientID,
			TargetKind:   comment.TargetKind,
			TargetID:     comment.TargetID,
			Content:      comment.Content,
			CreatedAt:    comment.CreatedAt,
		})
	}
	return views, nil
}

func (service *CommentService) ensureTargetBelongsToPatient(patientID uint, kind string, targetID uint) error {
	var (
		owned bool
		err   error
	)
	switch kind {
	case models.CommentTargetHealthRecord:
		var record models.HealthRecord
		record, owned, err = service.healthRecords.FindByID(targetID)
		owned = owned && record.UserID == patientID
	case models.CommentTargetBloodData:
		var entry models.BloodData
		entry, owned, err = service.bloodData.FindByID(targetID)
		owned = owned && entry.UserID == patientID
	case models.CommentTargetCPX:
		_, owned, err = service.bloodData.FindCPXForUser(patientID, targetID)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCommentLoadFailed, err)
	}
	if !owned {
		return ErrCommentTargetNotFound
	}
	return nil
}

func normalizeCommentContent(errs FieldErrors, raw string) string {
	content := strings.TrimSpace(raw)
	switch {
	case content == "":
		errs.Add("content", FieldRequired)
	case utf8.RuneCountInString(content) > MaxCommentLength:
		errs.Add("content", FieldTooLong)
	}
	return content
}
