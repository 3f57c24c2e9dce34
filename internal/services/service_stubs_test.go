package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/terraincognita07/heartnote/internal/line"
	"github.com/terraincognita07/heartnote/internal/models"
	"gorm.io/gorm"
)

var errStubDatabase = errors.New("stub database failure")

var stubClockStart = time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

type memoryUserRepo struct {
	users  map[uint]models.User
	nextID uint
	err    error
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[uint]models.User), nextID: 1}
}

func (repo *memoryUserRepo) add(displayName string, role string) models.User {
	user := models.User{ID: repo.nextID, DisplayName: displayName, Role: role}
	repo.users[user.ID] = user
	repo.nextID++
	return user
}

func (repo *memoryUserRepo) addWithLine(displayName string, role string, lineUserID string) models.User {
	user := repo.add(displayName, role)
	user.LineUserID = &lineUserID
	repo.users[user.ID] = user
	return user
}

func (repo *memoryUserRepo) FindByID(userID uint) (models.User, error) {
	if repo.err != nil {
		return models.User{}, repo.err
	}
	user, ok := repo.users[userID]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (repo *memoryUserRepo) FindByIDs(userIDs []uint) ([]models.User, error) {
	if repo.err != nil {
		return nil, repo.err
	}
	result := make([]models.User, 0, len(userIDs))
	for _, userID := range userIDs {
		if user, ok := repo.users[userID]; ok {
			result = append(result, user)
		}
	}
	return result, nil
}

func (repo *memoryUserRepo) FindByLineUserID(lineUserID string) (models.User, bool, error) {
	if repo.err != nil {
		return models.User{}, false, repo.err
	}
	for _, user := range repo.users {
		if user.LineUserID != nil && *user.LineUserID == lineUserID {
			return user, true, nil
		}
	}
	return models.User{}, false, nil
}

func (repo *memoryUserRepo) FindByNormalizedEmail(email string) (models.User, error) {
	if repo.err != nil {
		return models.User{}, repo.err
	}
	for _, user := range repo.users {
		if user.Email != nil && strings.EqualFold(*user.Email, email) {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (repo *memoryUserRepo) ExistsByNormalizedEmail(email string) (bool, error) {
	_, err := repo.FindByNormalizedEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (repo *memoryUserRepo) Create(user *models.User) error {
	if repo.err != nil {
		return repo.err
	}
	user.ID = repo.nextID
	repo.nextID++
	repo.users[user.ID] = *user
	return nil
}

func (repo *memoryUserRepo) UpdateRole(userID uint, role string) error {
	user, ok := repo.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.Role = role
	repo.users[userID] = user
	return nil
}

func (repo *memoryUserRepo) UpdatePassword(userID uint, passwordHash string, mustChangePassword bool) error {
	user, ok := repo.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.PasswordHash = passwordHash
	user.MustChangePassword = mustChangePassword
	repo.users[userID] = user
	return nil
}

func (repo *memoryUserRepo) SearchPatientsByName(fragment string, limit int) ([]models.User, error) {
	if repo.err != nil {
		return nil, repo.err
	}
	result := make([]models.User, 0)
	for _, user := range repo.users {
		if user.Role == models.RolePatient && strings.Contains(strings.ToLower(user.DisplayName), strings.ToLower(fragment)) {
			result = append(result, user)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (repo *memoryUserRepo) ListPatientsWithLineIdentity() ([]models.User, error) {
	result := make([]models.User, 0)
	for _, user := range repo.users {
		if user.Role == models.RolePatient && user.LineUserID != nil {
			result = append(result, user)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type memorySessionRepo struct {
	sessions map[string]models.Session
	err      error
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[string]models.Session)}
}

func (repo *memorySessionRepo) Create(session *models.Session) error {
	if repo.err != nil {
		return repo.err
	}
	session.ID = uint(len(repo.sessions) + 1)
	repo.sessions[session.TokenID] = *session
	return nil
}

func (repo *memorySessionRepo) FindByTokenID(tokenID string) (models.Session, bool, error) {
	if repo.err != nil {
		return models.Session{}, false, repo.err
	}
	session, ok := repo.sessions[tokenID]
	return session, ok, nil
}

func (repo *memorySessionRepo) Revoke(tokenID string, at time.Time) error {
	session, ok := repo.sessions[tokenID]
	if !ok {
		return nil
	}
	session.RevokedAt = &at
	repo.sessions[tokenID] = session
	return nil
}

type memoryInviteRepo struct {
	invites []models.Invite
	err     error
}

func (repo *memoryInviteRepo) Create(invite *models.Invite) error {
	if repo.err != nil {
		return repo.err
	}
	invite.ID = uint(len(repo.invites) + 1)
	invite.CreatedAt = stubClockStart.Add(time.Duration(invite.ID) * time.Minute)
	invite.UpdatedAt = invite.CreatedAt
	repo.invites = append(repo.invites, *invite)
	return nil
}

func (repo *memoryInviteRepo) FindByID(inviteID uint) (models.Invite, bool, error) {
	if repo.err != nil {
		return models.Invite{}, false, repo.err
	}
	for _, invite := range repo.invites {
		if invite.ID == inviteID {
			return invite, true, nil
		}
	}
	return models.Invite{}, false, nil
}

func (repo *memoryInviteRepo) ExistsWithStatus(providerID uint, patientID uint, statuses ...string) (bool, error) {
	if repo.err != nil {
		return false, repo.err
	}
	for _, invite := range repo.invites {
		if invite.ProviderID != providerID || invite.PatientID != patientID {
			continue
		}
		for _, status := range statuses {
			if invite.Status == status {
				return true, nil
			}
		}
	}
	return false, nil
}

func (repo *memoryInviteRepo) newestFirst(match func(models.Invite) bool) []models.Invite {
	result := make([]models.Invite, 0)
	for index := len(repo.invites) - 1; index >= 0; index-- {
		if match(repo.invites[index]) {
			result = append(result, repo.invites[index])
		}
	}
	return result
}

func (repo *memoryInviteRepo) ListByPatient(patientID uint, status string) ([]models.Invite, error) {
	return repo.newestFirst(func(invite models.Invite) bool {
		return invite.PatientID == patientID && (status == "" || invite.Status == status)
	}), nil
}

func (repo *memoryInviteRepo) ListByProvider(providerID uint) ([]models.Invite, error) {
	return repo.newestFirst(func(invite models.Invite) bool {
		return invite.ProviderID == providerID
	}), nil
}

func (repo *memoryInviteRepo) ListByProviderAndPatients(providerID uint, patientIDs []uint) ([]models.Invite, error) {
	wanted := make(map[uint]bool, len(patientIDs))
	for _, patientID := range patientIDs {
		wanted[patientID] = true
	}
	return repo.newestFirst(func(invite models.Invite) bool {
		return invite.ProviderID == providerID && wanted[invite.PatientID]
	}), nil
}

func (repo *memoryInviteRepo) TransitionStatus(inviteID uint, fromStatus string, toStatus string, at time.Time) (bool, error) {
	if repo.err != nil {
		return false, repo.err
	}
	for index := range repo.invites {
		if repo.invites[index].ID == inviteID && repo.invites[index].Status == fromStatus {
			repo.invites[index].Status = toStatus
			repo.invites[index].RespondedAt = &at
			return true, nil
		}
	}
	return false, nil
}

type memoryHealthRecordRepo struct {
	records map[uint]models.HealthRecord
	nextID  uint
	err     error
}

func newMemoryHealthRecordRepo() *memoryHealthRecordRepo {
	return &memoryHealthRecordRepo{records: make(map[uint]models.HealthRecord), nextID: 1}
}

func (repo *memoryHealthRecordRepo) UpsertBySlot(record *models.HealthRecord) error {
	if repo.err != nil {
		return repo.err
	}
	if existing, found, _ := repo.FindBySlot(record.UserID, record.Date, record.TimeSlot); found {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	} else {
		record.ID = repo.nextID
		repo.nextID++
	}
	repo.records[record.ID] = *record
	return nil
}

func (repo *memoryHealthRecordRepo) FindByID(recordID uint) (models.HealthRecord, bool, error) {
	if repo.err != nil {
		return models.HealthRecord{}, false, repo.err
	}
	record, ok := repo.records[recordID]
	return record, ok, nil
}

func (repo *memoryHealthRecordRepo) FindBySlot(userID uint, date string, timeSlot string) (models.HealthRecord, bool, error) {
	for _, record := range repo.records {
		if record.UserID == userID && record.Date == date && record.TimeSlot == timeSlot {
			return record, true, nil
		}
	}
	return models.HealthRecord{}, false, nil
}

func (repo *memoryHealthRecordRepo) ListByUserRange(userID uint, from string, to string) ([]models.HealthRecord, error) {
	if repo.err != nil {
		return nil, repo.err
	}
	result := make([]models.HealthRecord, 0)
	for _, record := range repo.records {
		if record.UserID != userID {
			continue
		}
		if from != "" && record.Date < from {
			continue
		}
		if to != "" && record.Date > to {
			continue
		}
		result = append(result, record)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		if result[i].TimeSlot != result[j].TimeSlot {
			return result[i].TimeSlot < result[j].TimeSlot
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (repo *memoryHealthRecordRepo) ExistsForUserOnDate(userID uint, date string) (bool, error) {
	for _, record := range repo.records {
		if record.UserID == userID && record.Date == date {
			return true, nil
		}
	}
	return false, nil
}

func (repo *memoryHealthRecordRepo) Save(record *models.HealthRecord) error {
	if repo.err != nil {
		return repo.err
	}
	repo.records[record.ID] = *record
	return nil
}

func (repo *memoryHealthRecordRepo) DeleteForUser(userID uint, recordID uint) (bool, error) {
	if repo.err != nil {
		return false, repo.err
	}
	record, ok := repo.records[recordID]
	if !ok || record.UserID != userID {
		return false, nil
	}
	delete(repo.records, recordID)
	return true, nil
}

type memoryBloodDataRepo struct {
	entries map[uint]models.BloodData
	tests   map[uint]models.CPXTest
	nextID  uint
}

func newMemoryBloodDataRepo() *memoryBloodDataRepo {
	return &memoryBloodDataRepo{
		entries: make(map[uint]models.BloodData),
		tests:   make(map[uint]models.CPXTest),
		nextID:  1,
	}
}

func (repo *memoryBloodDataRepo) ListByUser(userID uint) ([]models.BloodData, error) {
	result := make([]models.BloodData, 0)
	for _, entry := range repo.entries {
		if entry.UserID != userID {
			continue
		}
		entry.CPXTests = []models.CPXTest{}
		for _, test := range repo.tests {
			if test.BloodDataID == entry.ID {
				entry.CPXTests = append(entry.CPXTests, test)
			}
		}
		result = append(result, entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TestDate > result[j].TestDate })
	return result, nil
}

func (repo *memoryBloodDataRepo) FindByID(entryID uint) (models.BloodData, bool, error) {
	entry, ok := repo.entries[entryID]
	if !ok {
		return models.BloodData{}, false, nil
	}
	entry.CPXTests = []models.CPXTest{}
	for _, test := range repo.tests {
		if test.BloodDataID == entry.ID {
			entry.CPXTests = append(entry.CPXTests, test)
		}
	}
	return entry, true, nil
}

func (repo *memoryBloodDataRepo) Create(entry *models.BloodData) error {
	entry.ID = repo.nextID
	repo.nextID++
	repo.entries[entry.ID] = *entry
	return nil
}

func (repo *memoryBloodDataRepo) Save(entry *models.BloodData) error {
	stored := *entry
	stored.CPXTests = nil
	repo.entries[entry.ID] = stored
	return nil
}

func (repo *memoryBloodDataRepo) DeleteForUser(userID uint, entryID uint) (bool, error) {
	entry, ok := repo.entries[entryID]
	if !ok || entry.UserID != userID {
		return false, nil
	}
	delete(repo.entries, entryID)
	for testID, test := range repo.tests {
		if test.BloodDataID == entryID {
			delete(repo.tests, testID)
		}
	}
	return true, nil
}

func (repo *memoryBloodDataRepo) FindCPXForUser(userID uint, cpxID uint) (models.CPXTest, bool, error) {
	test, ok := repo.tests[cpxID]
	if !ok {
		return models.CPXTest{}, false, nil
	}
	parent, ok := repo.entries[test.BloodDataID]
	if !ok || parent.UserID != userID {
		return models.CPXTest{}, false, nil
	}
	return test, true, nil
}

func (repo *memoryBloodDataRepo) CreateCPX(test *models.CPXTest) error {
	test.ID = repo.nextID
	repo.nextID++
	repo.tests[test.ID] = *test
	return nil
}

func (repo *memoryBloodDataRepo) SaveCPX(test *models.CPXTest) error {
	repo.tests[test.ID] = *test
	return nil
}

func (repo *memoryBloodDataRepo) DeleteCPX(cpxID uint) error {
	delete(repo.tests, cpxID)
	return nil
}

type memoryCommentRepo struct {
	comments []models.Comment
}

func (repo *memoryCommentRepo) Create(comment *models.Comment) error {
	comment.ID = uint(len(repo.comments) + 1)
	comment.CreatedAt = stubClockStart.Add(time.Duration(comment.ID) * time.Minute)
	repo.comments = append(repo.comments, *comment)
	return nil
}

func (repo *memoryCommentRepo) ListByPatient(patientID uint) ([]models.Comment, error) {
	result := make([]models.Comment, 0)
	for index := len(repo.comments) - 1; index >= 0; index-- {
		if repo.comments[index].PatientID == patientID {
			result = append(result, repo.comments[index])
		}
	}
	return result, nil
}

type memoryFamilyRepo struct {
	invites []models.FamilyInvite
	members []models.FamilyMember
}

func (repo *memoryFamilyRepo) CreateInvite(invite *models.FamilyInvite) error {
	invite.ID = uint(len(repo.invites) + 1)
	repo.invites = append(repo.invites, *invite)
	return nil
}

func (repo *memoryFamilyRepo) FindInviteByTokenHash(tokenHash string) (models.FamilyInvite, bool, error) {
	for _, invite := range repo.invites {
		if invite.TokenHash == tokenHash {
			return invite, true, nil
		}
	}
	return models.FamilyInvite{}, false, nil
}

func (repo *memoryFamilyRepo) RedeemInvite(inviteID uint, member *models.FamilyMember, usedAt time.Time) (bool, error) {
	for index := range repo.invites {
		if repo.invites[index].ID != inviteID {
			continue
		}
		if repo.invites[index].UsedAt != nil {
			return false, nil
		}
		repo.invites[index].UsedAt = &usedAt
		member.ID = uint(len(repo.members) + 1)
		repo.members = append(repo.members, *member)
		return true, nil
	}
	return false, nil
}

func (repo *memoryFamilyRepo) IsLinked(patientID uint, memberUserID uint) (bool, error) {
	for _, member := range repo.members {
		if member.PatientID == patientID && member.MemberUserID == memberUserID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *memoryFamilyRepo) ListMembersByPatient(patientID uint) ([]models.FamilyMember, error) {
	result := make([]models.FamilyMember, 0)
	for _, member := range repo.members {
		if member.PatientID == patientID {
			result = append(result, member)
		}
	}
	return result, nil
}

func (repo *memoryFamilyRepo) ListMembershipsByMember(memberUserID uint) ([]models.FamilyMember, error) {
	result := make([]models.FamilyMember, 0)
	for _, member := range repo.members {
		if member.MemberUserID == memberUserID {
			result = append(result, member)
		}
	}
	return result, nil
}

func (repo *memoryFamilyRepo) FindMemberByID(memberID uint) (models.FamilyMember, bool, error) {
	for _, member := range repo.members {
		if member.ID == memberID {
			return member, true, nil
		}
	}
	return models.FamilyMember{}, false, nil
}

func (repo *memoryFamilyRepo) SaveMember(member *models.FamilyMember) error {
	for index := range repo.members {
		if repo.members[index].ID == member.ID {
			repo.members[index] = *member
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type stubLineClient struct {
	claimsByToken map[string]line.IDTokenClaims
	profile       line.Profile
	profileErr    error
}

func (stub *stubLineClient) VerifyIDToken(raw string) (line.IDTokenClaims, error) {
	claims, ok := stub.claimsByToken[raw]
	if !ok {
		return line.IDTokenClaims{}, line.ErrInvalidIDToken
	}
	return claims, nil
}

func (stub *stubLineClient) FetchProfile(context.Context, string) (line.Profile, error) {
	if stub.profileErr != nil {
		return line.Profile{}, stub.profileErr
	}
	return stub.profile, nil
}

func lineClaims(subject string, name string) line.IDTokenClaims {
	claims := line.IDTokenClaims{Name: name}
	claims.Subject = subject
	return claims
}

type pushedMessage struct {
	to   string
	text string
}

type stubPusher struct {
	disabled bool
	err      error
	messages []pushedMessage
}

func (stub *stubPusher) CanPush() bool {
	return !stub.disabled
}

func (stub *stubPusher) PushMessage(_ context.Context, to string, text string) error {
	if stub.err != nil {
		return stub.err
	}
	stub.messages = append(stub.messages, pushedMessage{to: to, text: text})
	return nil
}

type stubTranslator struct{}

func (stubTranslator) Translate(_ string, key string) string {
	return key
}

func (stubTranslator) Translatef(_ string, key string, args ...any) string {
	return key + ":" + fmt.Sprint(args...)
}
