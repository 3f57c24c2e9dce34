package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/terraincognita07/heartnote/internal/line"
	"github.com/terraincognita07/heartnote/internal/models"
	"github.com/terraincognita07/heartnote/internal/security"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	MaxDisplayNameLength    = 64
	temporaryPasswordLength = 12
	defaultLineUserName     = "LINE"
)

var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidRole            = errors.New("invalid role")
	ErrInvalidDisplayName     = errors.New("invalid display name")
	ErrInvalidCurrentPassword = errors.New("invalid current password")
	ErrNewPasswordMustDiffer  = errors.New("new password must differ")
	ErrLineTokenInvalid       = errors.New("line token invalid")
	ErrAuthUserNotFound       = errors.New("auth user not found")
	ErrAuthLoadFailed         = errors.New("load user failed")
	ErrAuthSaveFailed         = errors.New("save user failed")
)

type AuthUserRepository interface {
	ExistsByNormalizedEmail(email string) (bool, error)
	FindByNormalizedEmail(email string) (models.User, error)
	FindByID(userID uint) (models.User, error)
	FindByLineUserID(lineUserID string) (models.User, bool, error)
	Create(user *models.User) error
	UpdateRole(userID uint, role string) error
	UpdatePassword(userID uint, passwordHash string, mustChangePassword bool) error
}

type AuthSessionRepository interface {
	Create(session *models.Session) error
	Revoke(tokenID string, at time.Time) error
}

type LineAuthClient interface {
	VerifyIDToken(raw string) (line.IDTokenClaims, error)
	FetchProfile(ctx context.Context, accessToken string) (line.Profile, error)
}

type SignupInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        string
}

type LineLoginInput struct {
	IDToken     string
	AccessToken string
	Role        string
}

type AuthService struct {
	users    AuthUserRepository
	sessions AuthSessionRepository
	line     LineAuthClient
	now      func() time.Time
}

func NewAuthService(users AuthUserRepository, sessions AuthSessionRepository, lineClient LineAuthClient) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		line:     lineClient,
		now:      time.Now,
	}
}

func (service *AuthService) Signup(input SignupInput) (models.User, error) {
	email, password, err := NormalizeCredentialsInput(input.Email, input.Password)
	if err != nil {
		return models.User{}, err
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return models.User{}, err
	}
	role, err := normalizeRequestedRole(input.Role)
	if err != nil {
		return models.User{}, err
	}
	displayName, err := NormalizeDisplayName(input.DisplayName)
	if err != nil {
		return models.User{}, err
	}

	exists, err := service.users.ExistsByNormalizedEmail(email)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrAuthLoadFailed, err)
	}
	if exists {
		return models.User{}, ErrEmailAlreadyRegistered
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Role:         role,
		DisplayName:  displayName,
		Email:        &email,
		PasswordHash: string(passwordHash),
	}
	if err := service.users.Create(&user); err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrAuthSaveFailed, err)
	}
	return user, nil
}

// Authenticate checks email and password. Unknown emails and wrong passwords
// yield the same error.
func (service *AuthService) Authenticate(emailRaw string, passwordRaw string) (models.User, error) {
	email, password, err := NormalizeCredentialsInput(emailRaw, passwordRaw)
	if err != nil {
		return models.User{}, err
	}

	user, err := service.users.FindByNormalizedEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrAuthCredentialsInvalid
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrAuthLoadFailed, err)
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return models.User{}, ErrAuthCredentialsInvalid
	}
	return user, nil
}

// LineLogin signs a LINE user in, creating the account on first login. A
// request for the medical role promotes a patient; nothing demotes.
func (service *AuthService) LineLogin(ctx context.Context, input LineLoginInput) (models.User, bool, error) {
	if service.line == nil {
		return models.User{}, false, ErrLineTokenInvalid
	}
	requestedRole, err := normalizeRequestedRole(input.Role)
	if err != nil {
		return models.User{}, false, err
	}

	claims, err := service.line.VerifyIDToken(input.IDToken)
	if err != nil {
		return models.User{}, false, ErrLineTokenInvalid
	}

	user, found, err := service.users.FindByLineUserID(claims.Subject)
	if err != nil {
		return models.User{}, false, fmt.Errorf("%w: %w", ErrAuthLoadFailed, err)
	}

	if found {
		promoted := models.PromoteRole(user.Role, requestedRole)
		if promoted != user.Role {
			if err := service.users.UpdateRole(user.ID, promoted); err != nil {
				return models.User{}, false, fmt.Errorf("%w: %w", ErrAuthSaveFailed, err)
			}
			user.Role = promoted
		}
		return user, false, nil
	}

	lineUserID := claims.Subject
	user = models.User{
		Role:        models.PromoteRole(models.RolePatient, requestedRole),
		DisplayName: service.resolveLineDisplayName(ctx, input.AccessToken, claims),
		LineUserID:  &lineUserID,
	}
	if err := service.users.Create(&user); err != nil {
		return models.User{}, false, fmt.Errorf("%w: %w", ErrAuthSaveFailed, err)
	}
	return user, true, nil
}

func (service *AuthService) resolveLineDisplayName(ctx context.Context, accessToken string, claims line.IDTokenClaims) string {
	if strings.TrimSpace(accessToken) != "" {
		if profile, err := service.line.FetchProfile(ctx, accessToken); err == nil && profile.UserID == claims.Subject {
			if name, err := NormalizeDisplayName(profile.DisplayName); err == nil {
				return name
			}
		}
	}
	if name, err := NormalizeDisplayName(claims.Name); err == nil {
		return name
	}
	return defaultLineUserName
}

func (service *AuthService) FindByID(userID uint) (models.User, error) {
	user, err := service.users.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrAuthUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrAuthLoadFailed, err)
	}
	return user, nil
}

func (service *AuthService) StartSession(userID uint, tokenID string, expiresAt time.Time) error {
	session := models.Session{
		UserID:    userID,
		TokenID:   tokenID,
		ExpiresAt: expiresAt,
	}
	if err := service.sessions.Create(&session); err != nil {
		return fmt.Errorf("%w: %w", ErrAuthSaveFailed, err)
	}
	return nil
}

func (service *AuthService) EndSession(tokenID string) error {
	if strings.TrimSpace(tokenID) == "" {
		return nil
	}
	if err := service.sessions.Revoke(tokenID, service.now()); err != nil {
		return fmt.Errorf("%w: %w", ErrAuthSaveFailed, err)
	}
	return nil
}

// ChangePassword replaces the password and clears a forced change. Accounts
// created through LINE have no password yet and skip the current check.
func (service *AuthService) ChangePassword(userID uint, currentPassword string, newPassword string) error {
	user, err := service.FindByID(userID)
	if err != nil {
		return err
	}

	current := strings.TrimSpace(currentPassword)
	next := strings.TrimSpace(newPassword)
	if user.PasswordHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
			return ErrInvalidCurrentPassword
		}
		if current == next {
			return ErrNewPasswordMustDiffer
		}
	}
	if err := ValidatePasswordStrength(next); err != nil {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := service.users.UpdatePassword(userID, string(passwordHash), false); err != nil {
		return fmt.Errorf("%w: %w", ErrAuthSaveFailed, err)
	}
	return nil
}

// IssueTemporaryPassword sets a random password on the account and forces a
// change at next login. It returns the plain password for the operator.
func (service *AuthService) IssueTemporaryPassword(emailRaw string) (string, error) {
	email := NormalizeAuthEmail(emailRaw)
	if email == "" {
		return "", ErrAuthCredentialsInvalid
	}

	user, err := service.users.FindByNormalizedEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrAuthUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthLoadFailed, err)
	}

	temporaryPassword, err := security.RandomString(temporaryPasswordLength, security.TokenAlphabet)
	if err != nil {
		return "", fmt.Errorf("generate temporary password: %w", err)
	}
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(temporaryPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash temporary password: %w", err)
	}
	if err := service.users.UpdatePassword(user.ID, string(passwordHash), true); err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthSaveFailed, err)
	}
	return temporaryPassword, nil
}

func NormalizeDisplayName(raw string) (string, error) {
	name := strings.Join(strings.Fields(raw), " ")
	if name == "" || utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return "", ErrInvalidDisplayName
	}
	return name, nil
}

func normalizeRequestedRole(raw string) (string, error) {
	role := trimLower(raw)
	if role == "" {
		return models.RolePatient, nil
	}
	if !models.IsValidRole(role) {
		return "", ErrInvalidRole
	}
	return role, nil
}

// SetPassword replaces the password for an operator-supplied value. The user
// is not forced to change it again.
func (service *AuthService) SetPassword(emailRaw string, passwordRaw string) error {
	email, password, err := NormalizeCredentialsInput(emailRaw, passwordRaw)
	if err != nil {
		return err
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return err
	}

	user, err := service.users.FindByNormalizedEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAuthUserNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthLoadFailed, err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := service.users.UpdatePassword(user.ID, string(passwordHash), false); err != nil {
		return fmt.Errorf("%w: %w", ErrAuthSaveFailed, err)
	}
	return nil
}
