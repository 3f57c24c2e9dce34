package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/terraincognita07/heartnote/internal/line"
	"github.com/terraincognita07/heartnote/internal/models"
	"gorm.io/gorm"
)

var (
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrIdentityLookupFailed = errors.New("identity lookup failed")
)

const (
	IdentitySourceSession = "session"
	IdentitySourceLine    = "line"
)

type Identity struct {
	UserID uint
	Role   string
	Source string
}

// SessionCredential is a decoded session token. It is only trusted after
// the stored session row is checked.
type SessionCredential struct {
	UserID  uint
	TokenID string
}

type IdentityCredentials struct {
	Session     *SessionCredential
	LineIDToken string
}

type IdentitySessionRepository interface {
	FindByTokenID(tokenID string) (models.Session, bool, error)
}

type IdentityUserRepository interface {
	FindByID(userID uint) (models.User, error)
	FindByLineUserID(lineUserID string) (models.User, bool, error)
}

type LineTokenVerifier interface {
	VerifyIDToken(raw string) (line.IDTokenClaims, error)
}

// IdentityService resolves a request's credentials to a user. A valid
// session wins over a LINE identity; an invalid session falls back to LINE.
type IdentityService struct {
	sessions IdentitySessionRepository
	users    IdentityUserRepository
	line     LineTokenVerifier
	now      func() time.Time
}

func NewIdentityService(sessions IdentitySessionRepository, users IdentityUserRepository, verifier LineTokenVerifier) *IdentityService {
	return &IdentityService{
		sessions: sessions,
		users:    users,
		line:     verifier,
		now:      time.Now,
	}
}

func (service *IdentityService) Resolve(credentials IdentityCredentials) (models.User, Identity, error) {
	if credentials.Session != nil {
		user, ok, err := service.resolveSession(*credentials.Session)
		if err != nil {
			return models.User{}, Identity{}, err
		}
		if ok {
			return user, Identity{UserID: user.ID, Role: user.Role, Source: IdentitySourceSession}, nil
		}
	}

	if token := strings.TrimSpace(credentials.LineIDToken); token != "" && service.line != nil {
		user, ok, err := service.resolveLine(token)
		if err != nil {
			return models.User{}, Identity{}, err
		}
		if ok {
			return user, Identity{UserID: user.ID, Role: user.Role, Source: IdentitySourceLine}, nil
		}
	}

	return models.User{}, Identity{}, ErrUnauthenticated
}

func (service *IdentityService) resolveSession(credential SessionCredential) (models.User, bool, error) {
	if credential.UserID == 0 || strings.TrimSpace(credential.TokenID) == "" {
		return models.User{}, false, nil
	}

	session, found, err := service.sessions.FindByTokenID(credential.TokenID)
	if err != nil {
		return models.User{}, false, fmt.Errorf("%w: %w", ErrIdentityLookupFailed, err)
	}
	if !found || session.UserID != credential.UserID || !session.ActiveAt(service.now()) {
		return models.User{}, false, nil
	}

	user, err := service.users.FindByID(credential.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("%w: %w", ErrIdentityLookupFailed, err)
	}
	return user, true, nil
}

func (service *IdentityService) resolveLine(rawToken string) (models.User, bool, error) {
	claims, err := service.line.VerifyIDToken(rawToken)
	if err != nil {
		return models.User{}, false, nil
	}

	user, found, err := service.users.FindByLineUserID(claims.Subject)
	if err != nil {
		return models.User{}, false, fmt.Errorf("%w: %w", ErrIdentityLookupFailed, err)
	}
	return user, found, nil
}
