package api

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/terraincognita07/heartnote/internal/db"
	"github.com/terraincognita07/heartnote/internal/events"
	"github.com/terraincognita07/heartnote/internal/i18n"
	"github.com/terraincognita07/heartnote/internal/line"
	"github.com/terraincognita07/heartnote/internal/services"
	"github.com/terraincognita07/heartnote/internal/storage"
	"gorm.io/gorm"
)

const (
	authCookieName     = "heartnote_auth"
	languageCookieName = "heartnote_lang"
	lineIDTokenHeader  = "X-Line-Id-Token"

	authCookiePurpose = "auth"
	authTokenTTL      = 30 * 24 * time.Hour

	loginAttemptLimit  = 5
	loginAttemptWindow = 15 * time.Minute
)

// Options configures a Handler. Only Database and SecretKey are required;
// the rest fall back to working defaults.
type Options struct {
	Database        *gorm.DB
	SecretKey       string
	CookieSecure    bool
	Development     bool
	Location        *time.Location
	I18n            *i18n.Manager
	Logger          zerolog.Logger
	LineClient      *line.Client
	Publisher       events.Publisher
	Archiver        *storage.S3Archiver
	FamilyInviteTTL time.Duration
	ReminderEnabled bool
}

type Handler struct {
	db           *gorm.DB
	secretKey    []byte
	cookieSecure bool
	development  bool
	location     *time.Location
	i18n         *i18n.Manager
	logger       zerolog.Logger
	cookieCodec  *secureCookieCodec
	loginLimiter *attemptLimiter
	publisher    events.Publisher
	archiver     *storage.S3Archiver
	now          func() time.Time

	repositories        *db.Repositories
	identityService     *services.IdentityService
	authService         *services.AuthService
	directoryService    *services.DirectoryService
	consentService      *services.ConsentService
	commentService      *services.CommentService
	healthRecordService *services.HealthRecordService
	bloodDataService    *services.BloodDataService
	familyService       *services.FamilyService
	exportService       *services.ExportService
	notificationService *services.NotificationService
}

func NewHandler(options Options) (*Handler, error) {
	if options.Database == nil {
		return nil, errors.New("database is required")
	}
	if strings.TrimSpace(options.SecretKey) == "" {
		return nil, errors.New("secret key is required")
	}

	codec, err := newSecureCookieCodec([]byte(options.SecretKey))
	if err != nil {
		return nil, err
	}

	manager := options.I18n
	if manager == nil {
		manager, err = i18n.NewEmbeddedManager(i18n.LangJA)
		if err != nil {
			return nil, err
		}
	}

	location := options.Location
	if location == nil {
		location = time.UTC
	}

	publisher := options.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	handler := &Handler{
		db:           options.Database,
		secretKey:    []byte(options.SecretKey),
		cookieSecure: options.CookieSecure,
		development:  options.Development,
		location:     location,
		i18n:         manager,
		logger:       options.Logger,
		cookieCodec:  codec,
		loginLimiter: newAttemptLimiter(),
		publisher:    publisher,
		archiver:     options.Archiver,
		now:          time.Now,
	}
	handler.wireServices(options)
	return handler, nil
}

// NotificationService exposes the notifier so the server can run the daily
// reminder loop next to the HTTP listener.
func (handler *Handler) NotificationService() *services.NotificationService {
	return handler.notificationService
}
