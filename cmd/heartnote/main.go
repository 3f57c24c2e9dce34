package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/terraincognita07/heartnote/internal/api"
	"github.com/terraincognita07/heartnote/internal/cli"
	"github.com/terraincognita07/heartnote/internal/config"
	"github.com/terraincognita07/heartnote/internal/db"
	"github.com/terraincognita07/heartnote/internal/events"
	"github.com/terraincognita07/heartnote/internal/i18n"
	"github.com/terraincognita07/heartnote/internal/line"
	"github.com/terraincognita07/heartnote/internal/logging"
	"github.com/terraincognita07/heartnote/internal/services"
	"github.com/terraincognita07/heartnote/internal/storage"
	"github.com/terraincognita07/heartnote/internal/worker"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:           "heartnote",
		Short:         "Cardiac rehabilitation journal API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd(), resetPasswordCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			database, err := db.Open(cfg.DatabaseURL, logger)
			if err != nil {
				return fmt.Errorf("database init failed: %w", err)
			}
			defer closeDatabase(database, logger)

			version, dirty, err := db.SchemaVersion(database)
			if err != nil {
				return err
			}
			logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrations applied")
			return nil
		},
	}
}

func resetPasswordCmd() *cobra.Command {
	var email string
	var interactive bool

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Issue a temporary password, or set one with --set",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			database, err := db.Open(cfg.DatabaseURL, logger)
			if err != nil {
				return fmt.Errorf("database init failed: %w", err)
			}
			defer closeDatabase(database, logger)

			repositories := db.NewRepositories(database)
			auth := services.NewAuthService(repositories.Users, repositories.Sessions, nil)
			if interactive {
				return cli.SetPassword(auth, email, cli.TerminalPasswordReader(os.Stdin), cmd.OutOrStdout())
			}
			return cli.ResetPassword(auth, email, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().BoolVar(&interactive, "set", false, "prompt for the new password instead of generating one")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// loadConfig reads and validates configuration, then builds the logger.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logging.New(cfg.Env, cfg.LogLevel), nil
}

func runServer() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	location, err := cfg.Location()
	if err != nil {
		return err
	}
	port, err := config.ValidatePort(cfg.Port)
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	defer closeDatabase(database, logger)

	i18nManager, err := i18n.NewEmbeddedManager(cfg.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("i18n init failed: %w", err)
	}

	lifecycleCtx, cancelLifecycle := context.WithCancel(context.Background())
	defer cancelLifecycle()

	archiver, err := storage.NewS3Archiver(lifecycleCtx, cfg.ExportS3Bucket)
	if err != nil {
		return fmt.Errorf("export storage init failed: %w", err)
	}

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("close event publisher")
		}
	}()

	var lineClient *line.Client
	if cfg.LineConfigured() {
		lineClient = line.NewClient(line.Config{
			ChannelID:          cfg.LineChannelID,
			ChannelSecret:      cfg.LineChannelSecret,
			ChannelAccessToken: cfg.LineChannelAccessToken,
			APIBaseURL:         cfg.LineAPIBaseURL,
		})
	} else {
		logger.Info().Msg("LINE login disabled: LINE_CHANNEL_ID or LINE_CHANNEL_SECRET not set")
	}

	handler, err := api.NewHandler(api.Options{
		Database:        database,
		SecretKey:       cfg.SecretKey,
		CookieSecure:    cfg.CookieSecure,
		Development:     cfg.IsDev(),
		Location:        location,
		I18n:            i18nManager,
		Logger:          logger,
		LineClient:      lineClient,
		Publisher:       publisher,
		Archiver:        archiver,
		FamilyInviteTTL: cfg.FamilyInviteTTL,
		ReminderEnabled: cfg.ReminderEnabled,
	})
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}

	app := api.NewApp(handler,
		compress.New(),
		csrf.New(csrfMiddlewareConfig(cfg.CookieSecure)),
	)

	if cfg.ReminderEnabled && cfg.RedisURL != "" {
		stopWorker, err := worker.Start(worker.Config{
			RedisURL: cfg.RedisURL,
			Schedule: cfg.ReminderSchedule,
			Location: location,
		}, handler.NotificationService(), logger)
		if err != nil {
			return fmt.Errorf("reminder worker init failed: %w", err)
		}
		defer stopWorker()
	} else {
		handler.NotificationService().Start(lifecycleCtx)
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	go func() {
		<-sigCtx.Done()
		cancelLifecycle()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	logger.Info().
		Str("port", port).
		Str("env", cfg.Env).
		Str("tz", location.String()).
		Bool("line", lineClient != nil).
		Bool("export_archive", archiver.Configured()).
		Msg("heartnote listening")
	if err := app.Listen(":" + port); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}

// csrfMiddlewareConfig protects cookie-authenticated writes. The token is
// read from the X-CSRF-Token header, so the cookie must stay readable by
// the browser client.
func csrfMiddlewareConfig(cookieSecure bool) csrf.Config {
	return csrf.Config{
		Next:           api.SkipCSRF,
		KeyLookup:      "header:" + csrf.HeaderName,
		CookieName:     "heartnote_csrf",
		CookieSameSite: "Lax",
		CookieHTTPOnly: false,
		CookieSecure:   cookieSecure,
		Expiration:     12 * time.Hour,
		ContextKey:     "csrf",
	}
}

func closeDatabase(database *gorm.DB, logger zerolog.Logger) {
	sqlDB, err := database.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn().Err(err).Msg("close database")
	}
}
