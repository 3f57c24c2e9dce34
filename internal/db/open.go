package db

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "postgres"
)

var ErrUnsupportedDatabaseURL = errors.New("unsupported database url")

type gormLogWriter interface {
	Printf(format string, args ...any)
}

// Open connects to the database named by databaseURL and applies pending
// migrations. postgres:// and postgresql:// URLs select PostgreSQL; sqlite://
// URLs and bare file paths select the embedded SQLite driver.
func Open(databaseURL string, logger zerolog.Logger) (*gorm.DB, error) {
	dialect, target, err := ParseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	writer := zerologWriter{logger: logger.With().Str("component", "gorm").Logger()}
	switch dialect {
	case dialectPostgres:
		return openPostgres(target, writer)
	default:
		return openSQLite(target, writer)
	}
}

func ParseDatabaseURL(raw string) (string, string, error) {
	value := strings.TrimSpace(raw)
	lower := strings.ToLower(value)
	switch {
	case value == "":
		return "", "", fmt.Errorf("%w: empty", ErrUnsupportedDatabaseURL)
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return dialectPostgres, value, nil
	case strings.HasPrefix(lower, "sqlite://"):
		path := value[len("sqlite://"):]
		if strings.TrimSpace(path) == "" {
			return "", "", fmt.Errorf("%w: sqlite path is empty", ErrUnsupportedDatabaseURL)
		}
		return dialectSQLite, path, nil
	case strings.Contains(lower, "://"):
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedDatabaseURL, value[:strings.Index(value, "://")])
	default:
		return dialectSQLite, value, nil
	}
}

func newGormLogger(writer gormLogWriter) gormlogger.Interface {
	return gormlogger.New(writer, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func stdoutLogWriter() gormLogWriter {
	return log.New(os.Stdout, "\r\n", log.LstdFlags)
}

type zerologWriter struct {
	logger zerolog.Logger
}

func (writer zerologWriter) Printf(format string, args ...any) {
	writer.logger.Warn().Msgf(format, args...)
}
