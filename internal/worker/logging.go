package worker

import (
	"fmt"

	"github.com/rs/zerolog"
)

// asynqLogger routes asynq's own logging into zerolog.
type asynqLogger struct {
	logger zerolog.Logger
}

func (adapter asynqLogger) Debug(args ...interface{}) {
	adapter.logger.Debug().Msg(fmt.Sprint(args...))
}

func (adapter asynqLogger) Info(args ...interface{}) {
	adapter.logger.Info().Msg(fmt.Sprint(args...))
}

func (adapter asynqLogger) Warn(args ...interface{}) {
	adapter.logger.Warn().Msg(fmt.Sprint(args...))
}

func (adapter asynqLogger) Error(args ...interface{}) {
	adapter.logger.Error().Msg(fmt.Sprint(args...))
}

func (adapter asynqLogger) Fatal(args ...interface{}) {
	adapter.logger.Error().Msg(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}
