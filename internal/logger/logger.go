package logger

import (
	"os"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// New returns the process logger. It starts at debug; SetLevel raises the
// global threshold once configuration has been read.
func New() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Caller().
		Logger()

	logger = logger.Level(zerolog.DebugLevel)

	return logger
}

// SetLevel applies the configured level process-wide. The global filter also
// covers loggers handed out before configuration was loaded. An unparsable
// level is reported and the current threshold kept.
func SetLevel(raw string, logger zerolog.Logger) {
	level, err := zerolog.ParseLevel(raw)
	if err != nil {
		logger.Warn().Err(err).Str("log_level", raw).Msg("invalid log level, keeping current threshold")
		return
	}

	zerolog.SetGlobalLevel(level)
	logger.Info().Str("log_level", level.String()).Msg("log level applied")
}

var Module = fx.Provide(New)
