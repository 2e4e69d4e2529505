package visa

import (
	"time"

	"github.com/rs/zerolog"
)

// Placeholder is the canned response text returned by the logger backend.
const Placeholder = "0"

// LoggerBackend satisfies the backend contract without any physical I/O.
// Writes are logged, queries and reads are logged and answered with the
// Placeholder text. It lets driver logic run deterministically when no
// hardware is present.
type LoggerBackend struct {
	logger zerolog.Logger
}

// NewLoggerBackend builds a logger backend. It is a Factory and can be
// installed process wide via SelectFactory.
func NewLoggerBackend(opts Options) (Backend, error) {
	return &LoggerBackend{logger: opts.Logger.With().Str("backend", "logger").Str("location", opts.Location).Logger()}, nil
}

func (b *LoggerBackend) Write(message string, _ time.Duration) error {
	b.logger.Info().Str("message", message).Msg("write")
	return nil
}

func (b *LoggerBackend) Query(message string, _ time.Duration) (string, error) {
	b.logger.Info().Str("message", message).Msg("query")
	return Placeholder, nil
}

func (b *LoggerBackend) Read(_ time.Duration) (string, error) {
	b.logger.Info().Msg("read")
	return Placeholder, nil
}

func (b *LoggerBackend) WriteAndRead(message string, _ time.Duration) (string, error) {
	b.logger.Info().Str("message", message).Msg("query")
	return Placeholder, nil
}

func (b *LoggerBackend) Close() error {
	b.logger.Info().Msg("close")
	return nil
}
