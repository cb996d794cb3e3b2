package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns a structured logger tagged with the service name.
func New(service string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}
