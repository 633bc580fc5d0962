// Package logging configures the global zerolog logger.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs a console writer on stderr and sets the global level.
// Level comes from SYNAPSE_LOG (debug, info, warn, error); default info.
func Setup() {
	level := zerolog.InfoLevel
	switch strings.ToLower(os.Getenv("SYNAPSE_LOG")) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
}
