// Package logging configures the process-wide zerolog logger.
package logging

import (
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures zerolog with the given level and format ("json" or
// "console"), and redirects the standard library logger into it so any
// stray log.Print calls in dependencies still end up structured.
func Init(level, format string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var output zerolog.ConsoleWriter
	useConsole := strings.EqualFold(format, "console")

	if useConsole {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	lvl := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil {
		lvl = l
	}
	zerolog.SetGlobalLevel(lvl)

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}
