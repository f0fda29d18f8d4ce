// Package logging builds the component-scoped zerolog loggers used across
// the client.
package logging

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// SetLogSeverityFromEnv applies LOG_LEVEL globally, defaulting to INFO.
func SetLogSeverityFromEnv() {
	// an empty LOG_LEVEL parses to NoLevel without error
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err != nil || lvl == zerolog.NoLevel {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(lvl)
	}
}

func makeBold(str any, disabled bool) string {
	const colorBold = 1

	if disabled {
		return fmt.Sprintf("%s", str)
	}
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", colorBold, str)
}

func makeComponentFormatter(noColor bool) zerolog.Formatter {
	return func(c any) string {
		return makeBold(fmt.Sprintf("[%s]\t", c), noColor)
	}
}

// NewLogger returns a console logger tagged with the component name.
func NewLogger(component string) zerolog.Logger {
	noColor := os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stdout.Fd()))
	return zerolog.New(zerolog.ConsoleWriter{
		Out:              os.Stderr,
		TimeFormat:       time.DateTime,
		PartsOrder:       partsOrder(),
		FieldsExclude:    []string{FieldComponent},
		FormatFieldValue: makeComponentFormatter(noColor),
		NoColor:          noColor,
	}).
		With().
		Str(FieldComponent, component).
		Caller().
		Timestamp().
		Logger()
}

func partsOrder() []string {
	return []string{
		zerolog.TimestampFieldName,
		zerolog.LevelFieldName,
		FieldComponent,
		zerolog.CallerFieldName,
		zerolog.MessageFieldName,
	}
}
