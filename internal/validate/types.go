// SPDX-License-Identifier: MIT
package validate

import (
	"strings"

	"github.com/rs/zerolog"
)

// configLevels are the levels an operator may configure. zerolog also knows
// fatal, panic and disabled; those would silence request and relay logs.
var configLevels = map[string]zerolog.Level{
	"trace": zerolog.TraceLevel,
	"debug": zerolog.DebugLevel,
	"info":  zerolog.InfoLevel,
	"warn":  zerolog.WarnLevel,
	"error": zerolog.ErrorLevel,
}

// ErrInvalidLogLevel is returned by ParseLogLevel.
var ErrInvalidLogLevel = &Error{
	Field:   "logLevel",
	Message: "invalid log level (must be: trace, debug, info, warn, error)",
}

// ParseLogLevel maps a configured level name to its zerolog level.
func ParseLogLevel(s string) (zerolog.Level, error) {
	lvl, ok := configLevels[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return zerolog.NoLevel, ErrInvalidLogLevel
	}
	return lvl, nil
}
