// Package logger adapts rs/zerolog to core/logger.Logger.
package logger

import corelogger "github.com/kilianp07/chargeflex/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// New returns a Logger for the given component. The output format is detected
// via the APP_ENV variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}
