// Package logger provides the process-wide structured logger.
package logger

import "go.uber.org/zap"

// Log is the package-level logger every component writes through. It is a
// no-op logger until Init is called, so packages can log during init()
// without panicking in tests that never call Init.
var Log *zap.Logger = zap.NewNop()

// Init configures Log: development config (caller + stacktrace, console
// encoding) when debug is true, production config (JSON, info level)
// otherwise.
func Init(debug bool) error {
	var l *zap.Logger
	var err error
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	Log = l
	return nil
}

// Sync flushes any buffered log entries. Deferred from main.
func Sync() {
	_ = Log.Sync()
}
