package monitoring

import "log"

// Logf is the package-level diagnostic logger for the dispersion pipeline.
// It defaults to log.Printf but may be replaced by SetLogger, so a long batch
// of solver invocations can redirect or mute its progress reporting.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
