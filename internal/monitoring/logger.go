// Package monitoring holds the process-wide diagnostic logger used by the
// stabilizer's supporting components (run log, plots, frame I/O, CLI).
package monitoring

import (
	"io"
	"log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger or SetWriter. Tests usually mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetWriter sends Logf output to w with microsecond timestamps. A nil
// writer mutes the logger.
func SetWriter(w io.Writer) {
	if w == nil {
		SetLogger(nil)
		return
	}
	SetLogger(log.New(w, "", log.LstdFlags|log.Lmicroseconds).Printf)
}
