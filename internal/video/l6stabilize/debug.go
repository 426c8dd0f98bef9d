package l6stabilize

import (
	"io"
	"log"
)

var (
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters routes the stabilizer's log streams:
//
//   - ops: stream aborts and empty streams
//   - diag: stream geometry, skipped pyramid levels and the run summary
//   - trace: one line per stabilized frame with its flow and correction
//
// A nil writer silences its stream. All three are silent until set.
func SetLogWriters(ops, diag, trace io.Writer) {
	opsLogger = newLogger(ops)
	diagLogger = newLogger(diag)
	traceLogger = newLogger(trace)
}

func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, "[stabilize] ", log.LstdFlags|log.Lmicroseconds)
}

func opsf(format string, args ...interface{}) {
	if opsLogger != nil {
		opsLogger.Printf(format, args...)
	}
}

func diagf(format string, args ...interface{}) {
	if diagLogger != nil {
		diagLogger.Printf(format, args...)
	}
}

// tracef is called once per frame; keep its arguments cheap.
func tracef(format string, args ...interface{}) {
	if traceLogger != nil {
		traceLogger.Printf(format, args...)
	}
}
