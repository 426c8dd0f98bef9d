package sqlite

import (
	"strings"
	"time"
)

const (
	busyRetries = 5
	busyBackoff = 10 * time.Millisecond
)

// retryOnBusy runs fn, retrying with exponential backoff while sqlite
// reports the database as locked.
func retryOnBusy(fn func() error) error {
	var err error
	for attempt := 0; attempt < busyRetries; attempt++ {
		if err = fn(); !isSQLiteBusy(err) {
			return err
		}
		time.Sleep(busyBackoff << attempt)
	}
	return err
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
