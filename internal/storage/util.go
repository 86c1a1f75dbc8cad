package storage

import (
	"os"
	"time"
)

// DateLayout is the calendar-day key format used throughout storage.
const DateLayout = "2006-01-02"

// EnsureDir ensures a directory exists with default permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// ParseDate parses a YYYY-MM-DD date key.
func ParseDate(date string) (time.Time, error) {
	return time.Parse(DateLayout, date)
}
