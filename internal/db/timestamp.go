package db

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is how timestamps are written: UTC and fixed width, so the
// text order of the column is chronological.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DateLayout is how due dates are written
const DateLayout = "2006-01-02"

// naive layouts are read as local time; the earlier desktop app wrote them
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp is a nullable timestamp column that tolerates garbage.
// A non-empty value that cannot be parsed is kept in Raw and scans without
// error, so one bad row never fails a whole listing.
type Timestamp struct {
	Time  time.Time
	Valid bool
	Raw   string
}

// NewTimestamp returns a valid timestamp
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, Valid: true}
}

// Malformed reports whether the stored text could not be parsed
func (t Timestamp) Malformed() bool {
	return !t.Valid && t.Raw != ""
}

// Get returns the time, or a *MalformedTimestampError when the stored text
// was unparsable. ok is false for a NULL column.
func (t Timestamp) Get(field string) (ts time.Time, ok bool, err error) {
	if t.Valid {
		return t.Time, true, nil
	}
	if t.Malformed() {
		_, perr := ParseTimestamp(t.Raw)
		return time.Time{}, false, &MalformedTimestampError{Field: field, Value: t.Raw, Err: perr}
	}
	return time.Time{}, false, nil
}

// Scan implements sql.Scanner
func (t *Timestamp) Scan(value interface{}) error {
	*t = Timestamp{}
	if v, ok := value.(time.Time); ok {
		t.Time, t.Valid = v, true
		return nil
	}
	s, err := scanText(value)
	if err != nil {
		return fmt.Errorf("scanning timestamp: %w", err)
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		t.Raw = s
		return nil
	}
	t.Time, t.Valid = parsed, true
	return nil
}

// Value implements driver.Valuer. Malformed text is written back untouched.
func (t Timestamp) Value() (driver.Value, error) {
	if t.Valid {
		return FormatTimestamp(t.Time), nil
	}
	if t.Raw != "" {
		return t.Raw, nil
	}
	return nil, nil
}

// FormatTimestamp renders t in TimestampLayout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts RFC 3339 text, SQLite's CURRENT_TIMESTAMP form and
// naive ISO-8601 text in local time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// parseDate reads a due date column; anything that is not a date reads as NULL
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := ParseTimestamp(s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// dateValue is the column value of an optional due date
func dateValue(d sql.NullTime) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Time.Format(DateLayout)
}
