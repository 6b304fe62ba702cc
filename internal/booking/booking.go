package booking

import (
	"fmt"
	"time"
)

// TimeOfDay is a clock time within a single day, expressed as minutes since
// midnight. It carries no date component.
type TimeOfDay int

// MaxDuration bounds the span of a single reservation window.
const MaxDuration = 8 * time.Hour

const minutesPerDay = 24 * 60

// ParseTimeOfDay parses a 24-hour "HH:MM" clock value.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	var hours, minutes int
	if _, err := fmt.Sscanf(value, "%d:%d", &hours, &minutes); err != nil {
		return 0, fmt.Errorf("booking: invalid clock time %q", value)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("booking: invalid clock time %q", value)
	}
	return TimeOfDay(hours*60 + minutes), nil
}

// String renders the time as a zero-padded 24-hour "HH:MM" value.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Valid reports whether the value falls within a single day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < minutesPerDay
}

// Minutes returns the value as minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return int(t)
}

// Window is a half-open [Start, End) span of a single day.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Valid reports whether the window is well formed: both bounds are clock
// times and the end is strictly after the start.
func (w Window) Valid() bool {
	return w.Start.Valid() && w.End.Valid() && w.End > w.Start
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return time.Duration(w.End-w.Start) * time.Minute
}

// Overlaps reports whether two half-open windows intersect. Windows that
// merely touch at a boundary do not overlap, so back-to-back bookings are
// always compatible.
func (w Window) Overlaps(other Window) bool {
	return w.Start < other.End && other.Start < w.End
}

// Date is a calendar date with no time component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses an ISO "YYYY-MM-DD" calendar date.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return Date{}, fmt.Errorf("booking: invalid date %q", value)
	}
	return DateOf(t), nil
}

// DateOf truncates an instant to its calendar date in the instant's location.
func DateOf(t time.Time) Date {
	year, month, day := t.Date()
	return Date{Year: year, Month: month, Day: day}
}

// String renders the date as "YYYY-MM-DD".
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns the midnight instant of the date in UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// After reports whether d falls strictly after other.
func (d Date) After(other Date) bool {
	return d.Time().After(other.Time())
}

// AddDays returns the date shifted by the given number of days.
func (d Date) AddDays(days int) Date {
	return DateOf(d.Time().AddDate(0, 0, days))
}

// Status tracks the lifecycle of a reservation request.
type Status string

const (
	// StatusPending marks a freshly submitted request awaiting review.
	StatusPending Status = "pending"
	// StatusApproved marks a request granted by a reviewer. Terminal.
	StatusApproved Status = "approved"
	// StatusRejected marks a request denied by a reviewer or displaced by an
	// approved conflicting request. Terminal.
	StatusRejected Status = "rejected"
)

// ParseStatus validates a stored or submitted status value.
func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(value), nil
	}
	return "", fmt.Errorf("booking: invalid status %q", value)
}

// Terminal reports whether no further transition may leave the status.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}
