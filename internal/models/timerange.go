package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidRange reports a malformed, zero or negative-duration time range.
var ErrInvalidRange = errors.New("invalid time range")

// MinutesPerDay is the length of a calendar day on the absolute timeline.
const MinutesPerDay = 1440

// TimeRange represents one calendar day plus a start/end written as minutes
// since that day's midnight. An end minute of 0 ("0000") means 1440: the
// reservation runs to the end of Date, not into the next day.
type TimeRange struct {
	Date        time.Time `json:"date"`
	StartMinute int       `json:"start_minute"`
	EndMinute   int       `json:"end_minute"`
}

// NewTimeRange builds a range from a date and "HHMM" clock literals.
func NewTimeRange(date time.Time, start, end string) (TimeRange, error) {
	startMin, err := ClockToMinutes(start)
	if err != nil {
		return TimeRange{}, err
	}
	endMin, err := ClockToMinutes(end)
	if err != nil {
		return TimeRange{}, err
	}
	r := TimeRange{Date: date, StartMinute: startMin, EndMinute: endMin}
	if _, err := r.DurationMinutes(); err != nil {
		return TimeRange{}, err
	}
	return r, nil
}

// ClockToMinutes parses a "HHMM" or "HH:MM" literal into minutes since midnight.
func ClockToMinutes(s string) (int, error) {
	s = strings.Replace(strings.TrimSpace(s), ":", "", 1)
	if len(s) != 4 {
		return 0, fmt.Errorf("%w: clock literal %q", ErrInvalidRange, s)
	}
	hour, err := strconv.Atoi(s[:2])
	if err != nil {
		return 0, fmt.Errorf("%w: clock literal %q", ErrInvalidRange, s)
	}
	minute, err := strconv.Atoi(s[2:])
	if err != nil {
		return 0, fmt.Errorf("%w: clock literal %q", ErrInvalidRange, s)
	}
	if hour < 0 || hour > 24 || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("%w: clock literal %q", ErrInvalidRange, s)
	}
	return hour*60 + minute, nil
}

// normalizedEnd maps the "0000" end literal to the end of the same day.
func (r TimeRange) normalizedEnd() int {
	if r.EndMinute == 0 {
		return MinutesPerDay
	}
	return r.EndMinute
}

// DayNumber counts whole days since the Unix epoch, ignoring the time
// component of date.
func DayNumber(date time.Time) int64 {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return d.Unix() / 86400
}

// Abs projects the range onto the absolute minute timeline, so that a range
// ending at 24:00 on day D is adjacent to one starting at 00:00 on day D+1.
func (r TimeRange) Abs() (startAbs, endAbs int64) {
	base := DayNumber(r.Date) * MinutesPerDay
	return base + int64(r.StartMinute), base + int64(r.normalizedEnd())
}

// DurationMinutes returns the range length. Zero or negative durations and
// out-of-day minutes fail with ErrInvalidRange.
func (r TimeRange) DurationMinutes() (int, error) {
	if r.StartMinute < 0 || r.StartMinute >= MinutesPerDay {
		return 0, fmt.Errorf("%w: start minute %d", ErrInvalidRange, r.StartMinute)
	}
	if r.EndMinute < 0 || r.EndMinute > MinutesPerDay {
		return 0, fmt.Errorf("%w: end minute %d", ErrInvalidRange, r.EndMinute)
	}
	startAbs, endAbs := r.Abs()
	d := endAbs - startAbs
	if d <= 0 {
		return 0, fmt.Errorf("%w: duration %d minutes", ErrInvalidRange, d)
	}
	return int(d), nil
}

// Overlaps reports whether two ranges intersect on the absolute timeline.
// Half-open [start, end) semantics: touching endpoints do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	aStart, aEnd := r.Abs()
	bStart, bEnd := other.Abs()
	return aStart < bEnd && bStart < aEnd
}

// HasConflict reports whether the candidate overlaps any of the existing
// ranges. The caller scopes the existing set to a single resource; the check
// itself is resource-agnostic. Linear scan — per-resource reservation counts
// stay small.
func HasConflict(candidate TimeRange, existing []TimeRange) bool {
	for _, e := range existing {
		if candidate.Overlaps(e) {
			return true
		}
	}
	return false
}

// FormatClock renders minutes since midnight as "HH:MM"; 1440 renders as "24:00".
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
