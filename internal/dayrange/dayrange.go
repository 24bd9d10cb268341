package dayrange

import (
	"regexp"
	"time"
)

// DayKeyLayout is the wire format for a calendar day.
const DayKeyLayout = "2006-01-02"

// MaxOffsetMinutes bounds accepted client timezone offsets (±24h).
const MaxOffsetMinutes = 1440

var dayKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Range is a half-open [Start, End) UTC interval covering exactly one
// calendar day in the client's frame.
type Range struct {
	Start time.Time
	End   time.Time
}

// Resolve converts a client-supplied day string and timezone offset into the
// UTC instant range of that local calendar day, shifted by dayOffset whole
// days. The offset convention is "UTC = local + offset", so the UTC instant
// of local midnight is 00:00Z of the day string plus the offset.
//
// Malformed day strings, nil offsets and offsets outside ±1440 minutes all
// degrade to the UTC midnight of the current instant instead of erroring:
// client headers are untrusted and optional. degraded=true marks that path so
// callers can log it.
func Resolve(clientDay string, tzOffsetMinutes *int, dayOffset int) (r Range, degraded bool) {
	if dayKeyPattern.MatchString(clientDay) && ValidOffset(tzOffsetMinutes) {
		if day, err := time.Parse(DayKeyLayout, clientDay); err == nil {
			start := day.UTC().
				Add(time.Duration(*tzOffsetMinutes) * time.Minute).
				AddDate(0, 0, dayOffset)
			return Range{Start: start, End: start.Add(24 * time.Hour)}, false
		}
	}

	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, dayOffset)
	return Range{Start: start, End: start.Add(24 * time.Hour)}, true
}

// DayKey returns the canonical YYYY-MM-DD key for the calendar day containing
// t in the frame given by tzOffsetMinutes (0 for UTC). With the "UTC = local
// + offset" convention, local time is the UTC instant minus the offset.
func DayKey(t time.Time, tzOffsetMinutes int) string {
	return t.UTC().Add(-time.Duration(tzOffsetMinutes) * time.Minute).Format(DayKeyLayout)
}

// Normalize trims any trailing time-of-day component from a stored date
// representation, leaving the first 10 characters if they form a day key.
func Normalize(raw string) string {
	if len(raw) >= 10 && dayKeyPattern.MatchString(raw[:10]) {
		return raw[:10]
	}
	return raw
}

// PrevDay returns the day key one calendar day before key. Invalid keys are
// returned unchanged.
func PrevDay(key string) string {
	day, err := time.Parse(DayKeyLayout, key)
	if err != nil {
		return key
	}
	return day.AddDate(0, 0, -1).Format(DayKeyLayout)
}

// Today returns the current day key in the frame given by tzOffsetMinutes.
func Today(tzOffsetMinutes int) string {
	return DayKey(time.Now(), tzOffsetMinutes)
}

// ValidOffset reports whether a client timezone offset is usable.
func ValidOffset(tzOffsetMinutes *int) bool {
	return tzOffsetMinutes != nil &&
		*tzOffsetMinutes >= -MaxOffsetMinutes && *tzOffsetMinutes <= MaxOffsetMinutes
}

// Valid reports whether key is a well-formed YYYY-MM-DD day key.
func Valid(key string) bool {
	if !dayKeyPattern.MatchString(key) {
		return false
	}
	_, err := time.Parse(DayKeyLayout, key)
	return err == nil
}
