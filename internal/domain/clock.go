package domain

import (
	"fmt"
	"time"
)

// DayKey formats t's calendar day as YYYY-MM-DD in t's location.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// WeekKey formats t's ISO week as YYYY-Www in t's location.
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// MonthKey formats t's month as YYYY-MM in t's location.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// ValidateTZ checks that tz is a valid IANA location name and returns its
// canonical form.
func ValidateTZ(tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", err
	}
	return loc.String(), nil
}

// WallClockGap returns now minus last in seconds as read off the local wall
// clock, each time in its own location. A DST shift between the two instants
// is not accounted for; streak semantics depend on this naive subtraction,
// so any change to it belongs here and nowhere else.
func WallClockGap(last, now time.Time) int64 {
	return int64(stripZone(now).Sub(stripZone(last)) / time.Second)
}

func stripZone(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
