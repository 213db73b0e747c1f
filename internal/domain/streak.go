package domain

import "time"

// UpdateStreak applies the 24-hour-gap streak rule after an accepted
// submission. now must already be in the account owner's resolved location.
//
// The streak rewards at least one submission in every rolling 24-hour
// window: a gap above 24h resets to 1 even though a submission just landed,
// a shorter gap that crosses a day boundary increments, and a same-day
// submission leaves the streak unchanged.
func UpdateStreak(a *Account, now time.Time) {
	today := DayKey(now)
	switch {
	case a.LastSubmissionAt == nil:
		a.StreakDays = 1
	case WallClockGap(a.LastSubmissionAt.In(now.Location()), now) > 24*3600:
		a.StreakDays = 1
	case a.LastSubmissionDay != today:
		a.StreakDays++
	}
	a.LastSubmissionDay = today
	t := now
	a.LastSubmissionAt = &t
}
