package ledger

import (
	"sort"
	"time"

	"github.com/bekzodm/videoquota-bot/internal/domain"
)

// Period selects the accumulator a leaderboard reads.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// LeaderboardEntry is one leaderboard row.
type LeaderboardEntry struct {
	SequenceID  int64
	DisplayName string
	Seconds     int64
	StreakDays  int64
}

// Leaderboard projects every account with time worked in the current period,
// sorted descending by seconds. Ties keep sequence order (stable sort over
// accounts iterated by sequence id). Pure read; an empty result just means
// nobody submitted.
func (l *Ledger) Leaderboard(period Period, now time.Time) []LeaderboardEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []LeaderboardEntry
	for _, a := range l.sortedAccounts() {
		local := now.In(l.tz.Resolve(a.UserID))

		var seconds int64
		switch period {
		case PeriodDay:
			seconds = a.DailyWorked[domain.DayKey(local)]
		case PeriodWeek:
			seconds = a.WeeklyWorked[domain.WeekKey(local)]
		case PeriodMonth:
			seconds = a.MonthlyWorked[domain.MonthKey(local)]
		case PeriodAll:
			seconds = a.LifetimeSeconds
		}
		if seconds <= 0 {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			SequenceID:  a.SequenceID,
			DisplayName: a.DisplayName,
			Seconds:     seconds,
			StreakDays:  a.StreakDays,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Seconds > entries[j].Seconds })
	return entries
}
