package ledger

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/bekzodm/videoquota-bot/internal/domain"
)

// Removal directs the transport layer to remove a user from the group.
type Removal struct {
	UserID      int64
	DisplayName string
	DebtSeconds int64
}

// WarningNotice directs the transport layer to warn a user privately.
type WarningNotice struct {
	UserID      int64
	DisplayName string
	Tag         domain.WarningTag
	DebtSeconds int64
}

// DayRanking is one row of the settled day's summary, ranked by seconds
// worked that day.
type DayRanking struct {
	UserID          int64
	SequenceID      int64
	DisplayName     string
	TodaySeconds    int64
	StreakDays      int64
	DebtSeconds     int64
	RequiredSeconds int64 // quota plus debt, owed on the new day
}

// SettleResult carries the directives and the summary produced by one
// settlement pass; executing them is the transport layer's job.
type SettleResult struct {
	DayKey   string
	Removals []Removal
	Warnings []WarningNotice
	Rankings []DayRanking
}

// Settle finalizes the day that just ended for every account: a shortfall
// against the quota rolls into debt, accounts past the kick threshold get a
// removal directive, and newly crossed warning thresholds fire. Accounts are
// independent; each is settled and persisted before the next, and an account
// whose settlement marker already carries the day is skipped, so rerunning
// a completed or interrupted pass charges nobody twice.
//
// The pass is scheduled at the group's local midnight but may also run later
// in the day when a restart resumes an interrupted pass. The day being closed
// is therefore always the previous local day in each account's resolved
// timezone, and worked time is read from the per-day accumulator rather than
// the live today counter, which may already belong to the new day.
func (l *Ledger) Settle(ctx context.Context, now time.Time) SettleResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flushDirty(ctx)

	groupDay := domain.DayKey(now.In(l.tz.GroupLocation()).AddDate(0, 0, -1))
	res := SettleResult{DayKey: groupDay}

	accounts := l.sortedAccounts()
	for _, a := range accounts {
		local := now.In(l.tz.Resolve(a.UserID))
		dayKey := domain.DayKey(local.AddDate(0, 0, -1))
		if a.LastSettledDay == dayKey {
			continue // already finalized for this day
		}

		todayWorked := a.DailyWorked[dayKey]

		if shortfall := domain.DailyQuota - todayWorked; shortfall > 0 {
			a.DebtSeconds += shortfall
			l.log.Info("shortfall accrued",
				zap.Int64("user", a.UserID),
				zap.Int64("worked", todayWorked),
				zap.Int64("shortfall", shortfall),
				zap.Int64("debt", a.DebtSeconds),
			)
		}
		a.LastSettledDay = dayKey
		l.persistAccount(ctx, a)

		if a.DebtSeconds >= domain.KickThreshold {
			res.Removals = append(res.Removals, Removal{
				UserID:      a.UserID,
				DisplayName: a.DisplayName,
				DebtSeconds: a.DebtSeconds,
			})
		}

		if tag, fired := domain.EvaluateWarning(a); fired {
			l.persistAccount(ctx, a)
			res.Warnings = append(res.Warnings, WarningNotice{
				UserID:      a.UserID,
				DisplayName: a.DisplayName,
				Tag:         tag,
				DebtSeconds: a.DebtSeconds,
			})
		}
	}

	for _, a := range accounts {
		local := now.In(l.tz.Resolve(a.UserID))
		dayKey := domain.DayKey(local.AddDate(0, 0, -1))
		res.Rankings = append(res.Rankings, DayRanking{
			UserID:          a.UserID,
			SequenceID:      a.SequenceID,
			DisplayName:     a.DisplayName,
			TodaySeconds:    a.DailyWorked[dayKey],
			StreakDays:      a.StreakDays,
			DebtSeconds:     a.DebtSeconds,
			RequiredSeconds: domain.DailyQuota + a.DebtSeconds,
		})
	}
	sort.SliceStable(res.Rankings, func(i, j int) bool {
		return res.Rankings[i].TodaySeconds > res.Rankings[j].TodaySeconds
	})

	l.log.Info("settlement pass complete",
		zap.String("day", groupDay),
		zap.Int("accounts", len(accounts)),
		zap.Int("removals", len(res.Removals)),
		zap.Int("warnings", len(res.Warnings)),
	)
	return res
}
