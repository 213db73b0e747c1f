package ledger

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bekzodm/videoquota-bot/internal/domain"
	"github.com/bekzodm/videoquota-bot/internal/store"
)

const settingBroadcastChat = "broadcast_chat_id"

// Ledger owns all mutable accounting state: the per-user accounts, the
// submission identity index and the broadcast target. Every mutation runs
// under one mutex (read-modify-persist is a single critical section), so a
// settlement pass never races a submission on the same account.
type Ledger struct {
	mu   sync.Mutex
	log  *zap.Logger
	repo store.Repo
	tz   *Timezones

	accounts map[int64]*domain.Account
	subs     map[string]*domain.SubmissionRecord
	nextSeq  int64

	broadcastChat int64 // 0 until an admin enables reminders

	// Records whose last durable write failed; retried on the next mutation.
	dirtyAccounts map[int64]struct{}
	dirtySubs     map[string]struct{}
}

// Load reads all persisted state into memory and returns a ready ledger.
func Load(ctx context.Context, repo store.Repo, tz *Timezones, log *zap.Logger) (*Ledger, error) {
	accounts, err := repo.LoadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := repo.LoadSubmissions(ctx)
	if err != nil {
		return nil, err
	}

	var nextSeq int64 = 1
	for _, a := range accounts {
		if a.SequenceID >= nextSeq {
			nextSeq = a.SequenceID + 1
		}
	}

	var broadcastChat int64
	if raw, err := repo.GetSetting(ctx, settingBroadcastChat); err != nil {
		return nil, err
	} else if raw != "" {
		broadcastChat, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			log.Warn("ignoring malformed broadcast chat setting", zap.String("value", raw))
			broadcastChat = 0
		}
	}

	return &Ledger{
		log:           log,
		repo:          repo,
		tz:            tz,
		accounts:      accounts,
		subs:          subs,
		nextSeq:       nextSeq,
		broadcastChat: broadcastChat,
		dirtyAccounts: make(map[int64]struct{}),
		dirtySubs:     make(map[string]struct{}),
	}, nil
}

// SubmissionOutcome reports the state of an account after an accepted
// submission was applied.
type SubmissionOutcome struct {
	SequenceID      int64
	TodaySeconds    int64
	RemainingToday  int64 // seconds still needed to satisfy today's quota
	DebtSeconds     int64
	LifetimeSeconds int64
	StreakDays      int64
}

// ApplySubmission credits an accepted submission to the account: it rolls
// the daily counter over if the local day changed, accrues today/lifetime/
// period totals, pays down debt live, refreshes the display name, advances
// the streak and recomputes the warning set. The caller must have passed
// deduplication first; there is no failure path here.
func (l *Ledger) ApplySubmission(ctx context.Context, userID int64, displayName string, durationSec int64, now time.Time) SubmissionOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flushDirty(ctx)

	a := l.ensureAccount(ctx, userID, displayName, now)
	local := now.In(l.tz.Resolve(userID))
	l.materializeToday(a, domain.DayKey(local))

	a.TodayWorkedSeconds += durationSec
	a.LifetimeSeconds += durationSec

	// Submissions pay down debt live, not only at settlement.
	if durationSec >= a.DebtSeconds {
		a.DebtSeconds = 0
	} else {
		a.DebtSeconds -= durationSec
	}

	a.DailyWorked[domain.DayKey(local)] += durationSec
	a.WeeklyWorked[domain.WeekKey(local)] += durationSec
	a.MonthlyWorked[domain.MonthKey(local)] += durationSec

	a.DisplayName = displayName
	domain.UpdateStreak(a, local)
	domain.ResetWarnings(a)
	l.persistAccount(ctx, a)

	l.log.Info("submission applied",
		zap.Int64("user", userID),
		zap.Int64("duration", durationSec),
		zap.Int64("today", a.TodayWorkedSeconds),
		zap.Int64("debt", a.DebtSeconds),
	)

	remaining := domain.DailyQuota - a.TodayWorkedSeconds
	if remaining < 0 {
		remaining = 0
	}
	return SubmissionOutcome{
		SequenceID:      a.SequenceID,
		TodaySeconds:    a.TodayWorkedSeconds,
		RemainingToday:  remaining,
		DebtSeconds:     a.DebtSeconds,
		LifetimeSeconds: a.LifetimeSeconds,
		StreakDays:      a.StreakDays,
	}
}

// AdjustDebt applies an administrative debt change in seconds. A negative
// delta is clamped at zero debt and recomputes the warning set; a positive
// delta accrues without firing warnings (those are settlement's job).
// Returns the new debt.
func (l *Ledger) AdjustDebt(ctx context.Context, userID int64, deltaSeconds int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flushDirty(ctx)

	a, ok := l.accounts[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}

	if deltaSeconds >= 0 {
		a.DebtSeconds += deltaSeconds
	} else {
		reduction := -deltaSeconds
		if reduction > a.DebtSeconds {
			reduction = a.DebtSeconds
		}
		a.DebtSeconds -= reduction
		domain.ResetWarnings(a)
	}
	l.persistAccount(ctx, a)

	l.log.Info("debt adjusted",
		zap.Int64("user", userID),
		zap.Int64("delta", deltaSeconds),
		zap.Int64("debt", a.DebtSeconds),
	)
	return a.DebtSeconds, nil
}

// ResetAccount deletes the whole account record: debt, history, streak,
// everything. The submission identity index is unaffected.
func (l *Ledger) ResetAccount(ctx context.Context, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.accounts[userID]; !ok {
		return domain.ErrNotFound
	}
	if err := l.repo.DeleteAccount(ctx, userID); err != nil {
		l.log.Error("delete account failed", zap.Int64("user", userID), zap.Error(err))
		return err
	}
	delete(l.accounts, userID)
	delete(l.dirtyAccounts, userID)
	l.log.Info("account reset", zap.Int64("user", userID))
	return nil
}

// MarkStartedChat records the user's first private contact with the bot and
// returns the account's sequence id, creating the account if needed.
func (l *Ledger) MarkStartedChat(ctx context.Context, userID int64, displayName string, now time.Time) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flushDirty(ctx)

	a := l.ensureAccount(ctx, userID, displayName, now)
	if !a.StartedChat {
		a.StartedChat = true
		l.persistAccount(ctx, a)
	}
	return a.SequenceID
}

// BroadcastChat returns the chat id registered for group broadcasts.
func (l *Ledger) BroadcastChat() (int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.broadcastChat, l.broadcastChat != 0
}

// SetBroadcastChat registers the chat id used for reminders, summaries and
// removal notices.
func (l *Ledger) SetBroadcastChat(ctx context.Context, chatID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.repo.SetSetting(ctx, settingBroadcastChat, strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	l.broadcastChat = chatID
	return nil
}

// AccountStats is a read-only snapshot of one account.
type AccountStats struct {
	SequenceID      int64
	DisplayName     string
	DebtSeconds     int64
	LifetimeSeconds int64
	StreakDays      int64
	TodaySeconds    int64
	RemainingToday  int64
}

// Stats returns a snapshot for the user, or false if the account is unknown.
// Today's totals are read against the current local day without mutating the
// stored counters.
func (l *Ledger) Stats(userID int64, now time.Time) (AccountStats, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.accounts[userID]
	if !ok {
		return AccountStats{}, false
	}

	var today int64
	if a.TodayKey == domain.DayKey(now.In(l.tz.Resolve(userID))) {
		today = a.TodayWorkedSeconds
	}
	remaining := domain.DailyQuota - today
	if remaining < 0 {
		remaining = 0
	}
	return AccountStats{
		SequenceID:      a.SequenceID,
		DisplayName:     a.DisplayName,
		DebtSeconds:     a.DebtSeconds,
		LifetimeSeconds: a.LifetimeSeconds,
		StreakDays:      a.StreakDays,
		TodaySeconds:    today,
		RemainingToday:  remaining,
	}, true
}

// Subscriber lists one account for the subscriber roster.
type Subscriber struct {
	SequenceID  int64
	DisplayName string
}

// Subscribers returns accounts that have started a private conversation,
// ordered by sequence id, plus their count.
func (l *Ledger) Subscribers() []Subscriber {
	l.mu.Lock()
	defer l.mu.Unlock()

	var subs []Subscriber
	for _, a := range l.sortedAccounts() {
		if a.StartedChat {
			subs = append(subs, Subscriber{SequenceID: a.SequenceID, DisplayName: a.DisplayName})
		}
	}
	return subs
}

// DebtEntry lists one account's outstanding debt.
type DebtEntry struct {
	UserID      int64
	DisplayName string
	DebtSeconds int64
}

// Debts returns every account with debt, highest first.
func (l *Ledger) Debts() []DebtEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []DebtEntry
	for _, a := range l.sortedAccounts() {
		if a.DebtSeconds > 0 {
			entries = append(entries, DebtEntry{UserID: a.UserID, DisplayName: a.DisplayName, DebtSeconds: a.DebtSeconds})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].DebtSeconds > entries[j].DebtSeconds })
	return entries
}

// ReminderEntry lists one account that still owes a submission today.
type ReminderEntry struct {
	UserID          int64
	DisplayName     string
	DebtSeconds     int64
	RequiredSeconds int64 // quota plus outstanding debt
}

// UsersNeedingToday returns accounts without an accepted submission on their
// current local day, with the total time each needs to be square.
func (l *Ledger) UsersNeedingToday(now time.Time) []ReminderEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []ReminderEntry
	for _, a := range l.sortedAccounts() {
		today := domain.DayKey(now.In(l.tz.Resolve(a.UserID)))
		if a.LastSubmissionDay == today {
			continue
		}
		entries = append(entries, ReminderEntry{
			UserID:          a.UserID,
			DisplayName:     a.DisplayName,
			DebtSeconds:     a.DebtSeconds,
			RequiredSeconds: domain.DailyQuota + a.DebtSeconds,
		})
	}
	return entries
}

// ensureAccount returns the account for userID, creating it with the next
// sequence id when absent. Callers hold l.mu.
func (l *Ledger) ensureAccount(ctx context.Context, userID int64, displayName string, now time.Time) *domain.Account {
	if a, ok := l.accounts[userID]; ok {
		return a
	}
	a := &domain.Account{
		UserID:        userID,
		SequenceID:    l.nextSeq,
		DisplayName:   displayName,
		DailyWorked:   make(map[string]int64),
		WeeklyWorked:  make(map[string]int64),
		MonthlyWorked: make(map[string]int64),
		WarningsSent:  make(map[domain.WarningTag]bool),
		CreatedAt:     now.UTC(),
	}
	l.nextSeq++
	l.accounts[userID] = a
	l.persistAccount(ctx, a)
	l.log.Info("account created", zap.Int64("user", userID), zap.Int64("seq", a.SequenceID))
	return a
}

// materializeToday rolls the daily counter to dayKey if the stored day
// differs. The single rollover point shared by the submission path and the
// settlement pass. Callers hold l.mu.
func (l *Ledger) materializeToday(a *domain.Account, dayKey string) {
	if a.TodayKey != dayKey {
		a.TodayKey = dayKey
		a.TodayWorkedSeconds = 0
	}
}

// sortedAccounts returns accounts ordered by sequence id. Callers hold l.mu.
func (l *Ledger) sortedAccounts() []*domain.Account {
	accounts := make([]*domain.Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].SequenceID < accounts[j].SequenceID })
	return accounts
}

// persistAccount writes the account through to the store. A failed write is
// logged and queued for retry on the next mutation; it is never dropped.
// Callers hold l.mu.
func (l *Ledger) persistAccount(ctx context.Context, a *domain.Account) {
	if err := l.repo.SaveAccount(ctx, a); err != nil {
		l.log.Error("persist account failed", zap.Int64("user", a.UserID), zap.Error(err))
		l.dirtyAccounts[a.UserID] = struct{}{}
		return
	}
	delete(l.dirtyAccounts, a.UserID)
}

// flushDirty retries writes that failed earlier. Callers hold l.mu.
func (l *Ledger) flushDirty(ctx context.Context) {
	for userID := range l.dirtyAccounts {
		a, ok := l.accounts[userID]
		if !ok {
			delete(l.dirtyAccounts, userID)
			continue
		}
		if err := l.repo.SaveAccount(ctx, a); err != nil {
			l.log.Error("retry persist account failed", zap.Int64("user", userID), zap.Error(err))
			continue
		}
		delete(l.dirtyAccounts, userID)
	}
	for uniqueID := range l.dirtySubs {
		rec, ok := l.subs[uniqueID]
		if !ok {
			delete(l.dirtySubs, uniqueID)
			continue
		}
		if err := l.repo.SaveSubmission(ctx, rec); err != nil {
			l.log.Error("retry persist submission failed", zap.String("unique_id", uniqueID), zap.Error(err))
			continue
		}
		delete(l.dirtySubs, uniqueID)
	}
}
