package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bekzodm/videoquota-bot/internal/domain"
)

// memRepo is an in-memory store.Repo for tests. failSaves makes every
// SaveAccount fail until cleared, to exercise the dirty-retry path.
type memRepo struct {
	accounts  map[int64]*domain.Account
	subs      map[string]*domain.SubmissionRecord
	zones     map[int64]string
	settings  map[string]string
	failSaves bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		accounts: make(map[int64]*domain.Account),
		subs:     make(map[string]*domain.SubmissionRecord),
		zones:    make(map[int64]string),
		settings: make(map[string]string),
	}
}

func (m *memRepo) LoadAccounts(context.Context) (map[int64]*domain.Account, error) {
	out := make(map[int64]*domain.Account, len(m.accounts))
	for id, a := range m.accounts {
		out[id] = a
	}
	return out, nil
}

func (m *memRepo) SaveAccount(_ context.Context, a *domain.Account) error {
	if m.failSaves {
		return errors.New("save refused")
	}
	m.accounts[a.UserID] = a
	return nil
}

func (m *memRepo) DeleteAccount(_ context.Context, userID int64) error {
	delete(m.accounts, userID)
	return nil
}

func (m *memRepo) LoadSubmissions(context.Context) (map[string]*domain.SubmissionRecord, error) {
	out := make(map[string]*domain.SubmissionRecord, len(m.subs))
	for id, rec := range m.subs {
		out[id] = rec
	}
	return out, nil
}

func (m *memRepo) SaveSubmission(_ context.Context, rec *domain.SubmissionRecord) error {
	if m.failSaves {
		return errors.New("save refused")
	}
	m.subs[rec.UniqueID] = rec
	return nil
}

func (m *memRepo) LoadUserTimezones(context.Context) (map[int64]string, error) {
	out := make(map[int64]string, len(m.zones))
	for id, tz := range m.zones {
		out[id] = tz
	}
	return out, nil
}

func (m *memRepo) SaveUserTimezone(_ context.Context, userID int64, tz string) error {
	m.zones[userID] = tz
	return nil
}

func (m *memRepo) GetSetting(_ context.Context, key string) (string, error) {
	return m.settings[key], nil
}

func (m *memRepo) SetSetting(_ context.Context, key, value string) error {
	m.settings[key] = value
	return nil
}

func (m *memRepo) Close() error { return nil }

func newTestLedger(t *testing.T) (*Ledger, *memRepo) {
	t.Helper()
	ctx := context.Background()
	repo := newMemRepo()
	tz, err := LoadTimezones(ctx, repo, "Asia/Seoul", zap.NewNop())
	if err != nil {
		t.Fatalf("load timezones: %v", err)
	}
	led, err := Load(ctx, repo, tz, zap.NewNop())
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	return led, repo
}

func seoulTime(t *testing.T, day, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return time.Date(2025, time.June, day, hour, min, 0, 0, loc)
}

func TestApplySubmission_FirstVideo(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	out := led.ApplySubmission(ctx, 1, "alice", 3600, seoulTime(t, 1, 12, 0))

	if out.TodaySeconds != 3600 {
		t.Fatalf("want today 3600, got %d", out.TodaySeconds)
	}
	if out.RemainingToday != 3600 {
		t.Fatalf("want remaining 3600, got %d", out.RemainingToday)
	}
	if out.DebtSeconds != 0 {
		t.Fatalf("want debt 0, got %d", out.DebtSeconds)
	}
	if out.StreakDays != 1 {
		t.Fatalf("want streak 1, got %d", out.StreakDays)
	}
	if out.SequenceID != 1 {
		t.Fatalf("want sequence 1, got %d", out.SequenceID)
	}
}

func TestApplySubmission_PaysDownDebtLive(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	led.ApplySubmission(ctx, 1, "alice", 100, seoulTime(t, 1, 9, 0))
	led.accounts[1].DebtSeconds = 200000

	out := led.ApplySubmission(ctx, 1, "alice", 20000, seoulTime(t, 1, 10, 0))
	if out.DebtSeconds != 180000 {
		t.Fatalf("want debt 180000, got %d", out.DebtSeconds)
	}

	// 180000 is still past every warning threshold, so all three stay marked
	// and none fires again at the next settlement.
	a := led.accounts[1]
	for _, tag := range []domain.WarningTag{domain.WarnQuarter, domain.WarnHalf, domain.WarnThreeQuarter} {
		if !a.WarningsSent[tag] {
			t.Fatalf("want %s marked after live paydown", tag)
		}
	}
}

func TestApplySubmission_DebtNeverNegative(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	led.ApplySubmission(ctx, 1, "alice", 100, seoulTime(t, 1, 9, 0))
	led.accounts[1].DebtSeconds = 500

	out := led.ApplySubmission(ctx, 1, "alice", 9000, seoulTime(t, 1, 10, 0))
	if out.DebtSeconds != 0 {
		t.Fatalf("want debt clamped to 0, got %d", out.DebtSeconds)
	}
}

func TestRegisterSubmission_Deduplicates(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	rec := &domain.SubmissionRecord{
		UniqueID:        "uid-1",
		FileID:          "file-1",
		UserID:          1,
		DisplayName:     "alice",
		DurationSeconds: 3600,
		FirstSeenAt:     seoulTime(t, 1, 12, 0),
	}
	if res := led.RegisterSubmission(ctx, rec); !res.Accepted {
		t.Fatal("want first submission accepted")
	}

	// Same identity from a different user: rejected, original attributed.
	dup := *rec
	dup.UserID = 2
	dup.DisplayName = "bob"
	res := led.RegisterSubmission(ctx, &dup)
	if res.Accepted {
		t.Fatal("want duplicate rejected")
	}
	if res.Original == nil || res.Original.UserID != 1 || res.Original.DisplayName != "alice" {
		t.Fatalf("want original attributed to alice, got %+v", res.Original)
	}
}

func TestSettle_ChargesShortfall(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	led.ApplySubmission(ctx, 1, "alice", 3600, seoulTime(t, 1, 12, 0))

	res := led.Settle(ctx, seoulTime(t, 2, 0, 0))
	if res.DayKey != "2025-06-01" {
		t.Fatalf("want settled day 2025-06-01, got %s", res.DayKey)
	}
	if got := led.accounts[1].DebtSeconds; got != 3600 {
		t.Fatalf("want debt 3600 after settlement, got %d", got)
	}
	if len(res.Rankings) != 1 {
		t.Fatalf("want 1 ranking, got %d", len(res.Rankings))
	}
	if r := res.Rankings[0]; r.TodaySeconds != 3600 || r.RequiredSeconds != 10800 {
		t.Fatalf("want ranking today=3600 required=10800, got %+v", r)
	}
}

func TestSettle_RerunIsNoOp(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	led.ApplySubmission(ctx, 1, "alice", 3600, seoulTime(t, 1, 12, 0))
	midnight := seoulTime(t, 2, 0, 0)

	led.Settle(ctx, midnight)
	led.Settle(ctx, midnight) // interrupted pass restarted

	if got := led.accounts[1].DebtSeconds; got != 3600 {
		t.Fatalf("want debt 3600 after rerun, got %d", got)
	}
}

func TestSettle_ResumesLaterInTheDay(t *testing.T) {
	// A pass interrupted at midnight re-fires mid-day after the restart; it
	// must still close the previous day, even when the new day already has a
	// submission on it.
	led, _ := newTestLedger(t)
	ctx := context.Background()

	led.ApplySubmission(ctx, 1, "alice", 3600, seoulTime(t, 1, 12, 0))
	led.ApplySubmission(ctx, 1, "alice", 1800, seoulTime(t, 2, 9, 0))

	res := led.Settle(ctx, seoulTime(t, 2, 14, 0))
	if res.DayKey != "2025-06-01" {
		t.Fatalf("want day 2025-06-01 closed, got %s", res.DayKey)
	}
	if got := led.accounts[1].DebtSeconds; got != 3600 {
		t.Fatalf("want debt 3600 for day 1's missed hour, got %d", got)
	}
	if r := res.Rankings[0]; r.TodaySeconds != 3600 {
		t.Fatalf("want ranking over day 1's work, got %d", r.TodaySeconds)
	}
}

func TestSettle_ResumeSkipsAlreadySettled(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	led.MarkStartedChat(ctx, 1, "alice", seoulTime(t, 1, 12, 0))
	led.MarkStartedChat(ctx, 2, "bob", seoulTime(t, 1, 12, 0))

	// alice was settled before the crash, bob was not.
	led.accounts[1].LastSettledDay = "2025-06-01"
	led.accounts[1].DebtSeconds = 7200

	led.Settle(ctx, seoulTime(t, 2, 14, 0))
	if got := led.accounts[1].DebtSeconds; got != 7200 {
		t.Fatalf("already-settled account charged again, debt=%d", got)
	}
	if got := led.accounts[2].DebtSeconds; got != 7200 {
		t.Fatalf("want resumed pass to charge the unsettled account, debt=%d", got)
	}
}

func TestSettle_ConsecutiveMissedDays(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	led.ApplySubmission(ctx, 1, "alice", 3600, seoulTime(t, 1, 12, 0))
	led.Settle(ctx, seoulTime(t, 2, 0, 0))
	led.Settle(ctx, seoulTime(t, 3, 0, 0)) // nothing submitted on day 2

	if got := led.accounts[1].DebtSeconds; got != 3600+7200 {
		t.Fatalf("want debt 10800, got %d", got)
	}
}

func TestSettle_WarningScheduleOverFifteenDays(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	led.MarkStartedChat(ctx, 1, "alice", seoulTime(t, 1, 12, 0))

	fired := make(map[domain.WarningTag]int) // tag -> pass number of first fire
	counts := make(map[domain.WarningTag]int)
	for pass := 1; pass <= 15; pass++ {
		res := led.Settle(ctx, seoulTime(t, 1+pass, 0, 0))
		for _, w := range res.Warnings {
			counts[w.Tag]++
			if _, ok := fired[w.Tag]; !ok {
				fired[w.Tag] = pass
			}
		}
	}

	if got := led.accounts[1].DebtSeconds; got != 108000 {
		t.Fatalf("want debt 108000 after 15 missed days, got %d", got)
	}
	// 8 passes put debt at 57600, past the quarter threshold of 54000.
	if fired[domain.WarnQuarter] != 8 || counts[domain.WarnQuarter] != 1 {
		t.Fatalf("want quarter fired once on pass 8, got pass %d count %d",
			fired[domain.WarnQuarter], counts[domain.WarnQuarter])
	}
	// 15 passes land exactly on the half threshold of 108000.
	if fired[domain.WarnHalf] != 15 || counts[domain.WarnHalf] != 1 {
		t.Fatalf("want half fired once on pass 15, got pass %d count %d",
			fired[domain.WarnHalf], counts[domain.WarnHalf])
	}
	if counts[domain.WarnThreeQuarter] != 0 {
		t.Fatalf("three_quarter must not fire at debt 108000")
	}
}

func TestSettle_RemovalAtKickThreshold(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	led.ApplySubmission(ctx, 1, "alice", 100, seoulTime(t, 1, 12, 0))
	led.accounts[1].DebtSeconds = 210000

	res := led.Settle(ctx, seoulTime(t, 2, 0, 0))
	if len(res.Removals) != 1 {
		t.Fatalf("want 1 removal, got %d", len(res.Removals))
	}
	// 100s worked, so the shortfall of 7100 lands the debt at 217100.
	if rem := res.Removals[0]; rem.UserID != 1 || rem.DebtSeconds != 217100 {
		t.Fatalf("want removal at debt 217100, got %+v", rem)
	}
}

func TestAdjustDebt(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	if _, err := led.AdjustDebt(ctx, 99, 600); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound for unknown user, got %v", err)
	}

	led.MarkStartedChat(ctx, 1, "alice", seoulTime(t, 1, 12, 0))
	if debt, _ := led.AdjustDebt(ctx, 1, 600); debt != 600 {
		t.Fatalf("want debt 600, got %d", debt)
	}
	if debt, _ := led.AdjustDebt(ctx, 1, -4000); debt != 0 {
		t.Fatalf("want debt clamped to 0, got %d", debt)
	}
}

func TestResetAccount(t *testing.T) {
	led, repo := newTestLedger(t)
	ctx := context.Background()

	led.ApplySubmission(ctx, 1, "alice", 3600, seoulTime(t, 1, 12, 0))
	if err := led.ResetAccount(ctx, 1); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, ok := led.Stats(1, seoulTime(t, 1, 13, 0)); ok {
		t.Fatal("want account gone after reset")
	}
	if _, ok := repo.accounts[1]; ok {
		t.Fatal("want account deleted from store")
	}
	if err := led.ResetAccount(ctx, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound on second reset, got %v", err)
	}
}

func TestLeaderboard_OrderAndFilter(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()
	now := seoulTime(t, 1, 12, 0)

	led.ApplySubmission(ctx, 1, "alice", 1800, now)
	led.ApplySubmission(ctx, 2, "bob", 5400, now)
	led.ApplySubmission(ctx, 3, "carol", 1800, now)
	led.MarkStartedChat(ctx, 4, "dave", now) // no time worked

	got := led.Leaderboard(PeriodDay, now)
	if len(got) != 3 {
		t.Fatalf("want 3 entries, got %d", len(got))
	}
	if got[0].DisplayName != "bob" {
		t.Fatalf("want bob first, got %s", got[0].DisplayName)
	}
	// Tie between alice and carol keeps registration order.
	if got[1].DisplayName != "alice" || got[2].DisplayName != "carol" {
		t.Fatalf("want tie in registration order, got %s then %s", got[1].DisplayName, got[2].DisplayName)
	}
}

func TestLeaderboard_PeriodsAccumulate(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	led.ApplySubmission(ctx, 1, "alice", 3600, seoulTime(t, 1, 12, 0))
	led.ApplySubmission(ctx, 1, "alice", 1800, seoulTime(t, 2, 12, 0))

	now := seoulTime(t, 2, 13, 0)
	if got := led.Leaderboard(PeriodDay, now); len(got) != 1 || got[0].Seconds != 1800 {
		t.Fatalf("day: want 1800, got %+v", got)
	}
	// June 1-2 2025 share ISO week and month.
	if got := led.Leaderboard(PeriodMonth, now); len(got) != 1 || got[0].Seconds != 5400 {
		t.Fatalf("month: want 5400, got %+v", got)
	}
	if got := led.Leaderboard(PeriodAll, now); len(got) != 1 || got[0].Seconds != 5400 {
		t.Fatalf("all: want 5400, got %+v", got)
	}
}

func TestUsersNeedingToday(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	led.ApplySubmission(ctx, 1, "alice", 3600, seoulTime(t, 1, 12, 0))
	led.MarkStartedChat(ctx, 2, "bob", seoulTime(t, 1, 12, 0))
	led.accounts[2].DebtSeconds = 3600

	need := led.UsersNeedingToday(seoulTime(t, 1, 16, 0))
	if len(need) != 1 {
		t.Fatalf("want only bob listed, got %d entries", len(need))
	}
	if e := need[0]; e.UserID != 2 || e.RequiredSeconds != domain.DailyQuota+3600 {
		t.Fatalf("want bob needing %d, got %+v", domain.DailyQuota+3600, e)
	}

	// Next day alice owes again.
	need = led.UsersNeedingToday(seoulTime(t, 2, 16, 0))
	if len(need) != 2 {
		t.Fatalf("want both listed next day, got %d", len(need))
	}
}

func TestTimezones_SetOnce(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	out, err := led.tz.SetGroup(ctx, "Asia/Tashkent")
	if err != nil || out.Locked {
		t.Fatalf("want first group set to succeed, got %+v err=%v", out, err)
	}
	out, err = led.tz.SetGroup(ctx, "America/New_York")
	if err != nil {
		t.Fatalf("second set: %v", err)
	}
	if !out.Locked || out.Timezone != "Asia/Tashkent" {
		t.Fatalf("want locked on Asia/Tashkent, got %+v", out)
	}

	out, err = led.tz.SetUser(ctx, 1, "America/Chicago")
	if err != nil || out.Locked {
		t.Fatalf("want first user set to succeed, got %+v err=%v", out, err)
	}
	out, _ = led.tz.SetUser(ctx, 1, "America/Denver")
	if !out.Locked || out.Timezone != "America/Chicago" {
		t.Fatalf("want locked on America/Chicago, got %+v", out)
	}

	if got := led.tz.Resolve(1).String(); got != "America/Chicago" {
		t.Fatalf("want override resolved, got %s", got)
	}
	if got := led.tz.Resolve(2).String(); got != "Asia/Tashkent" {
		t.Fatalf("want group zone for users without override, got %s", got)
	}
}

func TestBroadcastChat_Persisted(t *testing.T) {
	led, repo := newTestLedger(t)
	ctx := context.Background()

	if _, ok := led.BroadcastChat(); ok {
		t.Fatal("want no broadcast chat before registration")
	}
	if err := led.SetBroadcastChat(ctx, -100123); err != nil {
		t.Fatalf("set broadcast chat: %v", err)
	}

	// A fresh ledger over the same store sees the registration.
	tz, err := LoadTimezones(ctx, repo, "Asia/Seoul", zap.NewNop())
	if err != nil {
		t.Fatalf("load timezones: %v", err)
	}
	led2, err := Load(ctx, repo, tz, zap.NewNop())
	if err != nil {
		t.Fatalf("reload ledger: %v", err)
	}
	if id, ok := led2.BroadcastChat(); !ok || id != -100123 {
		t.Fatalf("want broadcast chat -100123 after reload, got %d ok=%v", id, ok)
	}
}

func TestPersistFailure_RetriedOnNextMutation(t *testing.T) {
	led, repo := newTestLedger(t)
	ctx := context.Background()

	repo.failSaves = true
	led.ApplySubmission(ctx, 1, "alice", 3600, seoulTime(t, 1, 12, 0))
	if _, ok := repo.accounts[1]; ok {
		t.Fatal("save should have been refused")
	}
	if _, ok := led.dirtyAccounts[1]; !ok {
		t.Fatal("want account queued for retry")
	}

	repo.failSaves = false
	led.ApplySubmission(ctx, 2, "bob", 1800, seoulTime(t, 1, 13, 0))
	if _, ok := repo.accounts[1]; !ok {
		t.Fatal("want queued account flushed on next mutation")
	}
	if len(led.dirtyAccounts) != 0 {
		t.Fatalf("want dirty set empty, got %v", led.dirtyAccounts)
	}
}
