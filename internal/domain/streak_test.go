package domain

import (
	"testing"
	"time"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return loc
}

func TestUpdateStreak_FirstSubmission(t *testing.T) {
	loc := mustLoc(t, "Asia/Seoul")
	a := &Account{}
	now := time.Date(2025, time.June, 1, 15, 0, 0, 0, loc)

	UpdateStreak(a, now)

	if a.StreakDays != 1 {
		t.Fatalf("want streak 1, got %d", a.StreakDays)
	}
	if a.LastSubmissionDay != "2025-06-01" {
		t.Fatalf("want day 2025-06-01, got %s", a.LastSubmissionDay)
	}
}

func TestUpdateStreak_NextDayWithin24h(t *testing.T) {
	loc := mustLoc(t, "Asia/Seoul")
	a := &Account{}
	first := time.Date(2025, time.June, 1, 23, 0, 0, 0, loc)
	UpdateStreak(a, first)

	// 86399s later: different calendar day, inside the 24h window.
	UpdateStreak(a, first.Add(86399*time.Second))

	if a.StreakDays != 2 {
		t.Fatalf("want streak 2, got %d", a.StreakDays)
	}
}

func TestUpdateStreak_GapOver24hResets(t *testing.T) {
	loc := mustLoc(t, "Asia/Seoul")
	a := &Account{StreakDays: 7}
	first := time.Date(2025, time.June, 1, 23, 0, 0, 0, loc)
	UpdateStreak(a, first)

	UpdateStreak(a, first.Add(86401*time.Second))

	if a.StreakDays != 1 {
		t.Fatalf("want streak reset to 1, got %d", a.StreakDays)
	}
}

func TestUpdateStreak_SameDayUnchanged(t *testing.T) {
	loc := mustLoc(t, "Asia/Seoul")
	a := &Account{}
	first := time.Date(2025, time.June, 1, 9, 0, 0, 0, loc)
	UpdateStreak(a, first)
	UpdateStreak(a, first.Add(2*time.Hour))

	if a.StreakDays != 1 {
		t.Fatalf("want streak 1 after same-day submission, got %d", a.StreakDays)
	}
}

func TestWallClockGap_Naive(t *testing.T) {
	loc := mustLoc(t, "Asia/Seoul")
	last := time.Date(2025, time.June, 1, 23, 0, 0, 0, loc)
	now := time.Date(2025, time.June, 2, 23, 30, 0, 0, loc)

	got := WallClockGap(last, now)
	want := int64(24*3600 + 1800)
	if got != want {
		t.Fatalf("want gap %d, got %d", want, got)
	}
}
