package domain

import "testing"

const hour int64 = 3600

func TestEvaluateWarning_FiresEachCrossingOnce(t *testing.T) {
	a := &Account{}

	steps := []struct {
		debt     int64
		wantTag  WarningTag
		wantFire bool
	}{
		{debt: 10 * hour, wantFire: false},
		{debt: 16 * hour, wantTag: WarnQuarter, wantFire: true},
		{debt: 20 * hour, wantFire: false}, // quarter already recorded
		{debt: 31 * hour, wantTag: WarnHalf, wantFire: true},
		{debt: 46 * hour, wantTag: WarnThreeQuarter, wantFire: true},
		{debt: 50 * hour, wantFire: false},
	}
	for i, s := range steps {
		a.DebtSeconds = s.debt
		tag, fired := EvaluateWarning(a)
		if fired != s.wantFire {
			t.Fatalf("step %d: want fired=%v, got %v", i, s.wantFire, fired)
		}
		if fired && tag != s.wantTag {
			t.Fatalf("step %d: want tag %s, got %s", i, s.wantTag, tag)
		}
	}
}

func TestEvaluateWarning_HighestNewTagFirst(t *testing.T) {
	// Debt jumps past all three thresholds at once: only the highest fires.
	a := &Account{DebtSeconds: 50 * hour}

	tag, fired := EvaluateWarning(a)
	if !fired || tag != WarnThreeQuarter {
		t.Fatalf("want three_quarter, got %s (fired=%v)", tag, fired)
	}

	// The next evaluation picks up the highest remaining unsent tag.
	tag, fired = EvaluateWarning(a)
	if !fired || tag != WarnHalf {
		t.Fatalf("want half on second evaluation, got %s (fired=%v)", tag, fired)
	}
}

func TestResetWarnings_RecomputesFromDebt(t *testing.T) {
	a := &Account{DebtSeconds: 50 * hour}
	for i := 0; i < 3; i++ {
		EvaluateWarning(a)
	}

	// Debt paid down below half: only quarter should remain marked.
	a.DebtSeconds = 20 * hour
	ResetWarnings(a)

	if !a.WarningsSent[WarnQuarter] || a.WarningsSent[WarnHalf] || a.WarningsSent[WarnThreeQuarter] {
		t.Fatalf("want only quarter marked, got %v", a.WarningsSent)
	}

	// Re-crossing half fires again.
	a.DebtSeconds = 31 * hour
	tag, fired := EvaluateWarning(a)
	if !fired || tag != WarnHalf {
		t.Fatalf("want half to re-fire, got %s (fired=%v)", tag, fired)
	}
}

func TestResetWarnings_KeepsTagsStillMet(t *testing.T) {
	// 200000 - 20000 = 180000, still past all three thresholds.
	a := &Account{DebtSeconds: 180000}
	ResetWarnings(a)

	for _, tag := range []WarningTag{WarnQuarter, WarnHalf, WarnThreeQuarter} {
		if !a.WarningsSent[tag] {
			t.Fatalf("want %s still marked at debt %d", tag, a.DebtSeconds)
		}
	}
}

func TestThresholds(t *testing.T) {
	if got := WarnQuarter.Threshold(); got != 54000 {
		t.Fatalf("quarter: want 54000, got %d", got)
	}
	if got := WarnHalf.Threshold(); got != 108000 {
		t.Fatalf("half: want 108000, got %d", got)
	}
	if got := WarnThreeQuarter.Threshold(); got != 162000 {
		t.Fatalf("three_quarter: want 162000, got %d", got)
	}
	if KickThreshold != 216000 {
		t.Fatalf("kick: want 216000, got %d", KickThreshold)
	}
	if DailyQuota != 7200 {
		t.Fatalf("quota: want 7200, got %d", DailyQuota)
	}
}
