package domain

import "time"

const (
	// DailyQuota is the required seconds of submitted video per local calendar day.
	DailyQuota int64 = 2 * 60 * 60

	// KickThreshold is the debt level at which an account is removed from the group.
	KickThreshold int64 = 60 * 60 * 60
)

// WarningTag identifies an escalation threshold as a fraction of KickThreshold.
type WarningTag string

const (
	WarnQuarter      WarningTag = "quarter"       // 25%, 15h
	WarnHalf         WarningTag = "half"          // 50%, 30h
	WarnThreeQuarter WarningTag = "three_quarter" // 75%, 45h
)

// Threshold returns the debt level in seconds at which the tag applies.
func (t WarningTag) Threshold() int64 {
	switch t {
	case WarnQuarter:
		return KickThreshold / 4
	case WarnHalf:
		return KickThreshold / 2
	case WarnThreeQuarter:
		return KickThreshold * 3 / 4
	}
	return 0
}

// warningOrder lists tags from highest threshold to lowest; evaluation fires
// the highest eligible tag first.
var warningOrder = []WarningTag{WarnThreeQuarter, WarnHalf, WarnQuarter}

// Account is the per-user ledger record. One exists per Telegram user id,
// created lazily on first contact and destroyed only by an explicit reset.
type Account struct {
	UserID      int64
	SequenceID  int64 // monotonic display handle, assigned on first contact
	DisplayName string

	DebtSeconds     int64 // time owed against the daily quota, never negative
	LifetimeSeconds int64 // all-time submitted seconds, never decremented

	// TodayKey is the calendar day (owner's resolved timezone) for which
	// TodayWorkedSeconds is valid. Both roll over lazily together; the pair
	// is never recomputed from DailyWorked.
	TodayKey           string
	TodayWorkedSeconds int64

	// Period accumulators keyed by day / ISO-week / month string. Append-only.
	DailyWorked   map[string]int64
	WeeklyWorked  map[string]int64
	MonthlyWorked map[string]int64

	StreakDays        int64
	LastSubmissionDay string     // day key of the last accepted submission
	LastSubmissionAt  *time.Time // instant of the last accepted submission

	// WarningsSent holds the thresholds already notified for the current
	// debt episode. Recomputed from debt whenever debt decreases.
	WarningsSent map[WarningTag]bool

	// LastSettledDay marks the most recent day this account was settled for,
	// so a rerun of the settlement pass skips already-finalized accounts.
	LastSettledDay string

	// StartedChat is set when the user first messages the bot privately.
	// Used only for the subscriber count.
	StartedChat bool

	CreatedAt time.Time
}

// SubmissionRecord remembers the first submitter of a piece of content.
// Write-once: a later submission with the same UniqueID never mutates it.
type SubmissionRecord struct {
	UniqueID        string // content identity key (Telegram file_unique_id)
	FileID          string
	UserID          int64
	DisplayName     string // submitter's name at submission time
	DurationSeconds int64
	FirstSeenAt     time.Time
}
