package ledger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bekzodm/videoquota-bot/internal/store"
)

const settingGroupTimezone = "group_timezone"

// TimezoneOutcome reports the zone in effect after a set attempt. Locked
// means a zone was already assigned and the attempt changed nothing; it is
// a normal outcome, not an error.
type TimezoneOutcome struct {
	Timezone string
	Locked   bool
}

// Timezones resolves the effective timezone for users and the group. The
// group zone and each per-user override are settable exactly once; until the
// group zone is assigned, the configured default applies.
type Timezones struct {
	mu        sync.Mutex
	log       *zap.Logger
	repo      store.Repo
	defaultTZ string
	groupTZ   string // empty until explicitly set
	users     map[int64]string
	locs      map[string]*time.Location
}

// LoadTimezones reads persisted assignments and returns a resolver.
func LoadTimezones(ctx context.Context, repo store.Repo, defaultTZ string, log *zap.Logger) (*Timezones, error) {
	users, err := repo.LoadUserTimezones(ctx)
	if err != nil {
		return nil, err
	}
	groupTZ, err := repo.GetSetting(ctx, settingGroupTimezone)
	if err != nil {
		return nil, err
	}
	return &Timezones{
		log:       log,
		repo:      repo,
		defaultTZ: defaultTZ,
		groupTZ:   groupTZ,
		users:     users,
		locs:      make(map[string]*time.Location),
	}, nil
}

// Group returns the group timezone name (the default until set).
func (t *Timezones) Group() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.groupName()
}

// GroupLocation returns the group timezone as a location.
func (t *Timezones) GroupLocation() *time.Location {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.location(t.groupName())
}

// Resolve returns the user's effective location: their override if set,
// else the group zone.
func (t *Timezones) Resolve(userID int64) *time.Location {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tz, ok := t.users[userID]; ok {
		return t.location(tz)
	}
	return t.location(t.groupName())
}

// UserOverride reports the user's personal zone, if one was ever set.
func (t *Timezones) UserOverride(userID int64) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tz, ok := t.users[userID]
	return tz, ok
}

// SetGroup assigns the group timezone. Succeeds exactly once; later calls
// return Locked with the zone already in effect.
func (t *Timezones) SetGroup(ctx context.Context, tz string) (TimezoneOutcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.groupTZ != "" {
		return TimezoneOutcome{Timezone: t.groupTZ, Locked: true}, nil
	}
	if err := t.repo.SetSetting(ctx, settingGroupTimezone, tz); err != nil {
		return TimezoneOutcome{}, err
	}
	t.groupTZ = tz
	t.log.Info("group timezone set", zap.String("tz", tz))
	return TimezoneOutcome{Timezone: tz}, nil
}

// SetUser assigns a personal timezone. Succeeds exactly once per user;
// later calls return Locked with the zone already in effect.
func (t *Timezones) SetUser(ctx context.Context, userID int64, tz string) (TimezoneOutcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.users[userID]; ok {
		return TimezoneOutcome{Timezone: existing, Locked: true}, nil
	}
	if err := t.repo.SaveUserTimezone(ctx, userID, tz); err != nil {
		return TimezoneOutcome{}, err
	}
	t.users[userID] = tz
	t.log.Info("user timezone set", zap.Int64("user", userID), zap.String("tz", tz))
	return TimezoneOutcome{Timezone: tz}, nil
}

func (t *Timezones) groupName() string {
	if t.groupTZ != "" {
		return t.groupTZ
	}
	return t.defaultTZ
}

// location loads and caches a named location. An unloadable name falls back
// to UTC. Callers hold t.mu.
func (t *Timezones) location(name string) *time.Location {
	if loc, ok := t.locs[name]; ok {
		return loc
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.log.Warn("load location failed, falling back to UTC", zap.String("tz", name), zap.Error(err))
		loc = time.UTC
	}
	t.locs[name] = loc
	return loc
}
