package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/bekzodm/videoquota-bot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

const accountColumns = `user_id, sequence_id, display_name, debt_seconds, lifetime_seconds,
	today_key, today_worked, created_at, daily_worked, weekly_worked, monthly_worked,
	streak_days, last_submission_day, last_submission_at, warnings_sent,
	last_settled_day, started_chat`

// LoadAccounts reads the whole account ledger into memory.
func (r *SQLiteRepo) LoadAccounts(ctx context.Context) (map[int64]*domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make(map[int64]*domain.Account)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts[a.UserID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

func scanAccount(rows *sql.Rows) (*domain.Account, error) {
	var (
		a         domain.Account
		createdAt int64
		daily     string
		weekly    string
		monthly   string
		lastAt    sql.NullInt64
		warnings  string
		started   int
	)
	if err := rows.Scan(
		&a.UserID, &a.SequenceID, &a.DisplayName, &a.DebtSeconds, &a.LifetimeSeconds,
		&a.TodayKey, &a.TodayWorkedSeconds, &createdAt, &daily, &weekly, &monthly,
		&a.StreakDays, &a.LastSubmissionDay, &lastAt, &warnings,
		&a.LastSettledDay, &started,
	); err != nil {
		return nil, err
	}
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	a.DailyWorked = decodePeriods(daily)
	a.WeeklyWorked = decodePeriods(weekly)
	a.MonthlyWorked = decodePeriods(monthly)
	a.LastSubmissionAt = fromNullInt64(lastAt)
	a.WarningsSent = decodeWarnings(warnings)
	a.StartedChat = started != 0
	return &a, nil
}

// SaveAccount writes the full account record, inserting or replacing it.
func (r *SQLiteRepo) SaveAccount(ctx context.Context, a *domain.Account) error {
	if a == nil {
		return errors.New("nil account")
	}

	created := a.CreatedAt.UTC().Unix()
	if a.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			sequence_id         = excluded.sequence_id,
			display_name        = excluded.display_name,
			debt_seconds        = excluded.debt_seconds,
			lifetime_seconds    = excluded.lifetime_seconds,
			today_key           = excluded.today_key,
			today_worked        = excluded.today_worked,
			daily_worked        = excluded.daily_worked,
			weekly_worked       = excluded.weekly_worked,
			monthly_worked      = excluded.monthly_worked,
			streak_days         = excluded.streak_days,
			last_submission_day = excluded.last_submission_day,
			last_submission_at  = excluded.last_submission_at,
			warnings_sent       = excluded.warnings_sent,
			last_settled_day    = excluded.last_settled_day,
			started_chat        = excluded.started_chat`,
		a.UserID, a.SequenceID, a.DisplayName, a.DebtSeconds, a.LifetimeSeconds,
		a.TodayKey, a.TodayWorkedSeconds, created,
		encodePeriods(a.DailyWorked), encodePeriods(a.WeeklyWorked), encodePeriods(a.MonthlyWorked),
		a.StreakDays, a.LastSubmissionDay, toNullInt64(a.LastSubmissionAt),
		encodeWarnings(a.WarningsSent), a.LastSettledDay, boolToInt(a.StartedChat),
	)
	return err
}

// DeleteAccount removes the whole account record.
func (r *SQLiteRepo) DeleteAccount(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE user_id = ?`, userID)
	return err
}

// LoadSubmissions reads the whole submission identity index into memory.
func (r *SQLiteRepo) LoadSubmissions(ctx context.Context) (map[string]*domain.SubmissionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT unique_id, file_id, user_id, display_name, duration_sec, first_seen_at
		FROM submissions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := make(map[string]*domain.SubmissionRecord)
	for rows.Next() {
		var (
			rec       domain.SubmissionRecord
			firstSeen int64
		)
		if err := rows.Scan(
			&rec.UniqueID, &rec.FileID, &rec.UserID, &rec.DisplayName,
			&rec.DurationSeconds, &firstSeen,
		); err != nil {
			return nil, err
		}
		rec.FirstSeenAt = time.Unix(firstSeen, 0).UTC()
		subs[rec.UniqueID] = &rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

// SaveSubmission inserts a submission record. Records are write-once; a
// conflicting insert leaves the original untouched.
func (r *SQLiteRepo) SaveSubmission(ctx context.Context, rec *domain.SubmissionRecord) error {
	if rec == nil {
		return errors.New("nil submission")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO submissions (unique_id, file_id, user_id, display_name, duration_sec, first_seen_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(unique_id) DO NOTHING`,
		rec.UniqueID, rec.FileID, rec.UserID, rec.DisplayName,
		rec.DurationSeconds, rec.FirstSeenAt.UTC().Unix(),
	)
	return err
}

// LoadUserTimezones reads all per-user timezone overrides.
func (r *SQLiteRepo) LoadUserTimezones(ctx context.Context) (map[int64]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, tz FROM user_timezones`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	zones := make(map[int64]string)
	for rows.Next() {
		var (
			userID int64
			tz     string
		)
		if err := rows.Scan(&userID, &tz); err != nil {
			return nil, err
		}
		zones[userID] = tz
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return zones, nil
}

// SaveUserTimezone records a user's timezone override. Overrides are
// write-once; a conflicting insert leaves the original untouched.
func (r *SQLiteRepo) SaveUserTimezone(ctx context.Context, userID int64, tz string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_timezones (user_id, tz) VALUES (?, ?)
		ON CONFLICT(user_id) DO NOTHING`,
		userID, tz,
	)
	return err
}

// GetSetting returns the value for key, or "" when the key is absent.
func (r *SQLiteRepo) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetSetting inserts or replaces a settings key.
func (r *SQLiteRepo) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}
