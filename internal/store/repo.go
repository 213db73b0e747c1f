package store

import (
	"context"

	"github.com/bekzodm/videoquota-bot/internal/domain"
)

// Repo defines storage operations for the three persisted stores: the
// account ledger, the submission identity index and timezone/settings
// assignments. Every store is loaded fully into memory at startup and
// written through record-by-record on mutation.
type Repo interface {
	LoadAccounts(ctx context.Context) (map[int64]*domain.Account, error)
	SaveAccount(ctx context.Context, a *domain.Account) error
	DeleteAccount(ctx context.Context, userID int64) error

	LoadSubmissions(ctx context.Context) (map[string]*domain.SubmissionRecord, error)
	SaveSubmission(ctx context.Context, rec *domain.SubmissionRecord) error

	LoadUserTimezones(ctx context.Context) (map[int64]string, error)
	SaveUserTimezone(ctx context.Context, userID int64, tz string) error

	GetSetting(ctx context.Context, key string) (string, error) // "" when absent
	SetSetting(ctx context.Context, key, value string) error

	Close() error
}
