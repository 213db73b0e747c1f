package ledger

import (
	"context"

	"go.uber.org/zap"

	"github.com/bekzodm/videoquota-bot/internal/domain"
)

// DedupResult reports whether a submission's content identity was seen for
// the first time. On a duplicate, Original carries the first submitter's
// record so the rejection can be attributed.
type DedupResult struct {
	Accepted bool
	Original *domain.SubmissionRecord
}

// RegisterSubmission records the first submission of a content identity and
// rejects repeats. The presence check and the insert happen under the ledger
// lock as one atomic step, so two concurrent identical submissions cannot
// both be accepted. Identity keys are remembered forever.
func (l *Ledger) RegisterSubmission(ctx context.Context, rec *domain.SubmissionRecord) DedupResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flushDirty(ctx)

	if orig, ok := l.subs[rec.UniqueID]; ok {
		return DedupResult{Original: orig}
	}

	cp := *rec
	l.subs[cp.UniqueID] = &cp
	if err := l.repo.SaveSubmission(ctx, &cp); err != nil {
		l.log.Error("persist submission failed", zap.String("unique_id", cp.UniqueID), zap.Error(err))
		l.dirtySubs[cp.UniqueID] = struct{}{}
	}
	return DedupResult{Accepted: true}
}
