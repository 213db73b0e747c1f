package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/bekzodm/videoquota-bot/internal/domain"
)

func toNullInt64(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func fromNullInt64(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := time.Unix(ns.Int64, 0).UTC()
	return &t
}

// Period accumulators and the warning set are stored as JSON text columns;
// they are small, append-only maps read back whole at startup.

func encodePeriods(m map[string]int64) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func decodePeriods(s string) map[string]int64 {
	m := make(map[string]int64)
	if s == "" {
		return m
	}
	_ = json.Unmarshal([]byte(s), &m)
	return m
}

func encodeWarnings(sent map[domain.WarningTag]bool) string {
	tags := make([]string, 0, len(sent))
	for tag, ok := range sent {
		if ok {
			tags = append(tags, string(tag))
		}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeWarnings(s string) map[domain.WarningTag]bool {
	sent := make(map[domain.WarningTag]bool)
	if s == "" {
		return sent
	}
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		return sent
	}
	for _, tag := range tags {
		sent[domain.WarningTag(tag)] = true
	}
	return sent
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
