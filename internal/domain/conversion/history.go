package conversion

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// History outcomes
const (
	HistoryConverted = "converted"
	HistoryFailed    = "failed"
)

// HistoryEntry records one conversion requested through the API
type HistoryEntry struct {
	ID         uint64
	RequestID  uuid.UUID // uuid.Nil when the request carried no usable ID
	SourceType string
	TargetType string
	Outcome    string
	Error      string
	Elapsed    time.Duration
	RecordedAt time.Time
}

// NewHistoryEntry builds the entry for a finished conversion; a nil err means success
func NewHistoryEntry(requestID, source, target string, elapsed time.Duration, err error) *HistoryEntry {
	entry := &HistoryEntry{
		SourceType: source,
		TargetType: target,
		Outcome:    HistoryConverted,
		Elapsed:    elapsed,
		RecordedAt: time.Now().UTC(),
	}
	if id, parseErr := uuid.Parse(requestID); parseErr == nil {
		entry.RequestID = id
	}
	if err != nil {
		entry.Outcome = HistoryFailed
		entry.Error = err.Error()
	}
	return entry
}

// HistoryRepository stores the most recent conversions
type HistoryRepository interface {
	// Save stores entry and assigns its ID
	Save(ctx context.Context, entry *HistoryEntry) error
	// Recent returns up to limit entries, newest first
	Recent(ctx context.Context, limit int) ([]HistoryEntry, error)
}
