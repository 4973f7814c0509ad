package activity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskflow/internal/domain"
)

// DefaultMaxEntries bounds the document-backed log.
const DefaultMaxEntries = 200

// Store persists activity entries. maxEntries <= 0 means unbounded.
type Store interface {
	AppendActivity(ctx context.Context, e domain.ActivityEntry, maxEntries int) error
	RecentActivity(ctx context.Context, limit int) ([]domain.ActivityEntry, error)
}

type Details map[string]any

// Writer stamps and appends entries.
type Writer struct {
	Store      Store
	MaxEntries int
	Now        func() time.Time
}

func (w Writer) Append(ctx context.Context, action, taskID, taskName string, details Details) (domain.ActivityEntry, error) {
	if w.Now == nil {
		w.Now = time.Now
	}
	if details == nil {
		details = Details{}
	}
	e := domain.ActivityEntry{
		ID:        uuid.NewString(),
		Action:    action,
		TaskID:    taskID,
		TaskName:  taskName,
		Details:   map[string]any(details),
		Timestamp: w.Now().UTC(),
	}
	return e, w.Store.AppendActivity(ctx, e, w.MaxEntries)
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (w Writer) Recent(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	return w.Store.RecentActivity(ctx, limit)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries []domain.ActivityEntry
}

func (m *MemoryStore) AppendActivity(_ context.Context, e domain.ActivityEntry, maxEntries int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = Prepend(m.entries, e, maxEntries)
	return nil
}

func (m *MemoryStore) RecentActivity(_ context.Context, limit int) ([]domain.ActivityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Head(m.entries, limit), nil
}

// Prepend inserts e at the front of a newest-first list and truncates it.
func Prepend(entries []domain.ActivityEntry, e domain.ActivityEntry, maxEntries int) []domain.ActivityEntry {
	out := make([]domain.ActivityEntry, 0, len(entries)+1)
	out = append(out, e)
	out = append(out, entries...)
	if maxEntries > 0 && len(out) > maxEntries {
		out = out[:maxEntries]
	}
	return out
}

// Head copies at most limit entries from the front of entries.
func Head(entries []domain.ActivityEntry, limit int) []domain.ActivityEntry {
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return append([]domain.ActivityEntry{}, entries...)
}
