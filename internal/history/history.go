// Package history keeps bounded undo/redo stacks of task collection snapshots.
package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskflow/internal/domain"
)

// DefaultCapacity bounds the undo stack when no capacity is configured.
const DefaultCapacity = 50

var ErrEmptyStack = errors.New("history stack is empty")

type Entry struct {
	Action    string        `json:"action"`
	State     []domain.Task `json:"state"`
	Timestamp time.Time     `json:"timestamp"`
}

type Stacks struct {
	Undo []Entry `json:"undoStack"`
	Redo []Entry `json:"redoStack"`
}

type Status struct {
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

// Store persists both stacks as a unit.
type Store interface {
	LoadHistory(ctx context.Context) (Stacks, error)
	SaveHistory(ctx context.Context, s Stacks) error
}

// Log is safe for concurrent use within one process.
type Log struct {
	store    Store
	capacity int
	Now      func() time.Time
	mu       *sync.Mutex
}

func New(store Store, capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{store: store, capacity: capacity, Now: time.Now, mu: &sync.Mutex{}}
}

// WithClock returns a Log over the same store and lock that stamps entries
// with clock. l itself is left unchanged.
func (l *Log) WithClock(clock func() time.Time) *Log {
	return &Log{store: l.store, capacity: l.capacity, Now: clock, mu: l.mu}
}

func (l *Log) Capacity() int { return l.capacity }

// Record pushes the pre-mutation snapshot and discards the redo stack.
func (l *Log) Record(ctx context.Context, action string, before []domain.Task) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.store.LoadHistory(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	s.Undo = append(s.Undo, Entry{Action: action, State: domain.CloneTasks(before), Timestamp: l.Now().UTC()})
	if over := len(s.Undo) - l.capacity; over > 0 {
		s.Undo = append([]Entry(nil), s.Undo[over:]...)
	}
	s.Redo = nil
	if err := l.store.SaveHistory(ctx, s); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Undo pops the newest undo entry, pushes current onto the redo stack and hands
// the popped snapshot to apply. Stacks are only persisted when apply succeeds.
func (l *Log) Undo(ctx context.Context, current []domain.Task, apply func([]domain.Task) error) (Entry, error) {
	return l.move(ctx, current, apply, true)
}

// Redo is the mirror of Undo.
func (l *Log) Redo(ctx context.Context, current []domain.Task, apply func([]domain.Task) error) (Entry, error) {
	return l.move(ctx, current, apply, false)
}

func (l *Log) move(ctx context.Context, current []domain.Task, apply func([]domain.Task) error, undo bool) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.store.LoadHistory(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("load history: %w", err)
	}
	from, to := &s.Undo, &s.Redo
	if !undo {
		from, to = &s.Redo, &s.Undo
	}
	if len(*from) == 0 {
		return Entry{}, ErrEmptyStack
	}
	entry := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	*to = append(*to, Entry{Action: entry.Action, State: domain.CloneTasks(current), Timestamp: l.Now().UTC()})
	if over := len(*to) - l.capacity; over > 0 {
		*to = append([]Entry(nil), (*to)[over:]...)
	}
	if err := apply(domain.CloneTasks(entry.State)); err != nil {
		return Entry{}, err
	}
	if err := l.store.SaveHistory(ctx, s); err != nil {
		return Entry{}, fmt.Errorf("save history: %w", err)
	}
	return entry, nil
}

func (l *Log) Status(ctx context.Context) (Status, error) {
	s, err := l.store.LoadHistory(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("load history: %w", err)
	}
	return Status{CanUndo: len(s.Undo) > 0, CanRedo: len(s.Redo) > 0}, nil
}

// Depth returns the sizes of the undo and redo stacks.
func (l *Log) Depth(ctx context.Context) (undo, redo int, err error) {
	s, err := l.store.LoadHistory(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("load history: %w", err)
	}
	return len(s.Undo), len(s.Redo), nil
}

// MemoryStore keeps stacks in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	stacks Stacks
}

func (m *MemoryStore) LoadHistory(context.Context) (Stacks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stacks{
		Undo: append([]Entry(nil), m.stacks.Undo...),
		Redo: append([]Entry(nil), m.stacks.Redo...),
	}, nil
}

func (m *MemoryStore) SaveHistory(_ context.Context, s Stacks) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stacks = s
	return nil
}
