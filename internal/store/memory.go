package store

import (
	"context"
	"sync"

	"github.com/digital-seeds-4/preincubation/internal/submission"
)

// Memory keeps submissions in process memory.
type Memory struct {
	mu    sync.Mutex
	order []string
	items map[string]submission.Submission
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{items: map[string]submission.Submission{}}
}

// List returns copies of every submission in insertion order.
func (m *Memory) List(ctx context.Context) ([]submission.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]submission.Submission, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.items[id].Clone())
	}
	return out, nil
}

// Get returns the submission with the given id.
func (m *Memory) Get(ctx context.Context, id string) (submission.Submission, error) {
	if err := ctx.Err(); err != nil {
		return submission.Submission{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.items[id]
	if !ok {
		return submission.Submission{}, ErrNotFound
	}
	return sub.Clone(), nil
}

// Save creates or replaces the submission.
func (m *Memory) Save(ctx context.Context, sub submission.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkSubmission(sub); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[sub.ID]; !exists {
		m.order = append(m.order, sub.ID)
	}
	m.items[sub.ID] = sub.Clone()
	return nil
}

// FindByProjectName returns the latest submission for the project.
func (m *Memory) FindByProjectName(ctx context.Context, name string) (submission.Submission, bool, error) {
	if err := ctx.Err(); err != nil {
		return submission.Submission{}, false, err
	}
	key := NormalizeName(name)
	if key == "" {
		return submission.Submission{}, false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		found submission.Submission
		ok    bool
	)
	for _, id := range m.order {
		sub := m.items[id]
		if NormalizeName(sub.ProjectName) != key {
			continue
		}
		if !ok || newer(sub, found) {
			found, ok = sub, true
		}
	}
	if !ok {
		return submission.Submission{}, false, nil
	}
	return found.Clone(), true, nil
}

// Update mutates the stored submission under the store lock.
func (m *Memory) Update(ctx context.Context, id string, fn func(*submission.Submission) error) (submission.Submission, error) {
	if err := ctx.Err(); err != nil {
		return submission.Submission{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.items[id]
	if !ok {
		return submission.Submission{}, ErrNotFound
	}
	working := current.Clone()
	if err := fn(&working); err != nil {
		return submission.Submission{}, err
	}
	working.ID = id
	if err := checkSubmission(working); err != nil {
		return submission.Submission{}, err
	}
	m.items[id] = working.Clone()
	return working, nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
