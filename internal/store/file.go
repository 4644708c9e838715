package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/digital-seeds-4/preincubation/internal/submission"
)

// FileName is the document File writes inside its directory.
const FileName = "submissions.json"

// File stores every submission in one JSON array on disk. Each write replaces
// the document through a temp file and rename.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile creates a file store at path. A directory path gets FileName
// appended.
func NewFile(path string) (*File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("store: file path is required")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, FileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure data dir: %w", err)
	}
	return &File{path: path}, nil
}

// Path returns the JSON document backing the store.
func (f *File) Path() string {
	return f.path
}

// List returns every submission in stored order.
func (f *File) List(ctx context.Context) ([]submission.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

// Get returns the submission with the given id.
func (f *File) Get(ctx context.Context, id string) (submission.Submission, error) {
	if err := ctx.Err(); err != nil {
		return submission.Submission{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.load()
	if err != nil {
		return submission.Submission{}, err
	}
	if idx := indexOf(all, id); idx >= 0 {
		return all[idx], nil
	}
	return submission.Submission{}, ErrNotFound
}

// Save creates or replaces the submission.
func (f *File) Save(ctx context.Context, sub submission.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkSubmission(sub); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.load()
	if err != nil {
		return err
	}
	if idx := indexOf(all, sub.ID); idx >= 0 {
		all[idx] = sub.Clone()
	} else {
		all = append(all, sub.Clone())
	}
	return f.write(all)
}

// FindByProjectName returns the latest submission for the project.
func (f *File) FindByProjectName(ctx context.Context, name string) (submission.Submission, bool, error) {
	if err := ctx.Err(); err != nil {
		return submission.Submission{}, false, err
	}
	key := NormalizeName(name)
	if key == "" {
		return submission.Submission{}, false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.load()
	if err != nil {
		return submission.Submission{}, false, err
	}
	var (
		found submission.Submission
		ok    bool
	)
	for _, sub := range all {
		if NormalizeName(sub.ProjectName) != key {
			continue
		}
		if !ok || newer(sub, found) {
			found, ok = sub, true
		}
	}
	return found, ok, nil
}

// Update mutates one submission while holding the store lock.
func (f *File) Update(ctx context.Context, id string, fn func(*submission.Submission) error) (submission.Submission, error) {
	if err := ctx.Err(); err != nil {
		return submission.Submission{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.load()
	if err != nil {
		return submission.Submission{}, err
	}
	idx := indexOf(all, id)
	if idx < 0 {
		return submission.Submission{}, ErrNotFound
	}
	working := all[idx].Clone()
	if err := fn(&working); err != nil {
		return submission.Submission{}, err
	}
	working.ID = id
	if err := checkSubmission(working); err != nil {
		return submission.Submission{}, err
	}
	all[idx] = working.Clone()
	if err := f.write(all); err != nil {
		return submission.Submission{}, err
	}
	return working, nil
}

// Close is a no-op; every call opens and closes the file itself.
func (f *File) Close() error {
	return nil
}

func (f *File) load() ([]submission.Submission, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read %s: %w", f.path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var all []submission.Submission
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", f.path, err)
	}
	return all, nil
}

func (f *File) write(all []submission.Submission) error {
	if all == nil {
		all = []submission.Submission{}
	}
	encoded, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode submissions: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".submissions-*.json")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(encoded, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: replace %s: %w", f.path, err)
	}
	return nil
}

func indexOf(all []submission.Submission, id string) int {
	for idx, sub := range all {
		if sub.ID == id {
			return idx
		}
	}
	return -1
}
