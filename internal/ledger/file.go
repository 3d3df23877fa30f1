package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

type fileData struct {
	Jobs map[string]Job `json:"jobs"`
}

type fileLedger struct {
	mu   sync.RWMutex
	path string
	data fileData
	now  func() time.Time
}

// NewFile creates a Ledger persisted as a single JSON document in dir.
// Every mutation rewrites the document through a temp file and rename, so a
// crash leaves either the old or the new state on disk.
func NewFile(dir string) (Ledger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	l := &fileLedger{
		path: filepath.Join(dir, "jobs.json"),
		now:  time.Now,
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *fileLedger) load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.data = fileData{Jobs: map[string]Job{}}

	file, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return l.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("open ledger file: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&l.data); err != nil {
		if errors.Is(err, io.EOF) {
			return l.saveLocked()
		}
		return fmt.Errorf("decode ledger file: %w", err)
	}
	if l.data.Jobs == nil {
		l.data.Jobs = map[string]Job{}
	}
	return nil
}

func (l *fileLedger) Create(ctx context.Context, id, title, audioLocation string) (Job, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.data.Jobs[id]; ok {
		return Job{}, duplicate(id)
	}

	job := newJob(id, title, audioLocation, l.now())
	l.data.Jobs[id] = job
	if err := l.saveLocked(); err != nil {
		delete(l.data.Jobs, id)
		return Job{}, err
	}
	return job, nil
}

func (l *fileLedger) RecordSuccess(ctx context.Context, id, transcript, summary string) (Job, error) {
	return l.update(id, func(j *Job) error { return j.complete(transcript, summary) })
}

func (l *fileLedger) RecordFailure(ctx context.Context, id, description string) (Job, error) {
	return l.update(id, func(j *Job) error { return j.fail(description) })
}

func (l *fileLedger) update(id string, apply func(*Job) error) (Job, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev, ok := l.data.Jobs[id]
	if !ok {
		return Job{}, notFound(id)
	}

	job := prev
	if err := apply(&job); err != nil {
		return Job{}, err
	}

	l.data.Jobs[id] = job
	if err := l.saveLocked(); err != nil {
		l.data.Jobs[id] = prev
		return Job{}, err
	}
	return job, nil
}

func (l *fileLedger) Get(ctx context.Context, id string) (Job, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	job, ok := l.data.Jobs[id]
	if !ok {
		return Job{}, notFound(id)
	}
	return job, nil
}

func (l *fileLedger) FailStale(ctx context.Context, description string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := make(map[string]Job)
	var ids []string
	for id, job := range l.data.Jobs {
		if job.Status.IsTerminal() {
			continue
		}
		prev[id] = job
		if err := job.fail(description); err != nil {
			return nil, err
		}
		l.data.Jobs[id] = job
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := l.saveLocked(); err != nil {
		for id, job := range prev {
			l.data.Jobs[id] = job
		}
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func (l *fileLedger) Close() error {
	return nil
}

func (l *fileLedger) saveLocked() error {
	tmp, err := os.CreateTemp(filepath.Dir(l.path), "jobs-*.json")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(l.data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode ledger: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp ledger: %w", err)
	}

	if err := os.Rename(tmp.Name(), l.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace ledger file: %w", err)
	}

	return nil
}
