package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryLedger struct {
	mu   sync.RWMutex
	jobs map[string]Job
	now  func() time.Time
}

// NewMemory creates a Ledger that keeps jobs in process memory.
func NewMemory() Ledger {
	return &memoryLedger{
		jobs: map[string]Job{},
		now:  time.Now,
	}
}

func (m *memoryLedger) Create(ctx context.Context, id, title, audioLocation string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[id]; ok {
		return Job{}, duplicate(id)
	}
	job := newJob(id, title, audioLocation, m.now())
	m.jobs[id] = job
	return job, nil
}

func (m *memoryLedger) RecordSuccess(ctx context.Context, id, transcript, summary string) (Job, error) {
	return m.update(id, func(j *Job) error { return j.complete(transcript, summary) })
}

func (m *memoryLedger) RecordFailure(ctx context.Context, id, description string) (Job, error) {
	return m.update(id, func(j *Job) error { return j.fail(description) })
}

func (m *memoryLedger) update(id string, apply func(*Job) error) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return Job{}, notFound(id)
	}
	if err := apply(&job); err != nil {
		return Job{}, err
	}
	m.jobs[id] = job
	return job, nil
}

func (m *memoryLedger) Get(ctx context.Context, id string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return Job{}, notFound(id)
	}
	return job, nil
}

func (m *memoryLedger) FailStale(ctx context.Context, description string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id, job := range m.jobs {
		if job.Status.IsTerminal() {
			continue
		}
		if err := job.fail(description); err != nil {
			return ids, err
		}
		m.jobs[id] = job
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memoryLedger) Close() error {
	return nil
}
