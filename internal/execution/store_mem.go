package execution

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// memRow is an execution plus its insertion sequence, used to break ties
// between rows with equal start times.
type memRow struct {
	exec Execution
	seq  int64
}

// InMemoryStore is a thread-safe Store held in process memory. Lock
// acquisition runs the reclaim and insert steps under one mutex, which makes
// it atomic for every caller in the process.
type InMemoryStore struct {
	mu   sync.Mutex
	rows map[string]*memRow
	seq  int64
	opts Options
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore(opts ...Option) *InMemoryStore {
	return &InMemoryStore{
		rows: make(map[string]*memRow),
		opts: BuildOptions(opts...),
	}
}

// Compile-time interface check.
var _ Store = (*InMemoryStore)(nil)

// AcquireLock implements Store.
func (s *InMemoryStore) AcquireLock(_ context.Context, jobName string) (*Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now().UTC()
	for _, r := range s.rows {
		if r.exec.JobName != jobName || r.exec.Status != StatusRunning {
			continue
		}
		if !r.exec.IsStale(now, s.opts.StaleAfter) {
			return nil, nil
		}
		completed := now
		r.exec.Status = StatusFailed
		r.exec.CompletedAt = &completed
		r.exec.ErrorCount = 1
		r.exec.Errors = []string{StaleLockMessage(s.opts.StaleAfter)}
		s.opts.Logger.Warn("execution: reclaimed stale lock", "job", jobName, "execution_id", r.exec.ID)
	}

	s.seq++
	row := &memRow{
		exec: Execution{
			ID:        NewID(),
			JobName:   jobName,
			StartedAt: now,
			Status:    StatusRunning,
		},
		seq: s.seq,
	}
	s.rows[row.exec.ID] = row

	out := cloneExecution(row.exec)
	return &out, nil
}

// MarkCompleted implements Store.
func (s *InMemoryStore) MarkCompleted(_ context.Context, id string, processed, errorCount int, errs []string, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.runningRow(id)
	if err != nil {
		return err
	}
	completed := s.opts.Now().UTC()
	r.exec.Status = StatusCompleted
	r.exec.CompletedAt = &completed
	r.exec.ProcessedCount = processed
	r.exec.ErrorCount = errorCount
	r.exec.Errors = slices.Clone(errs)
	r.exec.Metadata = maps.Clone(metadata)
	return nil
}

// MarkFailed implements Store.
func (s *InMemoryStore) MarkFailed(_ context.Context, id string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.runningRow(id)
	if err != nil {
		return err
	}
	completed := s.opts.Now().UTC()
	r.exec.Status = StatusFailed
	r.exec.CompletedAt = &completed
	r.exec.ErrorCount = 1
	r.exec.Errors = []string{message}
	return nil
}

// runningRow must be called with s.mu held.
func (s *InMemoryStore) runningRow(id string) (*memRow, error) {
	r, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.exec.Status != StatusRunning {
		return nil, ErrAlreadyFinished
	}
	return r, nil
}

// LastExecution implements Store.
func (s *InMemoryStore) LastExecution(_ context.Context, jobName string) (*Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.sortedFor(jobName) {
		if r.exec.Terminal() {
			out := cloneExecution(r.exec)
			return &out, nil
		}
	}
	return nil, nil
}

// RecentExecutions implements Store.
func (s *InMemoryStore) RecentExecutions(_ context.Context, jobName string, limit int) ([]Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.sortedFor(jobName)
	limit = ClampLimit(limit)
	if len(rows) > limit {
		rows = rows[:limit]
	}

	out := make([]Execution, 0, len(rows))
	for _, r := range rows {
		out = append(out, cloneExecution(r.exec))
	}
	return out, nil
}

// Purge implements Store.
func (s *InMemoryStore) Purge(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, r := range s.rows {
		if r.exec.StartedAt.Before(before) {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored rows.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// sortedFor returns jobName's rows newest first. Must be called with s.mu held.
func (s *InMemoryStore) sortedFor(jobName string) []*memRow {
	var rows []*memRow
	for _, r := range s.rows {
		if r.exec.JobName == jobName {
			rows = append(rows, r)
		}
	}
	slices.SortFunc(rows, func(a, b *memRow) int {
		if c := b.exec.StartedAt.Compare(a.exec.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})
	return rows
}

func cloneExecution(e Execution) Execution {
	e.Errors = slices.Clone(e.Errors)
	e.Metadata = maps.Clone(e.Metadata)
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		e.CompletedAt = &t
	}
	return e
}
