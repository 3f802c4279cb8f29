package jobs

import (
	"fmt"
	"sort"
	"sync"
	"time"

	apierrors "dealpulse/internal/errors"
	"dealpulse/pkg/contracts/domain"
)

// Store keeps job records in memory. Jobs are transient: a restart clears
// the queue, and terminal jobs age out after the retention window.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// NewStore returns an empty job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*domain.Job)}
}

// Create adds a new job record. Job IDs must be unique.
func (s *Store) Create(job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}

	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

// Get returns a copy of the job so callers cannot mutate stored state.
func (s *Store) Get(id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, apierrors.ErrJobMissing)
	}

	copied := *job
	return &copied, nil
}

// Update replaces an existing job record.
func (s *Store) Update(job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("job %s: %w", job.ID, apierrors.ErrJobMissing)
	}

	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

// List returns matching jobs newest first, along with the total number of
// matches before the filter's limit was applied.
func (s *Store) List(filter domain.JobFilter) ([]*domain.Job, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if !filter.Matches(job) {
			continue
		}
		copied := *job
		matched = append(matched, &copied)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].SubmittedAt.Equal(matched[j].SubmittedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].SubmittedAt.After(matched[j].SubmittedAt)
	})

	total := len(matched)
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total
}

// CountByStatus tallies jobs per lifecycle state.
func (s *Store) CountByStatus() map[domain.JobStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.JobStatus]int, 5)
	for _, job := range s.jobs {
		counts[job.Status]++
	}
	return counts
}

// Prune removes terminal jobs that finished more than olderThan ago and
// returns how many were removed. Pending and running jobs are never
// pruned.
func (s *Store) Prune(olderThan time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for id, job := range s.jobs {
		if !job.Status.IsTerminal() {
			continue
		}
		finished := job.SubmittedAt
		if job.FinishedAt != nil {
			finished = *job.FinishedAt
		}
		if finished.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}
