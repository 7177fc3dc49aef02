package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
)

// JobFunc is a scheduled unit of work
type JobFunc func(ctx context.Context) error

type jobEntry struct {
	name     string
	schedule string
	fn       JobFunc
	cronID   cron.EntryID
	lastRun  time.Time
	lastErr  error
}

// Service runs named jobs on six-field cron schedules (seconds first)
type Service struct {
	cron    *cron.Cron
	logger  arbor.ILogger
	jobMu   sync.Mutex
	jobs    map[string]*jobEntry
	running bool
}

// NewService creates a new scheduler service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		cron:   cron.New(cron.WithSeconds()),
		logger: logger,
		jobs:   make(map[string]*jobEntry),
	}
}

// RegisterJob adds a job. Names are unique.
func (s *Service) RegisterJob(name, schedule string, fn JobFunc) error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	entry := &jobEntry{name: name, schedule: schedule, fn: fn}
	cronID, err := s.cron.AddFunc(schedule, func() { s.run(entry) })
	if err != nil {
		return fmt.Errorf("failed to add cron job %s: %w", name, err)
	}
	entry.cronID = cronID
	s.jobs[name] = entry

	s.logger.Debug().
		Str("job", name).
		Str("schedule", schedule).
		Msg("Scheduled job registered")
	return nil
}

// RunNow executes a registered job immediately on the caller's goroutine
func (s *Service) RunNow(name string) error {
	s.jobMu.Lock()
	entry, ok := s.jobs[name]
	s.jobMu.Unlock()
	if !ok {
		return fmt.Errorf("job %s not registered", name)
	}
	s.run(entry)

	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	return entry.lastErr
}

// Start begins running scheduled jobs
func (s *Service) Start() {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
}

// Stop halts the scheduler and waits for running jobs to finish
func (s *Service) Stop() error {
	s.jobMu.Lock()
	if !s.running {
		s.jobMu.Unlock()
		return nil
	}
	s.running = false
	s.jobMu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

func (s *Service) run(entry *jobEntry) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("job", entry.name).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Scheduled job panicked")
		}
	}()

	start := time.Now()
	err := entry.fn(context.Background())

	s.jobMu.Lock()
	entry.lastRun = start
	entry.lastErr = err
	s.jobMu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Str("job", entry.name).Msg("Scheduled job failed")
		return
	}
	s.logger.Debug().
		Str("job", entry.name).
		Dur("duration", time.Since(start)).
		Msg("Scheduled job completed")
}

// AuditPruneJob deletes audit entries older than retention
func AuditPruneJob(storage interfaces.AuditStorage, retention time.Duration, logger arbor.ILogger) JobFunc {
	return func(ctx context.Context) error {
		deleted, err := storage.DeleteOlderThan(ctx, time.Now().Add(-retention))
		if err != nil {
			return err
		}
		if deleted > 0 {
			logger.Info().Int("deleted", deleted).Msg("Pruned audit entries")
		}
		return nil
	}
}

// Compactor reclaims storage space
type Compactor interface {
	Compact(ctx context.Context) error
}

// CompactJob runs storage compaction, bounded by timeout
func CompactJob(storage Compactor, timeout time.Duration) JobFunc {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return storage.Compact(ctx)
	}
}
