// Package scheduler runs resource snapshots on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/staffdesk/staffdesk/internal/config"
)

// SnapshotFunc takes one snapshot. It is never called concurrently for
// the same resource.
type SnapshotFunc func(ctx context.Context, job config.SnapshotSchedule) error

// SnapshotStatus is the schedule state of one resource.
type SnapshotStatus struct {
	Resource  string    `json:"resource"`
	Format    string    `json:"format"`
	Running   bool      `json:"running"`
	LastRun   time.Time `json:"last_run,omitempty"`
	NextRun   time.Time `json:"next_run"`
	Schedule  string    `json:"schedule"`
	Runs      int       `json:"runs"`
	LastError string    `json:"last_error,omitempty"`
}

// Scheduler manages cron-based snapshot scheduling.
type Scheduler struct {
	cron   *cron.Cron
	run    SnapshotFunc
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]cron.EntryID            // resource -> cron entry ID
	jobs    map[string]config.SnapshotSchedule // resource -> schedule
	running map[string]bool                    // resource -> currently running
	lastRun map[string]time.Time               // resource -> last successful run
	lastErr map[string]error                   // resource -> last error
	runs    map[string]int                     // resource -> completed runs

	ctx     context.Context    // cancelled on Stop
	cancel  context.CancelFunc // cancels ctx
	wg      sync.WaitGroup     // tracks running snapshot goroutines
	started bool
	stopped bool
}

func newParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// New creates a new Scheduler with the given snapshot callback.
func New(run SnapshotFunc) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithParser(newParser())),
		run:     run,
		logger:  slog.Default(),
		entries: make(map[string]cron.EntryID),
		jobs:    make(map[string]config.SnapshotSchedule),
		running: make(map[string]bool),
		lastRun: make(map[string]time.Time),
		lastErr: make(map[string]error),
		runs:    make(map[string]int),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// WithLogger sets the logger for the scheduler.
func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	s.logger = logger
	return s
}

// Add schedules job, replacing any existing schedule for its resource.
// Returns an error if the cron expression is invalid.
func (s *Scheduler) Add(job config.SnapshotSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.entries[job.Resource]; exists {
		s.cron.Remove(entryID)
		delete(s.entries, job.Resource)
		delete(s.jobs, job.Resource)
	}

	resource := job.Resource
	entryID, err := s.cron.AddFunc(job.Schedule, func() {
		if s.begin(resource) {
			s.runJob(resource)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", job.Schedule, err)
	}

	s.entries[resource] = entryID
	s.jobs[resource] = job
	s.logger.Info("scheduled snapshot",
		"resource", resource,
		"schedule", job.Schedule,
		"next_run", s.cron.Entry(entryID).Next)
	return nil
}

// AddFromConfig adds every enabled snapshot from cfg. Returns the number
// scheduled and any errors encountered.
func (s *Scheduler) AddFromConfig(cfg *config.Config) (int, []error) {
	var errs []error
	scheduled := 0
	for _, job := range cfg.ScheduledSnapshots() {
		if err := s.Add(job); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", job.Resource, err))
			continue
		}
		scheduled++
	}
	return scheduled, errs
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.started = true
	s.stopped = false
	n := len(s.entries)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", n)
}

// IsRunning returns true if the scheduler has been started and not yet stopped.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && !s.stopped
}

// Stop stops the scheduler, cancels running snapshots, and returns a
// context that is done when all work completes.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("scheduler stopping")

	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	s.cancel()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		cancel()
	}()
	return ctx
}

// begin marks resource as running. It reports false when the scheduler
// is stopped or a snapshot of resource is already in progress.
func (s *Scheduler) begin(resource string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.running[resource] {
		if s.running[resource] {
			s.logger.Debug("snapshot still running, skipping tick", "resource", resource)
		}
		return false
	}
	s.running[resource] = true
	s.wg.Add(1)
	return true
}

// runJob executes the snapshot. The caller must have called begin.
func (s *Scheduler) runJob(resource string) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.running[resource] = false
		s.mu.Unlock()
	}()

	s.mu.RLock()
	job := s.jobs[resource]
	s.mu.RUnlock()

	s.logger.Info("starting scheduled snapshot", "resource", resource)
	start := time.Now()

	err := s.run(s.ctx, job)

	s.mu.Lock()
	s.runs[resource]++
	if err != nil {
		s.lastErr[resource] = err
		s.logger.Error("scheduled snapshot failed",
			"resource", resource,
			"duration", time.Since(start),
			"error", err)
	} else {
		s.lastRun[resource] = time.Now()
		s.lastErr[resource] = nil
		s.logger.Info("scheduled snapshot completed",
			"resource", resource,
			"duration", time.Since(start))
	}
	s.mu.Unlock()
}

// IsScheduled returns true if resource has a schedule.
func (s *Scheduler) IsScheduled(resource string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.entries[resource]
	return exists
}

// Trigger runs a snapshot of resource now, outside its schedule.
// Returns an error if one is already running, the resource is not
// scheduled, or the scheduler has been stopped.
func (s *Scheduler) Trigger(resource string) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is stopped")
	}
	if _, exists := s.entries[resource]; !exists {
		s.mu.Unlock()
		return fmt.Errorf("resource %s is not scheduled", resource)
	}
	if s.running[resource] {
		s.mu.Unlock()
		return fmt.Errorf("snapshot already running for %s", resource)
	}
	s.running[resource] = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.runJob(resource)
	return nil
}

// Status returns the state of every scheduled resource, sorted by name.
func (s *Scheduler) Status() []SnapshotStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]SnapshotStatus, 0, len(s.entries))
	for resource, entryID := range s.entries {
		job := s.jobs[resource]
		status := SnapshotStatus{
			Resource: resource,
			Format:   job.Format,
			Running:  s.running[resource],
			LastRun:  s.lastRun[resource],
			NextRun:  s.cron.Entry(entryID).Next,
			Schedule: job.Schedule,
			Runs:     s.runs[resource],
		}
		if err := s.lastErr[resource]; err != nil {
			status.LastError = err.Error()
		}
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Resource < statuses[j].Resource })
	return statuses
}

// CheckSchedules reports every enabled snapshot in cfg whose schedule does
// not parse, so a bad entry fails at startup instead of being skipped.
func CheckSchedules(cfg *config.Config) error {
	var problems []string
	for _, job := range cfg.ScheduledSnapshots() {
		if err := ValidateCronExpr(job.Schedule); err != nil {
			problems = append(problems, fmt.Sprintf("snapshots.%s.schedule: %v", job.Resource, err))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

// ValidateCronExpr validates a cron expression without scheduling anything.
func ValidateCronExpr(expr string) error {
	if _, err := newParser().Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
