package schedule

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RunFunc performs one scheduled build
type RunFunc func(ctx context.Context, e Entry, at time.Time) error

// Scheduler decides which entries are due. Builds run one at a time on the
// caller's goroutine; Replace may be called concurrently.
type Scheduler struct {
	mu        sync.Mutex
	entries   []Entry
	schedules map[string]cron.Schedule
	lastRun   map[string]time.Time
	now       func() time.Time
	logger    *slog.Logger
}

// NewScheduler creates a scheduler. Entries become due at their first
// activation after the scheduler was created.
func NewScheduler(entries []Entry, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	schedules, err := compile(entries)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		entries:   append([]Entry(nil), entries...),
		schedules: schedules,
		lastRun:   make(map[string]time.Time),
		now:       time.Now,
		logger:    logger,
	}
	s.reset(s.now())
	return s, nil
}

func compile(entries []Entry) (map[string]cron.Schedule, error) {
	schedules := make(map[string]cron.Schedule, len(entries))
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("schedule %q: %w", e.Name, err)
		}
		if _, dup := schedules[e.Name]; dup {
			return nil, fmt.Errorf("duplicate schedule name %q", e.Name)
		}
		schedules[e.Name], _ = ParseCron(e.Cron)
	}
	return schedules, nil
}

// Replace swaps in a new entry list. Entries whose name and cron are
// unchanged keep their last run; everything else starts from now.
// An invalid list leaves the scheduler untouched.
func (s *Scheduler) Replace(entries []Entry) error {
	schedules, err := compile(entries)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := make(map[string]string, len(s.entries))
	for _, e := range s.entries {
		old[e.Name] = e.Cron
	}
	now := s.now()
	lastRun := make(map[string]time.Time, len(entries))
	for _, e := range entries {
		if cronExpr, ok := old[e.Name]; ok && cronExpr == e.Cron {
			lastRun[e.Name] = s.lastRun[e.Name]
			continue
		}
		lastRun[e.Name] = now
	}

	s.entries = append([]Entry(nil), entries...)
	s.schedules = schedules
	s.lastRun = lastRun
	s.logger.Info("schedule reloaded", "entries", len(entries))
	return nil
}

// WithClock replaces the time source and restarts every entry from now()
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	s.reset(now())
	return s
}

func (s *Scheduler) reset(at time.Time) {
	for _, e := range s.entries {
		s.lastRun[e.Name] = at
	}
}

// Entries returns the configured entries in file order
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// NextRun returns the next activation of the named entry
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun(name)
}

func (s *Scheduler) nextRun(name string) time.Time {
	sched, ok := s.schedules[name]
	if !ok {
		return time.Time{}
	}
	return sched.Next(s.lastRun[name])
}

// Due returns the entries whose next activation is not after now, earliest first
func (s *Scheduler) Due(now time.Time) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Entry
	next := make(map[string]time.Time)
	for _, e := range s.entries {
		at := s.nextRun(e.Name)
		if !at.After(now) {
			due = append(due, e)
			next[e.Name] = at
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return next[due[i].Name].Before(next[due[j].Name])
	})
	return due
}

func (s *Scheduler) markRun(name string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schedules[name]; ok {
		s.lastRun[name] = at
	}
}

func (s *Scheduler) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

// RunDue runs every due entry sequentially and returns how many ran.
// A failing build is logged and does not stop the others.
func (s *Scheduler) RunDue(ctx context.Context, run RunFunc) int {
	now := s.clock()
	n := 0
	for _, e := range s.Due(now) {
		if ctx.Err() != nil {
			break
		}
		s.logger.Info("running scheduled build", "name", e.Name)
		if err := run(ctx, e, now); err != nil {
			s.logger.Error("scheduled build failed", "name", e.Name, "err", err)
		}
		// missed activations are skipped, not replayed
		s.markRun(e.Name, now)
		n++
	}
	return n
}

// RunAll runs every entry once, regardless of its schedule
func (s *Scheduler) RunAll(ctx context.Context, run RunFunc) error {
	now := s.clock()
	for _, e := range s.Entries() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := run(ctx, e, now); err != nil {
			return fmt.Errorf("%s: %w", e.Name, err)
		}
		s.markRun(e.Name, now)
	}
	return nil
}

// Start checks for due entries every interval until ctx is done
func (s *Scheduler) Start(ctx context.Context, interval time.Duration, run RunFunc) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunDue(ctx, run)
		}
	}
}
