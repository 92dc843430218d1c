// Package janitor removes run workspaces left behind by crashed or killed
// processes. Normal runs remove their own workspace before returning.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/letterdesk/approvals/pkg/logger"
)

// Defaults.
const (
	DefaultSchedule = "*/30 * * * *"
	DefaultMaxAge   = time.Hour
)

// workspacePatterns match per-run and per-download directories.
var workspacePatterns = []string{"approval-*", "archive-read-*"}

var (
	ErrInvalidSchedule = errors.New("janitor: invalid schedule")
	ErrNoDir           = errors.New("janitor: no directory to sweep")
)

// Janitor sweeps stale workspaces on a cron schedule.
type Janitor struct {
	dir      string
	inUse    []func(path string) bool
	maxAge   time.Duration
	schedule cron.Schedule
	logger   *slog.Logger
	now      func() time.Time

	cron *cron.Cron
}

// Option configures a Janitor.
type Option func(*Janitor)

// WithMaxAge sets the age after which a workspace counts as abandoned.
func WithMaxAge(d time.Duration) Option {
	return func(j *Janitor) {
		if d > 0 {
			j.maxAge = d
		}
	}
}

// WithInUse registers a check for workspaces still held by a live run.
// Held workspaces are never removed, whatever their age.
func WithInUse(check func(path string) bool) Option {
	return func(j *Janitor) {
		if check != nil {
			j.inUse = append(j.inUse, check)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(j *Janitor) {
		if l != nil {
			j.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(j *Janitor) {
		if now != nil {
			j.now = now
		}
	}
}

// New creates a Janitor sweeping dir, which should be owned by this service.
// schedule is a five-field cron expression.
func New(schedule, dir string, opts ...Option) (*Janitor, error) {
	if dir == "" {
		return nil, ErrNoDir
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, schedule, err)
	}

	j := &Janitor{
		dir:      filepath.Clean(dir),
		maxAge:   DefaultMaxAge,
		schedule: sched,
		logger:   logger.NewNope(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Sweep removes matching directories older than the max age and returns how
// many were removed. Individual failures are logged and joined into the error.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-j.maxAge)

	var (
		removed int
		errs    []error
	)
	for _, pattern := range workspacePatterns {
		matches, err := filepath.Glob(filepath.Join(j.dir, pattern))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, path := range matches {
			if err := ctx.Err(); err != nil {
				return removed, err
			}
			info, err := os.Stat(path)
			if err != nil || !info.IsDir() || info.ModTime().After(cutoff) || j.held(path) {
				continue
			}
			if err := os.RemoveAll(path); err != nil {
				j.logger.WarnContext(ctx, "failed to remove stale workspace",
					slog.String("path", path),
					slog.String("error", err.Error()))
				errs = append(errs, err)
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		j.logger.InfoContext(ctx, "removed stale workspaces", slog.Int("count", removed))
	}
	return removed, errors.Join(errs...)
}

func (j *Janitor) held(path string) bool {
	for _, check := range j.inUse {
		if check(path) {
			return true
		}
	}
	return false
}

// Start runs Sweep on the schedule until Stop.
func (j *Janitor) Start() {
	j.cron = cron.New()
	j.cron.Schedule(j.schedule, cron.FuncJob(func() {
		_, _ = j.Sweep(context.Background())
	}))
	j.cron.Start()
}

// Stop halts the schedule and waits for a running sweep, bounded by ctx.
func (j *Janitor) Stop(ctx context.Context) error {
	if j.cron == nil {
		return nil
	}
	select {
	case <-j.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
