// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobFunc is one run of a scheduled job.
type JobFunc func(ctx context.Context) error

// Scheduler wraps a cron runner. A run that is still going when its next
// tick fires is skipped, and every run gets a context cancelled on Stop.
type Scheduler struct {
	cron   *cron.Cron
	parser cron.Parser
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
	jobs    map[string]cron.EntryID
}

func New(loc *time.Location, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	logger = logger.Named("scheduler")
	adapter := cronLogger{logger: logger.Sugar()}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			// Recover sits inside SkipIfStillRunning so a panicking run still
			// releases its slot.
			cron.WithChain(cron.SkipIfStillRunning(adapter), cron.Recover(adapter)),
		),
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]cron.EntryID),
	}
}

// Add registers fn under name on a five-field cron spec or a descriptor
// such as "@hourly".
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	schedule, err := s.parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s' for job %s: %w", spec, name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	id := s.cron.Schedule(schedule, cron.FuncJob(func() { s.run(name, fn) }))
	s.jobs[name] = id

	s.logger.Info("job registered", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

func (s *Scheduler) run(name string, fn JobFunc) {
	if s.ctx.Err() != nil {
		return
	}

	start := time.Now()
	log := s.logger.With(zap.String("job", name))
	log.Info("job started")

	if err := fn(s.ctx); err != nil {
		log.Error("job failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return
	}
	log.Info("job finished", zap.Duration("duration", time.Since(start)))
}

// Next returns the next activation time of a registered job.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop prevents new runs, cancels the context of running ones and waits for
// them to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	// cron's context is done once every running job has returned.
	cronDone := s.cron.Stop()
	s.cancel()

	select {
	case <-cronDone.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("scheduler stop timed out"), ctx.Err())
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Infow(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
