// Package jobs runs the periodic maintenance work: ranking recomputes,
// promotion expiry, notification pruning, and subscription downgrades.
package jobs

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campusconfessions/backend/internal/logger"
)

// Job is one named unit of periodic work
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error

	running sync.Mutex
}

// Scheduler runs registered jobs on their intervals. Each job gets an
// overlap guard so a slow run never stacks on top of itself, and a small
// startup jitter so multiple instances don't fire in lockstep.
type Scheduler struct {
	jobs   []*Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{ctx: ctx, cancel: cancel}
}

// Register adds a job to the schedule
func (s *Scheduler) Register(name string, interval time.Duration, run func(ctx context.Context) error) {
	s.jobs = append(s.jobs, &Job{Name: name, Interval: interval, Run: run})
}

// Start launches one goroutine per job. Each job runs once shortly after
// startup, then on its interval.
func (s *Scheduler) Start() {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runLoop(job)
	}
	logger.InfoWithFields("Job scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop cancels all jobs and waits for in-flight runs to finish
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	logger.InfoWithFields("Job scheduler stopped")
}

func (s *Scheduler) runLoop(job *Job) {
	defer s.wg.Done()

	// Jitter spreads the initial runs out instead of firing everything at
	// process start.
	jitter := time.Duration(rand.Int63n(int64(10 * time.Second)))
	select {
	case <-time.After(jitter):
	case <-s.ctx.Done():
		return
	}

	s.execute(job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.execute(job)
		case <-s.ctx.Done():
			return
		}
	}
}

// execute runs a job once, skipping if the previous run is still going
func (s *Scheduler) execute(job *Job) {
	if !job.running.TryLock() {
		logger.Warn("Skipping job run, previous run still in progress",
			zap.String("job", job.Name))
		return
	}
	defer job.running.Unlock()

	start := time.Now()
	if err := job.Run(s.ctx); err != nil {
		logger.Error("Job failed",
			zap.String("job", job.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return
	}
	logger.InfoWithFields("Job completed",
		zap.String("job", job.Name),
		zap.Duration("elapsed", time.Since(start)))
}
