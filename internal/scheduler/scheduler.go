package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"stocketl/internal/pipeline"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Report, error)
}

// Scheduler re-runs the pipeline on a cron schedule. A firing that arrives
// while the previous run is still going is skipped.
type Scheduler struct {
	Cron   *cron.Cron
	Runner Runner
	Ctx    context.Context

	running sync.Mutex
	last    chan *pipeline.Report
}

// NewScheduler creates a new Scheduler using 6-field (seconds first) specs.
func NewScheduler(ctx context.Context, r Runner) *Scheduler {
	logger := cron.PrintfLogger(log.Default())
	return &Scheduler{
		Cron:   cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(logger))),
		Runner: r,
		Ctx:    ctx,
		last:   make(chan *pipeline.Report, 1),
	}
}

// Register adds the pipeline run under spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.runTask); err != nil {
		return fmt.Errorf("register etl task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes a run immediately, outside the schedule, and returns its
// report. It waits for a scheduled run in progress to finish first.
func (s *Scheduler) RunNow() *pipeline.Report {
	log.Println("[INFO] running etl task now")
	return s.execute()
}

// Last returns the report of the most recent finished scheduled run, if one
// is pending.
func (s *Scheduler) Last() (*pipeline.Report, bool) {
	select {
	case r := <-s.last:
		return r, true
	default:
		return nil, false
	}
}

func (s *Scheduler) runTask() {
	log.Println("[INFO] running scheduled etl task")
	rep := s.execute()
	// keep only the newest report
	select {
	case <-s.last:
	default:
	}
	select {
	case s.last <- rep:
	default:
	}
}

// execute runs the pipeline; scheduled and manual runs never overlap.
func (s *Scheduler) execute() *pipeline.Report {
	s.running.Lock()
	defer s.running.Unlock()
	rep, err := s.Runner.Run(s.Ctx)
	if err != nil {
		log.Printf("[ERROR] etl run failed: %v", err)
	}
	return rep
}
