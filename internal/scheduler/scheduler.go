package scheduler

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is a maintenance task run every Interval
type Job struct {
	Name     string
	Interval time.Duration

	// RunAtStartup runs the job once as soon as the scheduler starts
	RunAtStartup bool

	Run func(ctx context.Context) error
}

// Scheduler manages periodic execution of maintenance jobs
type Scheduler struct {
	jobs     []Job
	logger   *logrus.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	jobMutex sync.Mutex // Ensures sequential job execution
	stopOnce sync.Once
}

// NewScheduler creates a new scheduler. Jobs without a positive interval
// or a Run func are ignored.
func NewScheduler(logger *logrus.Logger, jobs ...Job) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	var valid []Job
	for _, job := range jobs {
		if job.Interval <= 0 || job.Run == nil {
			logger.WithField("job", job.Name).Info("Job disabled")
			continue
		}
		valid = append(valid, job)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:   valid,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the scheduled tasks
func (s *Scheduler) Start() {
	var startup []Job
	for _, job := range s.jobs {
		if job.RunAtStartup {
			startup = append(startup, job)
		}
		s.wg.Add(1)
		go s.runJob(job)
	}

	if len(startup) == 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("Running startup jobs")
		for _, job := range startup {
			s.execute(job)
		}
		s.logger.Info("Startup jobs completed")
	}()
}

func (s *Scheduler) runJob(job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.execute(job)
		}
	}
}

// execute runs one job, never two at the same time
func (s *Scheduler) execute(job Job) {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	if s.ctx.Err() != nil {
		return
	}

	start := time.Now()
	fields := logrus.Fields{"job": job.Name}
	s.logger.WithFields(fields).Debug("Starting job")

	if err := job.Run(s.ctx); err != nil {
		s.logger.WithError(err).WithFields(fields).Error("Job failed")
		return
	}

	fields["duration"] = time.Since(start).String()
	s.logger.WithFields(fields).Info("Job completed successfully")
}

// Stop cancels running jobs and waits for the scheduler to exit
func (s *Scheduler) Stop() {
	s.stopOnce.Do(s.cancel)
	s.wg.Wait()
}
