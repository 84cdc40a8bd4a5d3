package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"sumup/internal/logging"
)

// Job interface that all scheduled jobs must implement
type Job interface {
	Run(ctx context.Context) error
	// Schedule describes when the job runs
	Schedule() gocron.JobDefinition
}

// FatalFunc is called when a critical job fails
type FatalFunc func(name string, err error)

type registeredJob struct {
	job      Job
	critical bool
	handle   gocron.Job
}

// JobScheduler manages and runs scheduled jobs
type JobScheduler struct {
	scheduler gocron.Scheduler
	jobs      map[string]*registeredJob
	fatal     FatalFunc
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	running   bool
}

// NewJobScheduler creates a new job scheduler. Failures of critical jobs
// terminate the process unless SetFatalHandler replaces that behaviour.
func NewJobScheduler() (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &JobScheduler{
		scheduler: scheduler,
		jobs:      make(map[string]*registeredJob),
		fatal: func(name string, err error) {
			log.Fatalf("❌ [SCHEDULER] Critical job '%s' failed, shutting down: %v", name, err)
		},
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// SetFatalHandler replaces the handler for critical job failures
func (s *JobScheduler) SetFatalHandler(fn FatalFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fatal = fn
}

// Register adds a job whose failures are logged and otherwise ignored
func (s *JobScheduler) Register(name string, job Job) error {
	return s.register(name, job, false)
}

// RegisterCritical adds a job whose failure is fatal
func (s *JobScheduler) RegisterCritical(name string, job Job) error {
	return s.register(name, job, true)
}

func (s *JobScheduler) register(name string, job Job, critical bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	handle, err := s.scheduler.NewJob(
		job.Schedule(),
		gocron.NewTask(func() {
			_ = s.runJob(name)
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = &registeredJob{job: job, critical: critical, handle: handle}
	log.Printf("✅ [SCHEDULER] Registered job: %s (critical: %v)", name, critical)
	return nil
}

// Start begins running all registered jobs
func (s *JobScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.running = true
	s.scheduler.Start()
	log.Printf("🚀 [SCHEDULER] Starting job scheduler with %d jobs", len(s.jobs))
}

// runJob executes a job and applies the failure policy
func (s *JobScheduler) runJob(name string) error {
	s.mu.Lock()
	entry, exists := s.jobs[name]
	fatal := s.fatal
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	logger := logging.WithJob(name)
	logger.Debug("job_started", "critical", entry.critical)
	startTime := time.Now()

	if err := entry.job.Run(s.ctx); err != nil {
		logger.Error("job_failed",
			"critical", entry.critical,
			"error", err,
			"duration_ms", time.Since(startTime).Milliseconds())
		if entry.critical && s.ctx.Err() == nil {
			fatal(name, err)
		}
		return err
	}

	logger.Info("job_completed", "duration_ms", time.Since(startTime).Milliseconds())
	return nil
}

// Stop gracefully stops all jobs
func (s *JobScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.cancel()
		return
	}
	s.running = false
	s.mu.Unlock()

	log.Println("🛑 [SCHEDULER] Stopping job scheduler...")

	// Cancel first so in-flight runs abort instead of triggering fatal
	s.cancel()
	if err := s.scheduler.Shutdown(); err != nil {
		log.Printf("⚠️  [SCHEDULER] Shutdown error: %v", err)
	}

	log.Println("✅ [SCHEDULER] Job scheduler stopped")
}

// RunNow immediately runs a specific job with the same failure policy as a
// scheduled run
func (s *JobScheduler) RunNow(name string) error {
	log.Printf("🚀 [SCHEDULER] Running job '%s' immediately", name)
	return s.runJob(name)
}

// GetStatus returns the status of all jobs
func (s *JobScheduler) GetStatus() map[string]JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := make(map[string]JobStatus)
	for name, entry := range s.jobs {
		js := JobStatus{
			Name:       name,
			Critical:   entry.critical,
			Registered: true,
		}
		if next, err := entry.handle.NextRun(); err == nil {
			js.NextRunTime = next
		}
		status[name] = js
	}

	return status
}

// JobStatus represents the status of a job
type JobStatus struct {
	Name        string    `json:"name"`
	NextRunTime time.Time `json:"next_run_time"`
	Critical    bool      `json:"critical"`
	Registered  bool      `json:"registered"`
}
