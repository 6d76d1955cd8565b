package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"brokerage-portal/internal/config"
	"brokerage-portal/internal/currency"

	"github.com/robfig/cron/v3"
)

// Job names accepted by RunNow
const (
	JobUFRefresh = "uf_refresh"
	JobUFRetry   = "uf_retry"
	JobReindex   = "reindex"
	JobSweep     = "sweep_idle"
)

// RateService is the part of the UF service the jobs drive.
type RateService interface {
	Refresh(ctx context.Context) (float64, error)
	Cache() currency.Cache
}

// Jobs holds what each scheduled task calls. A nil entry disables the job.
type Jobs struct {
	Rates   RateService
	Reindex func(ctx context.Context) (int, error)
	// Sweepers drop idle state and return how many entries were removed.
	Sweepers []func() int
}

// Scheduler runs the periodic maintenance tasks
type Scheduler struct {
	cron      *cron.Cron
	config    config.SchedulerConfig
	jobs      Jobs
	timeout   time.Duration
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a new scheduler. Cron specs are evaluated in loc.
func NewScheduler(cfg config.SchedulerConfig, loc *time.Location, jobs Jobs) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		config:  cfg,
		jobs:    jobs,
		timeout: 10 * time.Minute,
	}
}

// specs returns the cron spec of every enabled job.
func (s *Scheduler) specs() map[string]string {
	specs := map[string]string{}
	if s.jobs.Rates != nil {
		if s.config.UFRefresh != "" {
			specs[JobUFRefresh] = s.config.UFRefresh
		}
		if s.config.UFRetry != "" {
			specs[JobUFRetry] = s.config.UFRetry
		}
	}
	if s.jobs.Reindex != nil && s.config.Reindex != "" {
		specs[JobReindex] = s.config.Reindex
	}
	if len(s.jobs.Sweepers) > 0 && s.config.SweepIdle != "" {
		specs[JobSweep] = s.config.SweepIdle
	}
	return specs
}

// Start registers the enabled jobs and starts the cron loop
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		log.Println("[Scheduler] Disabled in configuration")
		return nil
	}

	specs := s.specs()
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		name := name
		if _, err := s.cron.AddFunc(specs[name], func() {
			if err := s.RunNow(name); err != nil {
				log.Printf("[Scheduler] %s failed: %v", name, err)
			}
		}); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", name, specs[name], err)
		}
		log.Printf("[Scheduler] %s scheduled (cron: %s)", name, specs[name])
	}

	if s.config.WarmOnStart && s.jobs.Rates != nil {
		go func() {
			if err := s.RunNow(JobUFRefresh); err != nil {
				log.Printf("[Scheduler] warm-up failed: %v", err)
			}
		}()
	}

	s.cron.Start()
	s.mu.Lock()
	s.isRunning = true
	s.mu.Unlock()
	log.Printf("[Scheduler] Started with %d jobs", len(names))
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		<-s.cron.Stop().Done()
		s.isRunning = false
		log.Println("[Scheduler] Stopped")
	}
}

// RunNow executes one job immediately (for manual trigger)
func (s *Scheduler) RunNow(name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	switch name {
	case JobUFRefresh:
		return s.refreshUF(ctx)
	case JobUFRetry:
		if s.jobs.Rates == nil {
			return nil
		}
		if _, ok := s.jobs.Rates.Cache().Get(); ok {
			return nil
		}
		log.Println("[Scheduler] UF cache empty, retrying")
		return s.refreshUF(ctx)
	case JobReindex:
		if s.jobs.Reindex == nil {
			return nil
		}
		start := time.Now()
		n, err := s.jobs.Reindex(ctx)
		if err != nil {
			return err
		}
		log.Printf("[Scheduler] Reindexed %d listings in %s", n, time.Since(start).Round(time.Millisecond))
		return nil
	case JobSweep:
		removed := 0
		for _, sweep := range s.jobs.Sweepers {
			removed += sweep()
		}
		if removed > 0 {
			log.Printf("[Scheduler] Swept %d idle entries", removed)
		}
		return nil
	default:
		return fmt.Errorf("unknown job %q", name)
	}
}

func (s *Scheduler) refreshUF(ctx context.Context) error {
	if s.jobs.Rates == nil {
		return nil
	}
	value, err := s.jobs.Rates.Refresh(ctx)
	if err != nil {
		return err
	}
	log.Printf("[Scheduler] UF pre-warmed at %.2f", value)
	return nil
}
