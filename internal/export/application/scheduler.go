package application

import (
	"context"
	"log"
	"time"
)

// Scheduler re-runs the full export once a day at a configured time.
type Scheduler struct {
	service *ExportService
	dailyAt string
	logger  *log.Logger
}

// NewScheduler constructs a Scheduler.
func NewScheduler(service *ExportService, dailyAt string, logger *log.Logger) *Scheduler {
	return &Scheduler{
		service: service,
		dailyAt: dailyAt,
		logger:  logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.service == nil {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !s.shouldRun(now.UTC()) {
				continue
			}
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) shouldRun(now time.Time) bool {
	hour, minute, err := parseDailyAt(s.dailyAt)
	if err != nil {
		return false
	}
	return now.Hour() == hour && now.Minute() == minute
}

func (s *Scheduler) runOnce(ctx context.Context) {
	run, err := s.service.RunAll(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Printf("export schedule error: %v", err)
		}
		return
	}
	if s.logger != nil {
		s.logger.Printf("event=export_run_done folders=%d failed=%d duration=%s",
			len(run.Folders), len(run.Failed), run.Duration.Round(time.Second))
	}
}

func parseDailyAt(value string) (int, int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
