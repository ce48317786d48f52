package processor

import (
	"context"
	"time"

	"github.com/Jereff77/SPHCFDIs/config"
	"github.com/Jereff77/SPHCFDIs/internal/logger"
)

const errorRetryInterval = 30 * time.Second

// Scheduler runs the processor in a polling loop, backing off when the inbox
// stays quiet and pausing entirely outside the configured business hours.
type Scheduler struct {
	cfg       *config.ProcessorConfig
	schedule  *config.ScheduleConfig
	log       logger.Logger
	processor *Processor
	location  *time.Location
}

func NewScheduler(cfg *config.ProcessorConfig, schedule *config.ScheduleConfig, log logger.Logger, processor *Processor) *Scheduler {
	location, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		log.Warnf("Unknown timezone %s, falling back to UTC: %v", schedule.Timezone, err)
		location = time.UTC
	}
	return &Scheduler{
		cfg:       cfg,
		schedule:  schedule,
		log:       log,
		processor: processor,
		location:  location,
	}
}

// Run polls until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.schedule.Enabled {
		s.log.Infof("Schedule active: %s-%s on days %v (%s)", s.schedule.StartTime, s.schedule.EndTime, s.schedule.Days, s.schedule.Timezone)
	}

	s.processor.EnsureFolders(ctx)

	s.processor.setRunning(true)
	defer s.processor.setRunning(false)

	idleCycles := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !s.withinSchedule(time.Now()) {
			s.log.Debugf("Outside configured schedule, sleeping %ds", s.cfg.PollingIntervalIdle)
			if err := sleepCtx(ctx, time.Duration(s.cfg.PollingIntervalIdle)*time.Second); err != nil {
				return err
			}
			continue
		}

		stats, err := s.processor.ProcessBatch(ctx)

		interval := time.Duration(s.cfg.PollingInterval) * time.Second
		switch {
		case err != nil:
			s.log.Errorf("Processing cycle failed: %v", err)
			interval = errorRetryInterval
		case stats.hadActivity():
			idleCycles = 0
		default:
			idleCycles++
			if idleCycles >= s.cfg.IdleCycleThreshold {
				interval = time.Duration(s.cfg.PollingIntervalIdle) * time.Second
				s.log.Debugf("No activity for %d cycles, extending interval to %s", idleCycles, interval)
			}
		}

		if err := sleepCtx(ctx, interval); err != nil {
			return err
		}
	}
}

// withinSchedule reports whether processing is allowed at the given instant.
// Days use ISO numbering, 1 is Monday and 7 is Sunday; the time window is
// inclusive on both ends.
func (s *Scheduler) withinSchedule(now time.Time) bool {
	if !s.schedule.Enabled {
		return true
	}

	local := now.In(s.location)

	day := int(local.Weekday())
	if day == 0 {
		day = 7
	}

	allowed := false
	for _, d := range s.schedule.Days {
		if d == day {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}

	current := local.Format("15:04")
	return s.schedule.StartTime <= current && current <= s.schedule.EndTime
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
