package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/smartcity/flowsense/internal/domain"
	"github.com/smartcity/flowsense/internal/timeutil"
)

// RetentionJob periodically deletes phase events older than maxAge
type RetentionJob struct {
	pruner domain.EventPruner
	maxAge time.Duration
	clock  timeutil.Clock
	cron   *cron.Cron
}

// NewRetentionJob creates a retention job for pruner
func NewRetentionJob(pruner domain.EventPruner, maxAge time.Duration, clock timeutil.Clock) *RetentionJob {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &RetentionJob{
		pruner: pruner,
		maxAge: maxAge,
		clock:  clock,
		cron:   cron.New(),
	}
}

// Start schedules the job using a cron expression such as "@hourly"
func (j *RetentionJob) Start(schedule string) error {
	_, err := j.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := j.RunOnce(ctx); err != nil {
			log.Printf("retention: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("retention: error scheduling job: %w", err)
	}

	j.cron.Start()
	log.Printf("retention: pruning events older than %v on %q", j.maxAge, schedule)
	return nil
}

// Stop unschedules the job and waits for a running prune to finish
func (j *RetentionJob) Stop() {
	<-j.cron.Stop().Done()
}

// RunOnce prunes events older than maxAge right now
func (j *RetentionJob) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.clock.Now().Add(-j.maxAge)
	n, err := j.pruner.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune events before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		log.Printf("retention: pruned %d events before %s", n, cutoff.Format(time.RFC3339))
	}
	return n, nil
}
