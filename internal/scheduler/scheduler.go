package scheduler

import (
	"context"
	"time"

	"ltpbot/internal/logger"
)

// Loop runs task, waits Interval, and repeats until ctx is done. Runs never
// overlap and cancellation is observed only between runs.
type Loop struct {
	Interval time.Duration
	Name     string
}

func NewLoop(name string, interval time.Duration) *Loop {
	return &Loop{Name: name, Interval: interval}
}

// Run blocks until ctx is cancelled and returns the number of completed runs.
func (l *Loop) Run(ctx context.Context, task func(context.Context)) int {
	if l == nil || task == nil {
		return 0
	}
	if l.Interval <= 0 {
		logger.Warnf("scheduler %s: invalid interval=%s, exit", l.Name, l.Interval)
		return 0
	}
	logger.Infof("scheduler %s: started interval=%s", l.Name, l.Interval)

	runs := 0
	for {
		if ctx.Err() != nil {
			logger.Infof("scheduler %s: ctx done after %d runs, exit", l.Name, runs)
			return runs
		}
		task(ctx)
		runs++

		if !waitUntil(ctx, l.Interval) {
			logger.Infof("scheduler %s: ctx done after %d runs, exit", l.Name, runs)
			return runs
		}
	}
}

func waitUntil(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
