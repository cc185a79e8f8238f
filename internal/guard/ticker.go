package guard

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/user/vpn-guard/internal/logger"
)

// Ticker pushes a tick event on a fixed interval so that a pending
// connect_when_safe is re-checked even when no notification arrives.
type Ticker struct {
	scheduler gocron.Scheduler
	interval  time.Duration
}

// NewTicker schedules ticks into q every interval. Call Start to begin.
func NewTicker(q Pusher, interval time.Duration) (*Ticker, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("tick interval must be positive, got %s", interval)
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { q.Push(EventTick) }),
		gocron.WithName("guard-tick"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		s.Shutdown()
		return nil, fmt.Errorf("failed to create tick job: %w", err)
	}

	return &Ticker{scheduler: s, interval: interval}, nil
}

// Start begins pushing ticks.
func (t *Ticker) Start() {
	logger.Info("Tick producer started, interval %s", t.interval)
	t.scheduler.Start()
}

// Stop shuts the scheduler down.
func (t *Ticker) Stop() error {
	return t.scheduler.Shutdown()
}
