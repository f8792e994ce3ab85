package generation

import (
	"context"
	"errors"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/kling"
)

// DefaultPollInterval is how long the poller waits between status queries.
const DefaultPollInterval = 5 * time.Second

// StatusClient queries the provider for the current state of a task.
type StatusClient interface {
	TaskStatus(ctx context.Context, taskID string) (*kling.TaskInfo, error)
}

// Poller drives one task to a terminal state by querying its status on a
// fixed interval. Ticks are strictly sequential: a query is never issued
// while the previous one is still in flight.
type Poller struct {
	Client   StatusClient
	Interval time.Duration
	Logger   infra.Logger

	// sleep is replaceable so the state machine is testable without real
	// timers.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPoller(client StatusClient, interval time.Duration, logger infra.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{Client: client, Interval: interval, Logger: logger}
}

// Poll queries the task until it reaches a terminal state or ctx is
// cancelled. Every state change is surfaced through onUpdate (which may be
// nil) before Poll returns the terminal task. The returned task always has
// a terminal state; cancellation yields StateCancelled, never StateFailed.
func (p *Poller) Poll(ctx context.Context, taskID string, onUpdate func(Task)) Task {
	task := Task{ID: taskID, State: StatePending}
	notify := func() {
		if onUpdate != nil {
			onUpdate(task)
		}
	}
	notify()

	sleep := p.sleep
	if sleep == nil {
		sleep = sleepWithContext
	}

	// Not-found from the status endpoint is tolerated until the first
	// successful observation: freshly created tasks can lag the provider's
	// index. After an observation, not-found means the task is gone.
	observed := false

	for {
		if err := sleep(ctx, p.Interval); err != nil {
			task.State = StateCancelled
			notify()
			return task
		}
		info, err := p.Client.TaskStatus(ctx, task.ID)
		if err != nil {
			if ctx.Err() != nil {
				task.State = StateCancelled
				notify()
				return task
			}
			if errors.Is(err, domain.ErrTaskNotFound) && !observed {
				p.Logger.Debug().Str("task_id", task.ID).Msg("generation: task not indexed yet, retrying")
				continue
			}
			task.State = StateFailed
			task.Reason = err.Error()
			notify()
			return task
		}
		observed = true
		task.ProviderStatus = info.Status

		switch {
		case kling.IsTerminalSuccess(info.Status):
			if info.VideoURL == "" {
				task.State = StateFailed
				task.Reason = domain.ErrMissingArtifact.Error()
			} else {
				task.State = StateCompleted
				task.VideoURL = info.VideoURL
			}
			notify()
			return task
		case kling.IsTerminalFailure(info.Status):
			task.State = StateFailed
			task.Reason = info.ErrorMessage
			if task.Reason == "" {
				task.Reason = "provider reported failure"
			}
			notify()
			return task
		default:
			task.State = StateInProgress
			notify()
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
