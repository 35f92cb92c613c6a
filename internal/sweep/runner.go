package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/forPelevin/gifcut/internal/types"
)

// Runner sweeps a fixed set of policies in the background, on an interval and
// whenever Trigger is called.
type Runner struct {
	policies []types.RetentionPolicy
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	trigger chan struct{}
	done    chan struct{}
}

func NewRunner(policies []types.RetentionPolicy, interval time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		policies: policies,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		trigger:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Trigger requests a sweep without waiting for it. Requests made while one is
// already pending are coalesced.
func (r *Runner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run sweeps once at start, then on every tick or trigger until ctx ends.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.done)

	var tick <-chan time.Time
	if r.interval > 0 {
		t := time.NewTicker(r.interval)
		defer t.Stop()
		tick = t.C
	}

	r.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			r.sweep(ctx)
		case <-r.trigger:
			r.sweep(ctx)
		}
	}
}

// Done is closed when Run returns.
func (r *Runner) Done() <-chan struct{} { return r.done }

func (r *Runner) sweep(ctx context.Context) {
	removed := 0
	for _, res := range All(ctx, r.policies, r.now(), r.logger) {
		removed += len(res.Removed)
	}
	if removed > 0 {
		r.logger.Info("retention sweep", "removed", removed)
	}
}
