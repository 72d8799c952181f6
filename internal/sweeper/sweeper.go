package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/recircular-api/internal/metrics"
	"github.com/robfig/cron/v3"
)

const batchSize = 100

type activationStore interface {
	ClearExpiredActivations(ctx context.Context, before time.Time, limit int) (int, error)
}

type bucketStore interface {
	Sweep(now time.Time) int
}

// Sweeper drops expired activation tokens and idle rate-limit buckets on a
// cron schedule.
type Sweeper struct {
	users    activationStore
	buckets  bucketStore
	schedule cron.Schedule
	spec     string
	logger   *slog.Logger
}

// New parses spec as a standard five-field cron expression.
func New(users activationStore, buckets bucketStore, spec string, logger *slog.Logger) (*Sweeper, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", spec, err)
	}
	return &Sweeper{
		users:    users,
		buckets:  buckets,
		schedule: schedule,
		spec:     spec,
		logger:   logger.With("component", "sweeper"),
	}, nil
}

// Start blocks until ctx is cancelled. Runs missed while a sweep was in
// progress are skipped.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("sweeper started", "schedule", s.spec)

	timer := time.NewTimer(time.Until(s.schedule.Next(time.Now())))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper shut down")
			return
		case now := <-timer.C:
			s.sweep(ctx, now)
			timer.Reset(time.Until(s.schedule.Next(time.Now())))
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context, now time.Time) {
	// Drain expired tokens in batches so one tick never holds a long update.
	for {
		cleared, err := s.users.ClearExpiredActivations(ctx, now, batchSize)
		if err != nil {
			s.logger.ErrorContext(ctx, "clear expired activations", "error", err)
			break
		}
		if cleared > 0 {
			metrics.SweptTotal.WithLabelValues("activation_token").Add(float64(cleared))
			s.logger.InfoContext(ctx, "cleared expired activation tokens", "count", cleared)
		}
		if cleared < batchSize || ctx.Err() != nil {
			break
		}
	}

	if removed := s.buckets.Sweep(now); removed > 0 {
		metrics.SweptTotal.WithLabelValues("rate_limit_bucket").Add(float64(removed))
		s.logger.DebugContext(ctx, "dropped idle rate limit buckets", "count", removed)
	}
}
