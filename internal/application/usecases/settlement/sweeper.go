package settlement

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const sweepLockKey = "tourbook:pending-sweep-lock"

type StaleBookingsRepo interface {
	DeleteStalePending(ctx context.Context, olderThan time.Time) (int64, error)
}

// Sweeper periodically deletes pending bookings older than the retention
// window. A redis lock keeps exactly one instance sweeping at a time so
// deletions do not race across replicas.
type Sweeper struct {
	bookings  StaleBookingsRepo
	rdb       *redis.Client
	interval  time.Duration
	retention time.Duration
	logger    zerolog.Logger
}

func NewSweeper(
	bookings StaleBookingsRepo,
	rdb *redis.Client,
	interval time.Duration,
	retention time.Duration,
	logger zerolog.Logger,
) *Sweeper {
	return &Sweeper{
		bookings:  bookings,
		rdb:       rdb,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	acquired, err := s.rdb.SetNX(ctx, sweepLockKey, "1", s.interval).Result()
	if err != nil {
		s.logger.Err(err).Msg("failed to acquire sweep lock")
		return
	}
	if !acquired {
		return
	}

	cutoff := time.Now().UTC().Add(-s.retention)
	deleted, err := s.bookings.DeleteStalePending(ctx, cutoff)
	if err != nil {
		s.logger.Err(err).Msg("stale pending sweep failed")
		return
	}
	if deleted > 0 {
		s.logger.Info().Int64("deleted", deleted).Msg("swept stale pending bookings")
	}
}
