package engine

import (
	"context"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	"github.com/wireline-net/wireline/internal/store"
)

const defaultSweepInterval = 10 * time.Minute

// Janitor sweeps expired preview records in the background. Commits already
// fail closed on expired records; the janitor just keeps the table from
// growing without bound.
type Janitor struct {
	store    store.Store
	interval time.Duration
	log      *zap.SugaredLogger
}

func NewJanitor(s store.Store) *Janitor {
	return &Janitor{
		store:    s,
		interval: defaultSweepInterval,
		log:      zap.S().Named("janitor"),
	}
}

// Run blocks until ctx is done. The tick is jittered so replicas sharing a
// database do not sweep in lockstep.
func (j *Janitor) Run(ctx context.Context) {
	ticker := jitterbug.New(j.interval, &jitterbug.Norm{Stdev: 30 * time.Second, Mean: 0})
	defer ticker.Stop()

	j.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	swept, err := j.store.Preview().DeleteExpired(ctx, time.Now())
	if err != nil {
		j.log.Errorw("failed to sweep expired preview records", "error", err)
		return
	}
	if swept > 0 {
		j.log.Infow("swept expired preview records", "count", swept)
	}
}
