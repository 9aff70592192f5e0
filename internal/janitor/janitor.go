// Package janitor removes magic links that outlived their retention
// window. Redeemed and expired links are kept as an audit trail until
// the configured retention elapses; with retention zero the janitor is
// never started and links live forever.
package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/emberhollow/auth-service/internal/metrics"
	"github.com/robfig/cron/v3"
)

type linkPurger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

type Janitor struct {
	links     linkPurger
	retention time.Duration
	logger    *slog.Logger
	cron      *cron.Cron
}

func New(links linkPurger, retention time.Duration, logger *slog.Logger) *Janitor {
	return &Janitor{
		links:     links,
		retention: retention,
		logger:    logger.With("component", "janitor"),
	}
}

// Start schedules an hourly sweep. No-op if retention is zero.
func (j *Janitor) Start() error {
	if j.retention <= 0 {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := j.Sweep(ctx); err != nil {
			j.logger.Error("magic link sweep", "error", err)
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	j.cron = c
	j.logger.Info("janitor started", "retention", j.retention.String())
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}

// Sweep deletes links whose expiry is older than the retention cutoff.
func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-j.retention)
	n, err := j.links.PurgeExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.LinksPurgedTotal.Add(float64(n))
		j.logger.Info("purged magic links", "count", n, "cutoff", cutoff)
	}
	return n, nil
}
