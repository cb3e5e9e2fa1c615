/*
refresh.go - Periodic tracking refresh

PURPOSE:
  Active tracking sessions have no stored end; their duration grows with
  the clock. The refresher ticks (default every 60s) and dispatches
  RefreshTracking so subscribers re-render running durations.

MODES:
  - Live (Source == nil): no storage reads, only a new state with the same
    records.
  - Review (Source set): re-reads persisted records for the visible range
    and replaces every record without local edits. A record edited after
    the read began counts as edited even if it has since been persisted.

  The refresher never writes to storage.

USAGE:
  r := NewRefresher(cal, logger)
  r.Source = store
  r.Range = func() (DateKey, DateKey) { return from, to }
  r.Start(ctx)
  defer r.Stop()
*/
package calendar

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const DefaultRefreshInterval = 60 * time.Second

type Refresher struct {
	Calendar *Calendar
	Interval time.Duration
	Logger   *slog.Logger

	// Source and Range enable review mode.
	Source TrackingStore
	Range  func() (from, to DateKey)

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRefresher(cal *Calendar, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{Calendar: cal, Interval: DefaultRefreshInterval, Logger: logger}
}

// Start launches the refresh loop. It stops when ctx is cancelled or Stop
// is called. Starting a running refresher is a no-op.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.run(ctx)

	r.Logger.Info("refresher started", "interval", r.Interval, "review", r.Source != nil)
}

// Stop cancels the loop and waits for an in-flight tick to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
	r.cancel = nil
	r.Logger.Info("refresher stopped")
}

func (r *Refresher) run(ctx context.Context) {
	defer r.wg.Done()

	interval := r.Interval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.Tick(ctx); err != nil {
				r.Logger.Warn("tracking refresh failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Tick performs one refresh.
func (r *Refresher) Tick(ctx context.Context) error {
	if r.Source == nil || r.Range == nil {
		_, err := r.Calendar.Dispatch(RefreshTracking{})
		return err
	}

	from, to := r.Range()
	mark := r.Calendar.EditMark()
	records, err := r.Source.TrackingRecords(ctx, from.AddDays(-1), to)
	if err != nil {
		return WrapStorage("refresh tracking", err)
	}
	_, err = r.Calendar.Dispatch(RefreshTracking{Records: records, Reload: true, Since: mark})
	return err
}
