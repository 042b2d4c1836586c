package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/five82/smashtrack/internal/gateway"
	"github.com/five82/smashtrack/internal/history"
	"github.com/five82/smashtrack/internal/state"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 30 * time.Second
)

// HistoryLister fetches one history page.
type HistoryLister interface {
	List(ctx context.Context, q history.Query) (history.Page, error)
}

// StartPoller launches a background goroutine that refreshes the history
// store. Consecutive failures back off exponentially up to maxBackoff. It
// returns immediately.
func StartPoller(ctx context.Context, store *state.HistoryStore, lister HistoryLister, authed func() bool, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		for {
			refresh(ctx, store, lister, authed, logger)
			wait := calculateBackoff(store.Snapshot().ConsecutiveFailures, interval)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

func refresh(ctx context.Context, store *state.HistoryStore, lister HistoryLister, authed func() bool, logger *slog.Logger) error {
	if authed != nil && !authed() {
		store.Reset()
		return nil
	}
	page, err := lister.List(ctx, history.DefaultQuery())
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			store.Reset()
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		store.Update(nil, err)
		logger.Warn("history poll failed", "error", err)
		return err
	}
	store.Update(&page, nil)
	return nil
}

// calculateBackoff doubles base per failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
