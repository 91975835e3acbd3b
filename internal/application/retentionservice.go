package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/evanrhall/driftnote/internal/domain/port/driven"
)

// RetentionService periodically deletes notes that have aged out of the feed
// window and whose author has no archive opt-in. Archived users keep their
// notes forever; everyone else's fade for real.
type RetentionService struct {
	noteStore  driven.NoteStore
	feedWindow time.Duration
	interval   time.Duration
}

// NewRetentionService creates a RetentionService sweeping on the given
// interval.
func NewRetentionService(noteStore driven.NoteStore, feedWindow, interval time.Duration) *RetentionService {
	return &RetentionService{
		noteStore:  noteStore,
		feedWindow: feedWindow,
		interval:   interval,
	}
}

// Start begins the sweep loop. It runs an immediate sweep, then sweeps on
// the configured interval. Start blocks until the context is canceled.
func (s *RetentionService) Start(ctx context.Context) {
	if err := s.Sweep(ctx); err != nil {
		slog.Error("initial retention sweep failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention service stopped")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				slog.Error("retention sweep failed", "error", err)
			}
		}
	}
}

// Sweep deletes expired notes once and logs the cycle summary.
func (s *RetentionService) Sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.feedWindow)

	removed, err := s.noteStore.DeleteExpired(ctx, cutoff)
	if err != nil {
		return err
	}

	if removed > 0 {
		slog.Info("retention sweep complete", "removed", removed, "cutoff", cutoff)
	}

	return nil
}
