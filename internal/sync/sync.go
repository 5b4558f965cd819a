package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Destination is the interface for a sync target (S3, git, etc.).
type Destination interface {
	// Name identifies the destination in logs.
	Name() string
	// Write stores the snapshot at the destination.
	Write(ctx context.Context, snap *Snapshot) error
}

// Scheduler runs periodic syncs to one or more destinations.
type Scheduler struct {
	source       Lister
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger
	now          func() time.Time

	// lastChecksum identifies the most recent export every destination
	// accepted; an export with the same checksum is not re-sent.
	lastChecksum string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports from source to the given
// destinations at the specified interval.
func NewScheduler(source Lister, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		source:       source,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
		now:          time.Now,
	}
}

// Start begins periodic sync. It runs an initial sync immediately, then
// on each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current sync (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.SyncOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncOnce(ctx)
		}
	}
}

// SyncOnce exports and writes to every destination. Destination failures are
// logged and do not stop the others. It must not run concurrently with the
// scheduler loop.
func (s *Scheduler) SyncOnce(ctx context.Context) {
	snap, err := TakeSnapshot(ctx, s.source, s.now())
	if err != nil {
		s.logger.Error("sync export failed", "error", err)
		return
	}
	if snap.Checksum == s.lastChecksum {
		s.logger.Debug("sync skipped, no changes", "checksum", snap.ShortChecksum())
		return
	}

	failed := 0
	for _, dest := range s.destinations {
		if err := dest.Write(ctx, snap); err != nil {
			failed++
			s.logger.Error("sync destination write failed", "destination", dest.Name(), "error", err)
		}
	}
	if failed == 0 {
		s.lastChecksum = snap.Checksum
	}

	s.logger.Info("sync completed",
		"variables", snap.Header.VariableCount,
		"checksum", snap.ShortChecksum(),
		"destinations", len(s.destinations),
		"failed", failed)
}
