package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/varhub/internal/model"
	"github.com/alfredjeanlab/varhub/internal/store/memory"
)

// mockDestination records calls to Write.
type mockDestination struct {
	name   string
	err    error
	writes atomic.Int64
	last   atomic.Pointer[Snapshot]
}

func (d *mockDestination) Name() string { return d.name }

func (d *mockDestination) Write(_ context.Context, snap *Snapshot) error {
	d.writes.Add(1)
	d.last.Store(snap)
	return d.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerStartStop(t *testing.T) {
	ms := seededStore(t, &model.Variable{ID: "id-1", Identifier: "A", Type: model.TypeString, Value: "1"})

	dest := &mockDestination{name: "mock"}
	sched := NewScheduler(ms, []Destination{dest}, 20*time.Millisecond, quietLogger())
	sched.Start()

	// Wait for the initial sync.
	deadline := time.Now().Add(2 * time.Second)
	for dest.writes.Load() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("initial sync never ran")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// A change is picked up on a later tick.
	if err := ms.CreateVariable(context.Background(), &model.Variable{ID: "id-2", Identifier: "B", Type: model.TypeString, Value: "2"}); err != nil {
		t.Fatal(err)
	}
	for dest.writes.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("change was never synced")
		}
		time.Sleep(5 * time.Millisecond)
	}
	sched.Stop()

	snap := dest.last.Load()
	if snap == nil || snap.Header.VariableCount != 2 {
		t.Fatalf("unexpected last snapshot: %+v", snap)
	}
	// 1 header + 2 variables
	if lines := nonEmptyLines(string(snap.Data)); len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	sched := NewScheduler(memory.New(), nil, time.Minute, quietLogger())
	// Stop without Start should not panic.
	sched.Stop()
}

func TestSyncOnce_SkipsUnchanged(t *testing.T) {
	ms := seededStore(t, &model.Variable{ID: "id-1", Identifier: "A", Type: model.TypeString, Value: "1"})
	dest := &mockDestination{name: "mock"}
	sched := NewScheduler(ms, []Destination{dest}, time.Minute, quietLogger())

	tick := exportTime
	sched.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}

	sched.SyncOnce(context.Background())
	sched.SyncOnce(context.Background())
	if got := dest.writes.Load(); got != 1 {
		t.Fatalf("writes = %d, want 1 (second export unchanged)", got)
	}
}

func TestSyncOnce_FailedDestinationRetries(t *testing.T) {
	ms := seededStore(t, &model.Variable{ID: "id-1", Identifier: "A", Type: model.TypeString, Value: "1"})
	bad := &mockDestination{name: "bad", err: errors.New("bucket missing")}
	good := &mockDestination{name: "good"}
	sched := NewScheduler(ms, []Destination{bad, good}, time.Minute, quietLogger())

	sched.SyncOnce(context.Background())
	sched.SyncOnce(context.Background())

	// A failure anywhere means the next run writes again.
	if bad.writes.Load() != 2 || good.writes.Load() != 2 {
		t.Fatalf("writes bad=%d good=%d, want 2/2", bad.writes.Load(), good.writes.Load())
	}
}

func TestSchedulerMultipleDestinations(t *testing.T) {
	dest1 := &mockDestination{name: "one"}
	dest2 := &mockDestination{name: "two"}

	sched := NewScheduler(memory.New(), []Destination{dest1, dest2}, time.Minute, quietLogger())
	sched.SyncOnce(context.Background())

	if dest1.writes.Load() != 1 {
		t.Fatal("dest1 expected 1 write")
	}
	if dest2.writes.Load() != 1 {
		t.Fatal("dest2 expected 1 write")
	}
}

func TestSyncOnce_ValueChangeIsResent(t *testing.T) {
	ms := seededStore(t, &model.Variable{ID: "id-1", Identifier: "A", Type: model.TypeString, Value: "1"})
	dest := &mockDestination{name: "mock"}
	sched := NewScheduler(ms, []Destination{dest}, time.Minute, quietLogger())

	sched.SyncOnce(context.Background())
	first := dest.last.Load()

	v, err := ms.GetVariable(context.Background(), "id-1")
	if err != nil {
		t.Fatal(err)
	}
	v.Value = "2"
	if err := ms.UpdateVariable(context.Background(), v); err != nil {
		t.Fatal(err)
	}
	sched.SyncOnce(context.Background())

	second := dest.last.Load()
	if dest.writes.Load() != 2 || second.Checksum == first.Checksum {
		t.Fatalf("writes = %d, checksums %s/%s", dest.writes.Load(), first.ShortChecksum(), second.ShortChecksum())
	}
}
