package activity

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestTrackThenActive(t *testing.T) {
	tracker := NewMemoryTracker(30 * time.Minute)
	ctx := context.Background()

	if err := tracker.Track(ctx, "u-1"); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	active, err := tracker.IsActive(ctx, "u-1")
	if err != nil {
		t.Fatalf("IsActive failed: %v", err)
	}
	if !active {
		t.Fatal("principal should be active immediately after Track")
	}
}

func TestAbsentRecordMeansInactive(t *testing.T) {
	tracker := NewMemoryTracker(30 * time.Minute)

	active, err := tracker.IsActive(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("IsActive failed: %v", err)
	}
	if active {
		t.Fatal("unseen principal must be inactive")
	}
}

func TestIdleTimeoutExpires(t *testing.T) {
	tracker := NewMemoryTracker(30 * time.Minute)
	ctx := context.Background()

	base := time.Now()
	tracker.now = func() time.Time { return base }
	if err := tracker.Track(ctx, "u-1"); err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	tracker.now = func() time.Time { return base.Add(29 * time.Minute) }
	if active, _ := tracker.IsActive(ctx, "u-1"); !active {
		t.Fatal("still inside idle window")
	}

	tracker.now = func() time.Time { return base.Add(31 * time.Minute) }
	if active, _ := tracker.IsActive(ctx, "u-1"); active {
		t.Fatal("idle timeout elapsed, principal must be inactive")
	}
}

func TestTrackRefreshesWindow(t *testing.T) {
	tracker := NewMemoryTracker(30 * time.Minute)
	ctx := context.Background()

	base := time.Now()
	tracker.now = func() time.Time { return base }
	_ = tracker.Track(ctx, "u-1")

	tracker.now = func() time.Time { return base.Add(25 * time.Minute) }
	_ = tracker.Track(ctx, "u-1")

	tracker.now = func() time.Time { return base.Add(45 * time.Minute) }
	if active, _ := tracker.IsActive(ctx, "u-1"); !active {
		t.Fatal("activity at +25m must keep the session alive at +45m")
	}
}

func TestInvalidate(t *testing.T) {
	tracker := NewMemoryTracker(30 * time.Minute)
	ctx := context.Background()

	_ = tracker.Track(ctx, "u-1")
	if err := tracker.Invalidate(ctx, "u-1"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if active, _ := tracker.IsActive(ctx, "u-1"); active {
		t.Fatal("invalidated principal must be inactive")
	}
}

func TestSweepRemovesStaleRecordsOnly(t *testing.T) {
	tracker := NewMemoryTracker(30 * time.Minute)
	ctx := context.Background()

	base := time.Now()
	tracker.now = func() time.Time { return base }
	_ = tracker.Track(ctx, "stale")

	tracker.now = func() time.Time { return base.Add(20 * time.Minute) }
	_ = tracker.Track(ctx, "fresh")

	tracker.now = func() time.Time { return base.Add(35 * time.Minute) }
	if err := tracker.Sweep(ctx); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if tracker.Len() != 1 {
		t.Fatalf("expected 1 record after sweep, got %d", tracker.Len())
	}
	if active, _ := tracker.IsActive(ctx, "fresh"); !active {
		t.Fatal("fresh record must survive the sweep")
	}
	if active, _ := tracker.IsActive(ctx, "stale"); active {
		t.Fatal("stale record must be gone")
	}
}

func TestConcurrentTrack(t *testing.T) {
	tracker := NewMemoryTracker(30 * time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = tracker.Track(ctx, "u-1")
				_, _ = tracker.IsActive(ctx, "u-1")
			}
		}(i)
	}
	wg.Wait()

	if active, _ := tracker.IsActive(ctx, "u-1"); !active {
		t.Fatal("principal should be active after concurrent tracking")
	}
}
