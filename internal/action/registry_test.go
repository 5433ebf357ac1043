package action

import (
	"sync"
	"testing"
	"time"
)

func TestRegister_AssignsMonotonicIDAndTimestamp(t *testing.T) {
	r := New(100, nil)

	id1, err := r.Register(TypeFileCreated, nil, SourceFileWatcher, nil)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	id2, err := r.Register(TypeFileModified, nil, SourceFileWatcher, nil)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if id2 != id1+1 {
		t.Fatalf("expected strictly increasing ids, got %d then %d", id1, id2)
	}

	all := r.All(0)
	if len(all) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(all))
	}
	if all[0].Timestamp.IsZero() {
		t.Fatal("expected timestamp to be set")
	}
}

func TestRegister_DropsQuarantinedSourceDuringAutomation(t *testing.T) {
	r := New(100, nil)
	r.SetAutomationRunning(true)

	_, err := r.Register(TypeFileCreated, nil, SourceFileWatcher, nil)
	if err != ErrDropped {
		t.Fatalf("expected ErrDropped, got %v", err)
	}

	_, err = r.Register(TypeAppFocus, nil, SourceAppTracker, nil)
	if err != nil {
		t.Fatalf("non-quarantined source should not be dropped: %v", err)
	}
	if len(r.All(0)) != 1 {
		t.Fatalf("expected only the app_tracker action to be admitted, got %d", len(r.All(0)))
	}
}

func TestRegistry_EvictsOldestOverCapacity(t *testing.T) {
	r := New(3, nil)
	for i := 0; i < 4; i++ {
		if _, err := r.Register(TypeFileCreated, map[string]any{"i": i}, SourceFileWatcher, nil); err != nil {
			t.Fatalf("Register returned error: %v", err)
		}
	}

	all := r.All(0)
	if len(all) != 3 {
		t.Fatalf("expected capacity to cap at 3, got %d", len(all))
	}
	// newest-first: the last three registered, i=3,2,1.
	if all[0].Details["i"] != 3 || all[2].Details["i"] != 1 {
		t.Fatalf("unexpected eviction order: %+v", all)
	}
}

func TestRecent_ReturnsOldestFirstWithinWindow(t *testing.T) {
	r := New(100, nil)
	_, _ = r.Register(TypeFileCreated, nil, SourceFileWatcher, nil)
	time.Sleep(5 * time.Millisecond)
	_, _ = r.Register(TypeFileModified, nil, SourceFileWatcher, nil)

	recent := r.Recent(time.Hour)
	if len(recent) != 2 {
		t.Fatalf("expected both actions within the window, got %d", len(recent))
	}
	if recent[0].Type != TypeFileCreated || recent[1].Type != TypeFileModified {
		t.Fatalf("expected oldest-first order, got %+v", recent)
	}

	none := r.Recent(0)
	if len(none) != 0 {
		t.Fatalf("expected a zero window to exclude everything, got %d", len(none))
	}
}

func TestAll_RespectsLimit(t *testing.T) {
	r := New(100, nil)
	for i := 0; i < 10; i++ {
		_, _ = r.Register(TypeFileCreated, nil, SourceFileWatcher, nil)
	}
	limited := r.All(4)
	if len(limited) != 4 {
		t.Fatalf("expected limit to cap results at 4, got %d", len(limited))
	}
}

func TestStats_CountsByTypeAndSource(t *testing.T) {
	r := New(100, nil)
	_, _ = r.Register(TypeFileCreated, nil, SourceFileWatcher, nil)
	_, _ = r.Register(TypeFileCreated, nil, SourceFileWatcher, nil)
	_, _ = r.Register(TypeAppFocus, nil, SourceAppTracker, nil)

	stats := r.Stats()
	if stats.Total != 3 {
		t.Fatalf("expected total 3, got %d", stats.Total)
	}
	if stats.ByType[TypeFileCreated] != 2 {
		t.Fatalf("expected 2 file_created, got %d", stats.ByType[TypeFileCreated])
	}
	if stats.BySource[SourceAppTracker] != 1 {
		t.Fatalf("expected 1 app_tracker, got %d", stats.BySource[SourceAppTracker])
	}
}

func TestRegister_ConcurrentSafety(t *testing.T) {
	r := New(1000, nil)
	const goroutines = 20
	const perGoroutine = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				_, _ = r.Register(TypeFileModified, nil, SourceFileWatcher, nil)
			}
		}()
	}
	wg.Wait()

	stats := r.Stats()
	if stats.Total != goroutines*perGoroutine {
		t.Fatalf("expected %d actions, got %d", goroutines*perGoroutine, stats.Total)
	}
}
