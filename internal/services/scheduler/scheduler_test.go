package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bgunnison/folio/internal/common"
	"github.com/bgunnison/folio/internal/models"
)

// blockingRefresher counts cycles and can hold a cycle open until released.
type blockingRefresher struct {
	calls   atomic.Int64
	release chan struct{} // nil means return immediately
	started chan struct{} // closed-equivalent signal per call when non-nil
	err     error
}

func (b *blockingRefresher) Refresh(ctx context.Context) (*models.RefreshResult, error) {
	b.calls.Add(1)
	if b.started != nil {
		b.started <- struct{}{}
	}
	if b.release != nil {
		<-b.release
	}
	if b.err != nil {
		return &models.RefreshResult{Failed: 1}, b.err
	}
	return &models.RefreshResult{Succeeded: 1}, nil
}

func waitForEvent(t *testing.T, events <-chan Event, want EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

func TestTriggerManualRunsCycle(t *testing.T) {
	r := &blockingRefresher{}
	s := NewScheduler(r, time.Hour, common.NewSilentLogger())

	if ok := s.TriggerManual(context.Background()); !ok {
		t.Fatal("manual trigger should run when idle")
	}
	if r.calls.Load() != 1 {
		t.Errorf("expected 1 refresh, got %d", r.calls.Load())
	}

	started := waitForEvent(t, s.Events(), EventStarted)
	if started.CycleID == "" {
		t.Errorf("started event missing cycle ID")
	}
	completed := waitForEvent(t, s.Events(), EventCompleted)
	if completed.CycleID != started.CycleID {
		t.Errorf("completed cycle ID %q != started %q", completed.CycleID, started.CycleID)
	}
	if completed.Trigger != models.TriggerManual {
		t.Errorf("trigger = %s, want manual", completed.Trigger)
	}
	if completed.Result == nil || completed.Result.Succeeded != 1 {
		t.Errorf("completed event missing result")
	}
}

func TestTriggerManualDroppedWhileCycleInFlight(t *testing.T) {
	r := &blockingRefresher{
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := NewScheduler(r, time.Hour, common.NewSilentLogger())

	go s.TriggerManual(context.Background())
	<-r.started

	// Second trigger while the first holds the cycle lock.
	if ok := s.TriggerManual(context.Background()); ok {
		t.Error("trigger during in-flight cycle should be dropped")
	}
	ev := waitForEvent(t, s.Events(), EventSkipped)
	if ev.Trigger != models.TriggerManual {
		t.Errorf("skipped event trigger = %s", ev.Trigger)
	}

	close(r.release)
	waitForEvent(t, s.Events(), EventCompleted)

	if r.calls.Load() != 1 {
		t.Errorf("dropped trigger must not run a second cycle, got %d", r.calls.Load())
	}
}

func TestPeriodicRefreshFires(t *testing.T) {
	r := &blockingRefresher{}
	s := NewScheduler(r, 20*time.Millisecond, common.NewSilentLogger())

	s.Start(context.Background())
	defer s.Stop()

	ev := waitForEvent(t, s.Events(), EventCompleted)
	if ev.Trigger != models.TriggerPeriodic {
		t.Errorf("trigger = %s, want periodic", ev.Trigger)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	r := &blockingRefresher{}
	s := NewScheduler(r, time.Hour, common.NewSilentLogger())

	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()
}

func TestStopWaitsForInFlightCycle(t *testing.T) {
	r := &blockingRefresher{
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := NewScheduler(r, 10*time.Millisecond, common.NewSilentLogger())
	s.Start(context.Background())

	<-r.started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a cycle was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(r.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after cycle completed")
	}
}

func TestFailedCycleEmitsFailedEvent(t *testing.T) {
	r := &blockingRefresher{err: models.ErrRefreshFailed}
	s := NewScheduler(r, time.Hour, common.NewSilentLogger())

	if ok := s.TriggerManual(context.Background()); !ok {
		t.Fatal("manual trigger should run when idle")
	}
	ev := waitForEvent(t, s.Events(), EventFailed)
	if ev.Err == nil {
		t.Errorf("failed event should carry the error")
	}
}
