// Package scheduler drives periodic and manual refresh cycles. Cycles never
// overlap: a manual trigger arriving while a cycle runs is dropped, not
// queued.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bgunnison/folio/internal/common"
	"github.com/bgunnison/folio/internal/models"
)

// EventType identifies a scheduler event.
type EventType string

const (
	EventStarted   EventType = "started"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventSkipped   EventType = "skipped"
)

// Event describes one observable scheduler occurrence.
type Event struct {
	Type    EventType
	CycleID string
	Trigger models.RefreshTrigger
	Result  *models.RefreshResult
	Err     error
	At      time.Time
}

// Refresher is the slice of the portfolio engine the scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context) (*models.RefreshResult, error)
}

// Scheduler runs refresh cycles on a fixed interval and on demand.
type Scheduler struct {
	refresher Refresher
	interval  time.Duration
	logger    *common.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// cycleMu is held for the duration of a refresh cycle. TryLock failing
	// means a cycle is in flight and the trigger is dropped.
	cycleMu sync.Mutex

	events chan Event
}

// NewScheduler creates a scheduler. Start must be called to begin periodic
// refreshes; TriggerManual works whether or not the scheduler is started.
func NewScheduler(refresher Refresher, interval time.Duration, logger *common.Logger) *Scheduler {
	return &Scheduler{
		refresher: refresher,
		interval:  interval,
		logger:    logger,
		events:    make(chan Event, 64),
	}
}

// Events returns the event stream. Events are dropped, never blocked on,
// when the channel is full.
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

func (s *Scheduler) emit(ev Event) {
	ev.At = time.Now()
	select {
	case s.events <- ev:
	default:
		s.logger.Warn().Str("type", string(ev.Type)).Msg("Event channel full, dropping event")
	}
}

// Start launches the periodic refresh loop. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Debug().Msg("Scheduler already running")
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.run(loopCtx)

	s.logger.Info().Dur("interval", s.interval).Msg("Refresh scheduler started")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Refresh scheduler stopped")
			return
		case <-ticker.C:
			// The cycle gets its own context so a Stop during a tick lets the
			// in-flight refresh run to completion.
			s.runCycle(context.Background(), models.TriggerPeriodic)
		}
	}
}

// TriggerManual requests an immediate refresh. If a cycle is already in
// flight the request is dropped and false is returned; the running cycle's
// result stands for this request too.
func (s *Scheduler) TriggerManual(ctx context.Context) bool {
	return s.runCycle(ctx, models.TriggerManual)
}

// runCycle executes one refresh unless another cycle holds the lock.
func (s *Scheduler) runCycle(ctx context.Context, trigger models.RefreshTrigger) bool {
	if !s.cycleMu.TryLock() {
		s.logger.Info().Str("trigger", string(trigger)).Msg("Refresh already in flight, dropping trigger")
		s.emit(Event{Type: EventSkipped, Trigger: trigger})
		return false
	}
	defer s.cycleMu.Unlock()

	cycleID := uuid.New().String()
	s.emit(Event{Type: EventStarted, CycleID: cycleID, Trigger: trigger})

	start := time.Now()
	result, err := s.refresher.Refresh(ctx)
	if result != nil {
		result.CycleID = cycleID
		result.Trigger = trigger
	}

	if err != nil {
		s.logger.Warn().Err(err).Str("cycle_id", cycleID).Str("trigger", string(trigger)).Msg("Refresh cycle failed")
		s.emit(Event{Type: EventFailed, CycleID: cycleID, Trigger: trigger, Result: result, Err: err})
		return true
	}

	s.logger.Info().
		Str("cycle_id", cycleID).
		Str("trigger", string(trigger)).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("Refresh cycle complete")
	s.emit(Event{Type: EventCompleted, CycleID: cycleID, Trigger: trigger, Result: result})
	return true
}

// Stop halts the periodic loop. An in-flight cycle runs to completion; Stop
// returns after the loop goroutine exits.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()

	// Let an in-flight cycle finish before reporting stopped.
	s.cycleMu.Lock()
	s.cycleMu.Unlock()
}
