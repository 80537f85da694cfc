package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kilianp07/chargeflex/core/events"
	corelogger "github.com/kilianp07/chargeflex/core/logger"
	coremetrics "github.com/kilianp07/chargeflex/core/metrics"
	"github.com/kilianp07/chargeflex/internal/eventbus"
)

type gridDepthSink struct {
	coremetrics.NopSink
	mu     sync.Mutex
	grid   []bool
	depths []int
}

func (s *gridDepthSink) RecordGridState(ev coremetrics.GridStateEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grid = append(s.grid, ev.Stressed)
	return nil
}

func (s *gridDepthSink) RecordQueueDepth(d int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.depths = append(s.depths, d)
	return nil
}

func (s *gridDepthSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.grid), len(s.depths)
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.NewTyped[events.Event]()
	sink := &gridDepthSink{}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartEventCollector(ctx, bus, sink, nil)

	if bus.Subscribers() != 1 {
		t.Fatalf("collector did not subscribe")
	}

	bus.Publish(events.Event{Grid: &events.GridEvent{Stressed: true}})
	bus.Publish(events.Event{Plan: &events.PlanEvent{Action: events.PlanCommitted, QueueDepth: 3}})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if g, d := sink.counts(); g == 1 && d == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if g, d := sink.counts(); g != 1 || d != 1 {
		t.Fatalf("expected one grid and one depth record, got %d and %d", g, d)
	}
	if !sink.grid[0] || sink.depths[0] != 3 {
		t.Fatalf("unexpected records: %v %v", sink.grid, sink.depths)
	}
}

type failingSink struct {
	coremetrics.NopSink
}

var errInfluxDown = errors.New("influx down")

func (failingSink) RecordGridState(coremetrics.GridStateEvent) error {
	return errInfluxDown
}

func (failingSink) RecordQueueDepth(int) error {
	return errInfluxDown
}

type warnLog struct {
	corelogger.NopLogger
	mu    sync.Mutex
	warns []string
}

func (l *warnLog) Warnf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}

func (l *warnLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

func TestStartEventCollector_LogsSinkErrors(t *testing.T) {
	bus := eventbus.NewTyped[events.Event]()
	log := &warnLog{}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartEventCollector(ctx, bus, failingSink{}, log)

	bus.Publish(events.Event{Grid: &events.GridEvent{Stressed: true}})
	bus.Publish(events.Event{Plan: &events.PlanEvent{Action: events.PlanCommitted, QueueDepth: 2}})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && len(log.snapshot()) < 2 {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	warns := log.snapshot()
	if len(warns) != 2 {
		t.Fatalf("expected two warnings, got %v", warns)
	}
	if warns[0] != "record grid state: influx down" || warns[1] != "record queue depth 2: influx down" {
		t.Fatalf("unexpected warnings: %v", warns)
	}
}
