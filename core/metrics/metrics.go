package metrics

import (
	"time"

	"github.com/kilianp07/chargeflex/core/model"
)

// NegotiationRecord describes one finished negotiation.
type NegotiationRecord struct {
	NegotiationID string
	UserID        string
	Priority      model.Priority
	Option        model.ChargingOption
	Points        int
	GridStressed  bool
	Fallback      bool
	Replaced      bool
	Duration      time.Duration
	Time          time.Time
}

// MetricsSink records negotiation outcomes for observability purposes.
type MetricsSink interface {
	RecordNegotiation(rec NegotiationRecord) error
}

// GridStateEvent captures an operator toggle of the grid flag.
type GridStateEvent struct {
	Stressed bool
	Time     time.Time
}

// GridStateRecorder records grid toggles.
type GridStateRecorder interface {
	RecordGridState(ev GridStateEvent) error
}

// QueueDepthRecorder records the number of active plans.
type QueueDepthRecorder interface {
	RecordQueueDepth(depth int) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordNegotiation(NegotiationRecord) error { return nil }
func (NopSink) RecordGridState(GridStateEvent) error      { return nil }
func (NopSink) RecordQueueDepth(int) error                { return nil }
