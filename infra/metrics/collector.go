package metrics

import (
	"context"

	"github.com/kilianp07/chargeflex/core/events"
	corelogger "github.com/kilianp07/chargeflex/core/logger"
	coremetrics "github.com/kilianp07/chargeflex/core/metrics"
	"github.com/kilianp07/chargeflex/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records grid toggles and
// queue depth on sinks that support them. It stops when the context is
// canceled or the bus is closed. The returned channel is closed on exit.
// Sink failures are logged and do not stop the collector.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[events.Event], sink coremetrics.MetricsSink, log corelogger.Logger) <-chan struct{} {
	log = corelogger.OrNop(log)
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch {
				case ev.Grid != nil:
					if r, ok := sink.(coremetrics.GridStateRecorder); ok {
						if err := r.RecordGridState(coremetrics.GridStateEvent{Stressed: ev.Grid.Stressed, Time: ev.Grid.Time}); err != nil {
							log.Warnf("record grid state: %v", err)
						}
					}
				case ev.Plan != nil:
					if r, ok := sink.(coremetrics.QueueDepthRecorder); ok {
						if err := r.RecordQueueDepth(ev.Plan.QueueDepth); err != nil {
							log.Warnf("record queue depth %d: %v", ev.Plan.QueueDepth, err)
						}
					}
				}
			}
		}
	}()
	return done
}
