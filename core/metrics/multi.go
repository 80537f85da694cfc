package metrics

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordNegotiation forwards the record to all sinks, returning the first error encountered.
func (m *MultiSink) RecordNegotiation(rec NegotiationRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordNegotiation(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordGridState forwards grid toggles to sinks supporting them.
func (m *MultiSink) RecordGridState(ev GridStateEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(GridStateRecorder); ok {
			if err := rec.RecordGridState(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordQueueDepth forwards queue depth to sinks supporting it.
func (m *MultiSink) RecordQueueDepth(depth int) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(QueueDepthRecorder); ok {
			if err := rec.RecordQueueDepth(depth); err != nil {
				return err
			}
		}
	}
	return nil
}
