package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/chargeflex/core/metrics"
)

// PromSink records negotiation outcomes in Prometheus metrics.
type PromSink struct {
	plans    *prometheus.CounterVec
	points   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	grid     prometheus.Gauge
	depth    prometheus.Gauge
}

// NewPromSink registers the sink collectors on the default Prometheus registerer.
// The Prometheus server is started separately from Config.PrometheusPort.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	plans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chargeflex_plans_total",
		Help: "Committed charging plans by priority, option and grid state",
	}, []string{"priority", "option", "grid_stressed", "fallback"})
	points := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chargeflex_points_awarded_total",
		Help: "Reward points granted to drivers",
	}, []string{"option"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chargeflex_negotiation_seconds",
		Help:    "End-to-end duration of a negotiation",
		Buckets: prometheus.DefBuckets,
	}, []string{"priority"})
	grid := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chargeflex_grid_stressed",
		Help: "1 when the grid is flagged as stressed",
	})
	depth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chargeflex_active_plans",
		Help: "Number of plans in the active request queue",
	})

	var err error
	if plans, err = register(reg, plans); err != nil {
		return nil, err
	}
	if points, err = register(reg, points); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if grid, err = register(reg, grid); err != nil {
		return nil, err
	}
	if depth, err = register(reg, depth); err != nil {
		return nil, err
	}
	return &PromSink{plans: plans, points: points, duration: duration, grid: grid, depth: depth}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordNegotiation increments the plan counters and observes the duration.
func (s *PromSink) RecordNegotiation(rec coremetrics.NegotiationRecord) error {
	s.plans.WithLabelValues(rec.Priority.String(), rec.Option.String(),
		strconv.FormatBool(rec.GridStressed), strconv.FormatBool(rec.Fallback)).Inc()
	if rec.Points > 0 {
		s.points.WithLabelValues(rec.Option.String()).Add(float64(rec.Points))
	}
	s.duration.WithLabelValues(rec.Priority.String()).Observe(rec.Duration.Seconds())
	return nil
}

// RecordGridState sets the grid gauge.
func (s *PromSink) RecordGridState(ev coremetrics.GridStateEvent) error {
	if ev.Stressed {
		s.grid.Set(1)
	} else {
		s.grid.Set(0)
	}
	return nil
}

// RecordQueueDepth sets the active plans gauge.
func (s *PromSink) RecordQueueDepth(depth int) error {
	s.depth.Set(float64(depth))
	return nil
}
