// Package metrics defines the sinks used to record negotiation outcomes,
// grid changes and queue depth. Concrete sinks (Prometheus, InfluxDB) live in
// infra/metrics and register themselves with the factory; NewMetricsSink wraps
// several configured sinks in a MultiSink.
package metrics
