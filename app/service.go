package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/chargeflex/api/charging"
	"github.com/kilianp07/chargeflex/api/planlogs"
	"github.com/kilianp07/chargeflex/api/stream"
	"github.com/kilianp07/chargeflex/config"
	"github.com/kilianp07/chargeflex/core/events"
	"github.com/kilianp07/chargeflex/core/factory"
	"github.com/kilianp07/chargeflex/core/grid"
	coremetrics "github.com/kilianp07/chargeflex/core/metrics"
	coremon "github.com/kilianp07/chargeflex/core/monitoring"
	"github.com/kilianp07/chargeflex/core/negotiation"
	"github.com/kilianp07/chargeflex/core/planlog"
	"github.com/kilianp07/chargeflex/core/policy"
	"github.com/kilianp07/chargeflex/core/queue"
	"github.com/kilianp07/chargeflex/infra/credential"
	"github.com/kilianp07/chargeflex/infra/intent"
	"github.com/kilianp07/chargeflex/infra/logger"
	"github.com/kilianp07/chargeflex/infra/metrics"
	"github.com/kilianp07/chargeflex/infra/monitoring"
	"github.com/kilianp07/chargeflex/infra/mqtt"
	"github.com/kilianp07/chargeflex/infra/redisstore"
	"github.com/kilianp07/chargeflex/internal/eventbus"
)

// Service wires the negotiator to its adapters and the HTTP API.
type Service struct {
	Negotiator *negotiation.Negotiator

	cfg       *config.Config
	bus       *eventbus.TypedBus[events.Event]
	sink      coremetrics.MetricsSink
	store     planlog.Store
	mqtt      mqtt.Client
	publisher *mqtt.PlanPublisher
	redis     *redisstore.Store
	handler   http.Handler
	log       logger.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithMQTTClient uses c instead of dialing the configured broker.
func WithMQTTClient(c mqtt.Client) Option { return func(s *Service) { s.mqtt = c } }

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		return nil, err
	}
	s := &Service{cfg: cfg, bus: eventbus.NewTyped[events.Event](), log: logger.New("service")}
	for _, o := range opts {
		o(s)
	}

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, err
	}
	coremon.Init(mon)

	extractor, err := intent.New(cfg.Intent, logger.New("intent"))
	if err != nil {
		return nil, fmt.Errorf("intent extractor: %w", err)
	}
	issuer, err := credential.New(cfg.Credential, logger.New("credential"))
	if err != nil {
		return nil, fmt.Errorf("credential issuer: %w", err)
	}
	if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks, factory.Deps{Log: logger.New("metrics")}); err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	if s.store, err = planlog.Open(cfg.PlanLog); err != nil {
		return nil, fmt.Errorf("plan log: %w", err)
	}

	var observers []negotiation.Observer
	if s.mqtt == nil && cfg.MQTT.Enabled() {
		if s.mqtt, err = mqtt.NewPahoClient(cfg.MQTT, logger.New("mqtt_client")); err != nil {
			_ = s.store.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
	}
	if s.mqtt != nil {
		s.publisher = mqtt.NewPlanPublisher(s.mqtt, cfg.MQTT.Prefix())
		observers = append(observers, s.publisher)
	}
	if cfg.Redis.Enabled() {
		if s.redis, err = redisstore.Open(cfg.Redis, logger.New("redis")); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		observers = append(observers, s.redis)
	}

	s.Negotiator, err = negotiation.NewNegotiator(
		grid.NewContext(cfg.Grid.Stressed),
		queue.New(),
		policy.NewEngine(cfg.Policy),
		cfg.Negotiation,
		negotiation.WithExtractor(extractor),
		negotiation.WithIssuer(issuer),
		negotiation.WithLogStore(s.store),
		negotiation.WithMetrics(s.sink),
		negotiation.WithBus(s.bus),
		negotiation.WithObservers(observers...),
		negotiation.WithLogger(logger.New("negotiation")),
	)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.restore(); err != nil {
		s.log.Warnf("queue restore: %v", err)
	}

	mux := http.NewServeMux()
	charging.Register(mux, s.Negotiator, cfg.Server.ChargerCount, logger.New("api"))
	mux.Handle("GET /api/plans/logs", planlogs.NewLogHandler(s.store, cfg.PlanLog.Token))
	mux.Handle("GET /api/status/ws", stream.NewHandler(s.Negotiator, s.bus, cfg.Server.ChargerCount, logger.New("stream")))
	s.handler = mux
	return s, nil
}

func (s *Service) restore() error {
	if s.redis == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	plans, err := s.redis.Load(ctx)
	if err != nil {
		return err
	}
	restored, skipped := s.Negotiator.Restore(plans)
	s.log.Infof("restored %d plans (%d skipped)", restored, skipped)
	return nil
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler { return s.handler }

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	collected := metrics.StartEventCollector(ctx, s.bus, s.sink, logger.New("metrics_collector"))
	if s.cfg.Metrics.PrometheusPort != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.mqtt != nil {
		listener := mqtt.NewGridListener(s.mqtt, s.cfg.MQTT.Prefix(), s.Negotiator, logger.New("grid_listener"))
		if err := listener.Start(); err != nil {
			s.log.Errorf("grid listener: %v", err)
		}
		go s.mirrorGrid(ctx)
	}

	srv := &http.Server{Addr: s.cfg.Server.Addr, Handler: s.handler, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("serving API on %s", s.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("api shutdown: %v", err)
	}
	s.bus.Close()
	<-collected
	return runErr
}

// mirrorGrid publishes the retained grid state after every toggle.
func (s *Service) mirrorGrid(ctx context.Context) {
	if err := s.publisher.PublishGridState(s.Negotiator.GridStressed()); err != nil {
		s.log.Warnf("grid state publish: %v", err)
	}
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if ev.Grid == nil {
				continue
			}
			if err := s.publisher.PublishGridState(ev.Grid.Stressed); err != nil {
				s.log.Warnf("grid state publish: %v", err)
			}
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
