// Package negotiation runs one charging negotiation end to end: it reads the
// grid flag and recent history, evaluates the policy engine and commits the
// resulting plan to the active-request queue. A negotiation either commits a
// complete plan or fails without touching the queue.
package negotiation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/chargeflex/core/credential"
	"github.com/kilianp07/chargeflex/core/events"
	"github.com/kilianp07/chargeflex/core/grid"
	"github.com/kilianp07/chargeflex/core/intent"
	"github.com/kilianp07/chargeflex/core/logger"
	"github.com/kilianp07/chargeflex/core/metrics"
	"github.com/kilianp07/chargeflex/core/model"
	"github.com/kilianp07/chargeflex/core/monitoring"
	"github.com/kilianp07/chargeflex/core/planlog"
	"github.com/kilianp07/chargeflex/core/policy"
	"github.com/kilianp07/chargeflex/core/queue"
	"github.com/kilianp07/chargeflex/internal/eventbus"
)

// Observer is notified after the queue changed. Errors are logged and never
// undo the change.
type Observer interface {
	OnPlanCommitted(ctx context.Context, plan model.ChargingPlan) error
	OnPlanReleased(ctx context.Context, userID string) error
}

// Request is a free-text negotiation request.
type Request struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
	// StartSoCHint is a state of charge already known from the vehicle.
	StartSoCHint *int `json:"start_soc,omitempty"`
}

// NudgeResult describes a released plan.
type NudgeResult struct {
	UserID        string             `json:"user_id"`
	PointsAwarded int                `json:"points_awarded"`
	Plan          model.ChargingPlan `json:"plan"`
}

// Negotiator orchestrates negotiations against a shared grid flag and queue.
// It is safe for concurrent use.
type Negotiator struct {
	cfg       Config
	grid      *grid.Context
	queue     *queue.Queue
	engine    policy.Engine
	extractor intent.Extractor
	issuer    credential.Issuer
	store     planlog.Store
	sink      metrics.MetricsSink
	bus       *eventbus.TypedBus[events.Event]
	observers []Observer
	log       logger.Logger
	now       func() time.Time
}

// Option customises a Negotiator.
type Option func(*Negotiator)

// WithExtractor sets the intent extraction collaborator.
func WithExtractor(e intent.Extractor) Option { return func(n *Negotiator) { n.extractor = e } }

// WithIssuer sets the credential collaborator.
func WithIssuer(i credential.Issuer) Option { return func(n *Negotiator) { n.issuer = i } }

// WithLogStore sets the audit store.
func WithLogStore(s planlog.Store) Option { return func(n *Negotiator) { n.store = s } }

// WithMetrics sets the metrics sink.
func WithMetrics(s metrics.MetricsSink) Option { return func(n *Negotiator) { n.sink = s } }

// WithBus sets the bus receiving plan and grid events.
func WithBus(b *eventbus.TypedBus[events.Event]) Option { return func(n *Negotiator) { n.bus = b } }

// WithObservers appends post-commit observers.
func WithObservers(o ...Observer) Option {
	return func(n *Negotiator) { n.observers = append(n.observers, o...) }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(n *Negotiator) { n.log = l } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(n *Negotiator) { n.now = now } }

// NewNegotiator wires a Negotiator. The grid context and queue are required.
func NewNegotiator(g *grid.Context, q *queue.Queue, engine policy.Engine, cfg Config, opts ...Option) (*Negotiator, error) {
	if g == nil || q == nil {
		return nil, fmt.Errorf("negotiation: nil grid context or queue")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("negotiation: %w", err)
	}
	n := &Negotiator{
		cfg:    cfg,
		grid:   g,
		queue:  q,
		engine: engine,
		issuer: credential.NopIssuer{},
		store:  planlog.NopStore{},
		sink:   metrics.NopSink{},
		log:    logger.NopLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.log = logger.OrNop(n.log)
	if n.engine.Config().FastRatePerMinute == 0 {
		n.engine = policy.NewEngine(n.engine.Config())
	}
	return n, nil
}

// Negotiate evaluates the policy for userID and commits the plan to the
// queue. On error the queue is unchanged and the error matches ErrNegotiation.
// ctx only bounds calls to collaborators; a cancelled ctx does not abort the
// negotiation.
func (n *Negotiator) Negotiate(ctx context.Context, userID string, sig model.IntentSignals) (model.ChargingPlan, error) {
	began := time.Now()
	id := uuid.NewString()

	plan, recent, err := n.prepare(ctx, userID, sig)
	if err != nil {
		return model.ChargingPlan{}, n.fail(userID, id, err)
	}

	replaced := n.queue.Upsert(plan)

	n.afterCommit(ctx, id, plan, recent, replaced, time.Since(began))
	return plan, nil
}

// prepare runs every step before the commit. It has no side effect on the
// queue; a panic in a collaborator is returned as an error.
func (n *Negotiator) prepare(ctx context.Context, userID string, sig model.IntentSignals) (plan model.ChargingPlan, recent []model.ChargingPlan, err error) {
	defer func() {
		if r := recover(); r != nil {
			plan, recent, err = model.ChargingPlan{}, nil, fmt.Errorf("panic: %v", r)
		}
	}()
	if userID == "" {
		return model.ChargingPlan{}, nil, ErrEmptyUserID
	}
	n.checkSignals(userID, sig)
	n.updateCredential(ctx, userID, sig)

	stressed := n.grid.Stressed()
	recent = n.queue.RecentFor(userID, n.cfg.HistoryLimit)
	now := n.now()

	plan = n.engine.Evaluate(policy.Input{Signals: sig, GridStressed: stressed, Now: now, Recent: recent})
	plan.UserID = userID
	plan.OriginalText = sig.RawText
	plan.ReceivedAt = now
	plan.GridStressedAtRequest = stressed

	if err := plan.Validate(); err != nil {
		return model.ChargingPlan{}, nil, fmt.Errorf("plan post-condition: %w", err)
	}
	return plan, recent, nil
}

func (n *Negotiator) checkSignals(userID string, sig model.IntentSignals) {
	check := func(name string, v *int) {
		if v != nil && (*v < 0 || *v > 100) {
			invalidSignals.Inc()
			n.log.Debugw("clamping signal", map[string]any{
				"user_id": userID,
				"error":   fmt.Errorf("%w: %s=%d", ErrInvalidSignal, name, *v).Error(),
			})
		}
	}
	check("start_soc", sig.StartSoC)
	check("min_soc", sig.MinSoC)
}

// updateCredential is best effort: failures are logged and counted only.
func (n *Negotiator) updateCredential(ctx context.Context, userID string, sig model.IntentSignals) {
	if n.issuer == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, n.cfg.credentialTimeout())
	defer cancel()
	soc := policy.ResolveStartSoC(sig)
	cred, err := n.issuer.IssueOrUpdate(cctx, userID, soc)
	if err != nil {
		credentialFailures.Inc()
		n.log.Warnf("%v", fmt.Errorf("%w: user %s: %v", ErrCredentialService, userID, err))
		return
	}
	n.log.Debugw("credential recorded", map[string]any{"user_id": userID, "credential_id": cred.ID, "updated": cred.Updated})
}

func (n *Negotiator) fail(userID, id string, cause error) error {
	negotiationsTotal.WithLabelValues("failed").Inc()
	err := &NegotiationError{UserID: userID, Cause: cause}
	n.log.Errorf("negotiation %s: %v", id, err)
	monitoring.CaptureException(err, map[string]string{"user_id": userID, "negotiation_id": id})
	return err
}

// afterCommit fans the committed plan out. Nothing here can undo the commit.
func (n *Negotiator) afterCommit(ctx context.Context, id string, plan model.ChargingPlan, recent []model.ChargingPlan, replaced bool, elapsed time.Duration) {
	negotiationsTotal.WithLabelValues("committed").Inc()
	negotiationLatency.Observe(elapsed.Seconds())
	depth := n.queue.Len()
	n.log.Infow("plan committed", map[string]any{
		"negotiation_id": id,
		"user_id":        plan.UserID,
		"priority":       plan.Priority.String(),
		"option":         plan.ChargingOption.String(),
		"points":         plan.PointsAwarded,
		"pickup":         plan.PickupTime.String(),
		"grid_stressed":  plan.GridStressedAtRequest,
		"replaced":       replaced,
	})

	if n.bus != nil {
		n.bus.Publish(events.Event{Plan: &events.PlanEvent{
			Action:     events.PlanCommitted,
			Plan:       plan,
			Replaced:   replaced,
			QueueDepth: depth,
			Time:       plan.ReceivedAt,
		}})
	}

	// observers and the audit log outlive a cancelled request
	octx := context.WithoutCancel(ctx)
	for _, o := range n.observers {
		if err := o.OnPlanCommitted(octx, plan); err != nil {
			observerFailures.WithLabelValues("observer").Inc()
			n.log.Warnf("observer for %s: %v", plan.UserID, err)
		}
	}

	rec := planlog.LogRecord{
		Timestamp:     plan.ReceivedAt,
		NegotiationID: id,
		Action:        planlog.ActionCommitted,
		UserID:        plan.UserID,
		Plan:          plan,
		Replaced:      replaced,
		Recent:        summarize(recent),
	}
	if err := n.store.Append(octx, rec); err != nil {
		observerFailures.WithLabelValues("planlog").Inc()
		n.log.Warnf("plan log append for %s: %v", plan.UserID, err)
	}

	if err := n.sink.RecordNegotiation(metrics.NegotiationRecord{
		NegotiationID: id,
		UserID:        plan.UserID,
		Priority:      plan.Priority,
		Option:        plan.ChargingOption,
		Points:        plan.PointsAwarded,
		GridStressed:  plan.GridStressedAtRequest,
		Fallback:      plan.Reasoning == policy.FallbackReasoning,
		Replaced:      replaced,
		Duration:      elapsed,
		Time:          plan.ReceivedAt,
	}); err != nil {
		observerFailures.WithLabelValues("metrics").Inc()
		n.log.Warnf("record negotiation metrics: %v", err)
	}
}

func summarize(plans []model.ChargingPlan) []string {
	if len(plans) == 0 {
		return nil
	}
	out := make([]string, len(plans))
	for i, p := range plans {
		out[i] = fmt.Sprintf("%s->%s(%d)", p.Priority, p.ChargingOption, p.PointsAwarded)
	}
	return out
}

// NegotiateText extracts intent signals from free text and negotiates with
// them. Extraction failures fall back to unknown signals.
func (n *Negotiator) NegotiateText(ctx context.Context, req Request) (model.ChargingPlan, error) {
	sig := n.extract(ctx, req)
	return n.Negotiate(ctx, req.UserID, sig)
}

func (n *Negotiator) extract(ctx context.Context, req Request) model.IntentSignals {
	sig := model.UnknownSignals(req.Text)
	if n.extractor != nil {
		ectx, cancel := context.WithTimeout(ctx, n.cfg.extractionTimeout())
		defer cancel()
		got, err := n.extractor.Extract(ectx, req.Text, req.StartSoCHint)
		if err != nil {
			extractionFailures.Inc()
			n.log.Warnf("%v", fmt.Errorf("%w: user %s: %v", ErrExtractionUnavailable, req.UserID, err))
		} else {
			sig = got
			sig.RawText = req.Text
		}
	}
	if sig.StartSoC == nil && !sig.Exhausted && req.StartSoCHint != nil {
		sig.StartSoC = model.IntPtr(*req.StartSoCHint)
	}
	return sig
}

// Snapshot returns the active plans ordered for dispatch.
func (n *Negotiator) Snapshot() []model.ChargingPlan {
	return n.queue.Snapshot()
}

// GridStressed reports the current grid flag.
func (n *Negotiator) GridStressed() bool {
	return n.grid.Stressed()
}

// SetGridStressed sets the grid flag and returns its previous value.
// Negotiations already past their grid read keep the value they saw.
func (n *Negotiator) SetGridStressed(stressed bool) bool {
	prev := n.grid.SetStressed(stressed)
	n.log.Infof("grid set to %s (was stressed=%t)", n.grid.Status(), prev)
	if n.bus != nil {
		n.bus.Publish(events.Event{Grid: &events.GridEvent{Stressed: stressed, Previous: prev, Time: n.now()}})
	}
	return prev
}

// Nudge releases the user's plan and grants the nudge bonus.
func (n *Negotiator) Nudge(ctx context.Context, userID string) (NudgeResult, error) {
	plan, ok := n.queue.Remove(userID)
	if !ok {
		return NudgeResult{}, fmt.Errorf("%w for %q", ErrNoActivePlan, userID)
	}
	nudgesTotal.Inc()
	res := NudgeResult{UserID: userID, PointsAwarded: n.cfg.NudgePoints, Plan: plan}
	n.log.Infow("plan released", map[string]any{"user_id": userID, "points": res.PointsAwarded})

	now := n.now()
	if n.bus != nil {
		n.bus.Publish(events.Event{Plan: &events.PlanEvent{
			Action:     events.PlanReleased,
			Plan:       plan,
			QueueDepth: n.queue.Len(),
			Time:       now,
		}})
	}
	octx := context.WithoutCancel(ctx)
	for _, o := range n.observers {
		if err := o.OnPlanReleased(octx, userID); err != nil {
			observerFailures.WithLabelValues("observer").Inc()
			n.log.Warnf("observer release for %s: %v", userID, err)
		}
	}
	rec := planlog.LogRecord{Timestamp: now, Action: planlog.ActionReleased, UserID: userID, Plan: plan}
	if err := n.store.Append(octx, rec); err != nil {
		observerFailures.WithLabelValues("planlog").Inc()
		n.log.Warnf("plan log append for %s: %v", userID, err)
	}
	return res, nil
}

// Restore loads previously persisted plans into the queue in the order they
// were received, without notifying observers. Plans failing validation are
// skipped.
func (n *Negotiator) Restore(plans []model.ChargingPlan) (restored, skipped int) {
	ordered := append([]model.ChargingPlan(nil), plans...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ReceivedAt.Before(ordered[j].ReceivedAt) })
	for _, p := range ordered {
		if p.UserID == "" || p.Validate() != nil {
			skipped++
			continue
		}
		n.queue.Upsert(p)
		restored++
	}
	if restored > 0 && n.bus != nil {
		n.bus.Publish(events.Event{Plan: &events.PlanEvent{Action: events.PlanCommitted, QueueDepth: n.queue.Len(), Time: n.now()}})
	}
	return restored, skipped
}
