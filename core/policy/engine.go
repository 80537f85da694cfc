package policy

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kilianp07/chargeflex/core/model"
)

// FallbackReasoning marks plans produced from structurally invalid input.
const FallbackReasoning = "fallback: invalid input"

var errInvalidInput = errors.New("invalid input")

// Input gathers everything the engine needs for one evaluation.
type Input struct {
	Signals      model.IntentSignals
	GridStressed bool
	Now          time.Time
	// Recent holds the latest plans of other drivers, oldest first.
	Recent []model.ChargingPlan
}

// Engine evaluates the charging policy.
type Engine struct {
	cfg Config
}

// NewEngine returns an Engine using cfg completed with defaults.
func NewEngine(cfg Config) Engine {
	cfg.SetDefaults()
	return Engine{cfg: cfg}
}

// Config returns the effective configuration.
func (e Engine) Config() Config { return e.cfg }

// resolved holds the defaulted and clamped inputs.
type resolved struct {
	now      time.Time
	startSoC int
	minSoC   int
	priority model.Priority
	leaveBy  model.TimeOfDay
	leaveAt  time.Time
	notes    []string
}

// Evaluate produces a complete plan. It never fails: structurally invalid
// input yields the fallback plan. UserID, OriginalText, ReceivedAt and
// GridStressedAtRequest are left for the caller to stamp.
func (e Engine) Evaluate(in Input) model.ChargingPlan {
	r, err := e.resolve(in)
	if err != nil {
		return e.fallback(in)
	}
	plan, why := e.synthesize(r, in.GridStressed)
	parts := append(r.notes, why)
	if mem := memoryNote(in.Recent); mem != "" {
		parts = append(parts, mem)
	}
	plan.Reasoning = strings.Join(parts, "; ")
	return plan
}

// ResolveStartSoC applies the start SoC defaulting rules on their own. It is
// used by callers that need the value before the full evaluation.
func ResolveStartSoC(s model.IntentSignals) int {
	v, _ := resolveStartSoC(s)
	return v
}

func resolveStartSoC(s model.IntentSignals) (int, string) {
	switch {
	case s.Exhausted:
		return exhaustedStartSoC, "battery reported empty"
	case s.StartSoC != nil:
		v, clamped := clampSoC(*s.StartSoC)
		if clamped {
			return v, fmt.Sprintf("start_soc %d clamped to %d", *s.StartSoC, v)
		}
		return v, ""
	default:
		return defaultStartSoC, ""
	}
}

func (e Engine) resolve(in Input) (resolved, error) {
	if in.Now.IsZero() {
		return resolved{}, fmt.Errorf("%w: zero time", errInvalidInput)
	}
	r := resolved{now: in.Now.Truncate(time.Minute)}

	var note string
	r.startSoC, note = resolveStartSoC(in.Signals)
	if note != "" {
		r.notes = append(r.notes, note)
	}

	r.priority = model.ParsePriority(in.Signals.PriorityHint)

	if in.Signals.LeaveBy != "" {
		tod, err := model.ParseTimeOfDay(in.Signals.LeaveBy)
		if err != nil {
			return resolved{}, fmt.Errorf("%w: %v", errInvalidInput, err)
		}
		r.leaveBy = tod
		r.leaveAt = tod.NextAfter(r.now)
	} else {
		r.leaveAt = r.now.Add(inferredWindow(r.priority))
		r.leaveBy = model.TimeOfDayFrom(r.leaveAt)
		r.notes = append(r.notes, fmt.Sprintf("leave_by inferred as %s from %s priority", r.leaveBy, r.priority))
	}

	r.minSoC = defaultMinSoC
	if in.Signals.MinSoC != nil {
		v, clamped := clampSoC(*in.Signals.MinSoC)
		if clamped {
			r.notes = append(r.notes, fmt.Sprintf("min_soc %d clamped to %d", *in.Signals.MinSoC, v))
		}
		r.minSoC = v
	}
	return r, nil
}

func inferredWindow(p model.Priority) time.Duration {
	switch p {
	case model.PriorityHigh:
		return 45 * time.Minute
	case model.PriorityLow:
		return 3 * time.Hour
	default:
		return 2 * time.Hour
	}
}

// table is the grid-aware rule table.
func table(stressed bool, p model.Priority) (model.ChargingOption, int) {
	if !stressed {
		return model.OptionFast, stablePoints
	}
	if p == model.PriorityHigh {
		return model.OptionFast, 0
	}
	return model.OptionEco, ecoPoints
}

//gocyclo:ignore
func (e Engine) synthesize(r resolved, stressed bool) (model.ChargingPlan, string) {
	leave := r.leaveBy
	plan := model.ChargingPlan{
		StartSoC: r.startSoC,
		MinSoC:   r.minSoC,
		Priority: r.priority,
		LeaveBy:  &leave,
	}
	available := int(r.leaveAt.Sub(r.now) / time.Minute)
	grid := "stable"
	if stressed {
		grid = "stressed"
	}

	deficit := r.minSoC - r.startSoC
	if deficit <= 0 {
		plan.ChargingOption = model.OptionNone
		plan.TargetSoC = r.startSoC
		plan.PickupTime = e.pickup(r, minInt(e.cfg.HandlingMinutes, available))
		return plan, fmt.Sprintf("start_soc %d already meets min_soc %d: no charging needed", r.startSoC, r.minSoC)
	}

	option, points := table(stressed, r.priority)
	if option == model.OptionEco {
		ecoNeed := minutesFor(deficit, e.cfg.EcoRatePerMinute)
		window := minInt(e.cfg.EcoMaxMinutes, available)
		switch {
		case ecoNeed <= window:
			plan.ChargingOption = model.OptionEco
			plan.PointsAwarded = points
			plan.TargetSoC = r.minSoC
			plan.PickupTime = e.pickup(r, window)
			return plan, fmt.Sprintf("grid %s, %s priority: eco_charge needs %d min and fits the %d min window, %d points",
				grid, r.priority, ecoNeed, window, points)
		case available >= e.cfg.EcoMaxMinutes:
			// Capped session still ends by leaveBy.
			plan.ChargingOption = model.OptionEco
			plan.PointsAwarded = points
			plan.TargetSoC = deliverable(r.startSoC, r.minSoC, e.cfg.EcoRatePerMinute, window)
			plan.PickupTime = e.pickup(r, window)
			return plan, fmt.Sprintf("grid %s, %s priority: eco_charge session capped at %d min reaches %d%% of %d%%, %d points",
				grid, r.priority, window, plan.TargetSoC, r.minSoC, points)
		}
		// The grid-friendly plan cannot meet the deadline: downgrade and forfeit the reward.
		plan.ChargingOption = model.OptionFast
		session := minInt(minutesFor(deficit, e.cfg.FastRatePerMinute), e.cfg.FastMaxMinutes)
		if session <= available {
			plan.TargetSoC = deliverable(r.startSoC, r.minSoC, e.cfg.FastRatePerMinute, session)
			plan.PickupTime = e.pickup(r, session)
			return plan, fmt.Sprintf("grid %s, %s priority: eco_charge needs %d min but only %d min until %s, downgraded to fast_charge, points forfeited",
				grid, r.priority, ecoNeed, available, r.leaveBy)
		}
		plan.TargetSoC = deliverable(r.startSoC, r.minSoC, e.cfg.FastRatePerMinute, available)
		plan.PickupTime = r.leaveBy
		return plan, fmt.Sprintf("grid %s, %s priority: neither eco_charge nor fast_charge meets %s, best effort fast_charge to %d%%, points forfeited",
			grid, r.priority, r.leaveBy, plan.TargetSoC)
	}

	plan.ChargingOption = model.OptionFast
	plan.PointsAwarded = points
	session := minInt(minutesFor(deficit, e.cfg.FastRatePerMinute), e.cfg.FastMaxMinutes)
	if session <= available {
		plan.TargetSoC = deliverable(r.startSoC, r.minSoC, e.cfg.FastRatePerMinute, session)
		plan.PickupTime = e.pickup(r, session)
		return plan, fmt.Sprintf("grid %s, %s priority: fast_charge for %d min, %d points", grid, r.priority, session, points)
	}
	plan.TargetSoC = deliverable(r.startSoC, r.minSoC, e.cfg.FastRatePerMinute, available)
	plan.PickupTime = r.leaveBy
	return plan, fmt.Sprintf("grid %s, %s priority: fast_charge cannot finish before %s, best effort to %d%%, %d points",
		grid, r.priority, r.leaveBy, plan.TargetSoC, points)
}

func (e Engine) pickup(r resolved, minutes int) model.TimeOfDay {
	return model.TimeOfDayFrom(r.now.Add(time.Duration(minutes) * time.Minute))
}

func (e Engine) fallback(in Input) model.ChargingPlan {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.Truncate(time.Minute)
	start, _ := resolveStartSoC(in.Signals)
	leave := model.TimeOfDayFrom(now.Add(3 * time.Hour))
	return model.ChargingPlan{
		StartSoC:       start,
		MinSoC:         defaultMinSoC,
		TargetSoC:      deliverable(start, defaultMinSoC, e.cfg.FastRatePerMinute, e.cfg.FastMaxMinutes),
		Priority:       model.PriorityMedium,
		ChargingOption: model.OptionFast,
		PointsAwarded:  stablePoints,
		LeaveBy:        &leave,
		PickupTime:     model.TimeOfDayFrom(now.Add(45 * time.Minute)),
		Reasoning:      FallbackReasoning,
	}
}

// minutesFor returns the whole minutes needed to deliver deficit percent.
func minutesFor(deficit int, rate float64) int {
	if deficit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(deficit)/rate - 1e-9))
}

// deliverable returns the SoC reached after charging for minutes, bounded by target.
func deliverable(start, target int, rate float64, minutes int) int {
	if minutes <= 0 {
		return start
	}
	v := start + int(math.Floor(rate*float64(minutes)+1e-9))
	if v > target {
		v = target
	}
	if v > 100 {
		v = 100
	}
	return v
}

func clampSoC(v int) (int, bool) {
	switch {
	case v < 0:
		return 0, true
	case v > 100:
		return 100, true
	default:
		return v, false
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// memoryNote summarises recent decisions. It is informational only.
func memoryNote(recent []model.ChargingPlan) string {
	if len(recent) == 0 {
		return ""
	}
	items := make([]string, 0, len(recent))
	for _, p := range recent {
		items = append(items, fmt.Sprintf("%s->%s(%d)", p.Priority, p.ChargingOption, p.PointsAwarded))
	}
	return "recent: " + strings.Join(items, ", ")
}
