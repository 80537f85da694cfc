package events

import (
	"time"

	"github.com/kilianp07/chargeflex/core/model"
)

// PlanAction describes what happened to a plan.
type PlanAction string

const (
	PlanCommitted PlanAction = "committed"
	PlanReleased  PlanAction = "released"
)

// PlanEvent is published after the queue changed for one user.
type PlanEvent struct {
	Action     PlanAction
	Plan       model.ChargingPlan
	Replaced   bool
	// QueueDepth is the number of active plans right after the change.
	QueueDepth int
	Time       time.Time
}

// GridEvent is published after the grid flag was set.
type GridEvent struct {
	Stressed bool
	Previous bool
	Time     time.Time
}

// Event is the union carried on the typed bus. Exactly one field is set.
type Event struct {
	Plan *PlanEvent
	Grid *GridEvent
}
