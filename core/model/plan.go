package model

import (
	"fmt"
	"time"
)

// IntentSignals are the hints extracted from a driver's free-text request.
// Nil pointers and empty strings mean the value is unknown.
type IntentSignals struct {
	StartSoC     *int   `json:"start_soc,omitempty"`
	MinSoC       *int   `json:"min_soc,omitempty"`
	LeaveBy      string `json:"leave_by,omitempty"`
	PriorityHint string `json:"priority,omitempty"`
	// Exhausted is set when the request says the battery is dead or empty.
	Exhausted bool   `json:"exhausted,omitempty"`
	RawText   string `json:"raw_text"`
}

// UnknownSignals returns signals carrying only the raw text.
func UnknownSignals(text string) IntentSignals {
	return IntentSignals{RawText: text}
}

// IntPtr is a small helper for building optional integer signals.
func IntPtr(v int) *int { return &v }

// ChargingPlan is the negotiated outcome for one driver and the entry stored in
// the active-request queue.
type ChargingPlan struct {
	UserID                string         `json:"user_id"`
	StartSoC              int            `json:"start_soc"`
	MinSoC                int            `json:"min_soc"`
	TargetSoC             int            `json:"target_soc"`
	Priority              Priority       `json:"priority"`
	ChargingOption        ChargingOption `json:"charging_option"`
	PointsAwarded         int            `json:"points_awarded"`
	LeaveBy               *TimeOfDay     `json:"leave_by"`
	PickupTime            TimeOfDay      `json:"pickup_time"`
	GridStressedAtRequest bool           `json:"is_grid_stressed_at_request"`
	OriginalText          string         `json:"original_text"`
	ReceivedAt            time.Time      `json:"received_at"`
	Reasoning             string         `json:"reasoning,omitempty"`
}

// Validate checks the plan's domain ranges and that the pickup time does not
// fall after the leave-by time, both resolved relative to ReceivedAt.
func (p ChargingPlan) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("plan: empty user id")
	}
	for name, v := range map[string]int{"start_soc": p.StartSoC, "min_soc": p.MinSoC, "target_soc": p.TargetSoC} {
		if v < 0 || v > 100 {
			return fmt.Errorf("plan: %s %d out of range", name, v)
		}
	}
	if !p.Priority.Valid() {
		return fmt.Errorf("plan: invalid priority %q", p.Priority)
	}
	if !p.ChargingOption.Valid() {
		return fmt.Errorf("plan: invalid charging option %q", p.ChargingOption)
	}
	if p.PointsAwarded < 0 {
		return fmt.Errorf("plan: negative points %d", p.PointsAwarded)
	}
	if p.LeaveBy != nil && !p.ReceivedAt.IsZero() {
		pickup := p.PickupTime.NextAfter(p.ReceivedAt)
		leave := p.LeaveBy.NextAfter(p.ReceivedAt)
		if pickup.After(leave) {
			return fmt.Errorf("plan: pickup %s after leave-by %s", p.PickupTime, *p.LeaveBy)
		}
	}
	return nil
}
