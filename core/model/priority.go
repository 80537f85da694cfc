package model

import "strings"

// Priority classifies how urgently a driver needs the vehicle back.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority maps a free-form hint onto a Priority. Anything outside
// {high, medium, low} yields PriorityMedium.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// Valid reports whether p is one of the three known priorities.
func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Weight returns the ordinal used to sort the active-request queue.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

func (p Priority) String() string { return string(p) }

// ChargingOption is the charging mode selected for a plan.
type ChargingOption string

const (
	OptionFast ChargingOption = "fast_charge"
	OptionEco  ChargingOption = "eco_charge"
	OptionNone ChargingOption = "none"
)

func (o ChargingOption) String() string { return string(o) }

// Valid reports whether o is a known charging option.
func (o ChargingOption) Valid() bool {
	return o == OptionFast || o == OptionEco || o == OptionNone
}
