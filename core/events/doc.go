// Package events defines the events emitted on the event bus whenever the
// active-request queue or the grid condition changes.
//
// Available event types:
//   - PlanEvent: a plan was committed to or released from the queue
//   - GridEvent: the operator toggled the grid condition
package events
