// Package planlog keeps an append-only audit trail of committed and released
// charging plans. Records can be queried by time range and user.
package planlog

import (
	"context"
	"time"

	"github.com/kilianp07/chargeflex/core/model"
)

// Action values stored in LogRecord.Action.
const (
	ActionCommitted = "committed"
	ActionReleased  = "released"
)

// LogRecord captures one queue change.
type LogRecord struct {
	Timestamp     time.Time          `json:"timestamp"`
	NegotiationID string             `json:"negotiation_id,omitempty"`
	Action        string             `json:"action"`
	UserID        string             `json:"user_id"`
	Plan          model.ChargingPlan `json:"plan"`
	Replaced      bool               `json:"replaced"`
	// Recent lists the "priority->option(points)" summaries the engine saw.
	Recent []string `json:"recent,omitempty"`
}

// LogQuery defines filters for retrieving records. Zero values match everything.
type LogQuery struct {
	Start  time.Time
	End    time.Time
	UserID string
}

// Match reports whether rec passes the filters.
func (q LogQuery) Match(rec LogRecord) bool {
	if !q.Start.IsZero() && rec.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && rec.Timestamp.After(q.End) {
		return false
	}
	return q.UserID == "" || rec.UserID == q.UserID
}

// Store persists LogRecords and supports querying.
type Store interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}

// NopStore drops every record.
type NopStore struct{}

func (NopStore) Append(context.Context, LogRecord) error              { return nil }
func (NopStore) Query(context.Context, LogQuery) ([]LogRecord, error) { return nil, nil }
func (NopStore) Close() error                                        { return nil }
