// Package queue maintains the deduplicated, priority-ordered set of active
// charging plans.
package queue

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/chargeflex/core/model"
)

// ErrConsistencyViolation reports more than one active plan for a user.
var ErrConsistencyViolation = errors.New("queue consistency violation")

type entry struct {
	seq  uint64
	plan model.ChargingPlan
}

// Queue holds at most one plan per user. Entries are kept in insertion order;
// replacing a user's plan moves it to the end. All operations run inside a
// single critical section so readers never observe a half-applied replace.
type Queue struct {
	mu      sync.RWMutex
	entries []entry
	seq     uint64
}

// New returns an empty queue.
func New() *Queue { return &Queue{} }

// Upsert removes any plan for plan.UserID and appends plan. It reports whether
// an existing plan was replaced.
func (q *Queue) Upsert(plan model.ChargingPlan) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	replaced := q.removeLocked(plan.UserID)
	q.seq++
	q.entries = append(q.entries, entry{seq: q.seq, plan: plan})
	return replaced
}

// Remove deletes the plan for userID and returns it. Unknown users are a no-op.
func (q *Queue) Remove(userID string) (model.ChargingPlan, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.plan.UserID == userID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return e.plan, true
		}
	}
	return model.ChargingPlan{}, false
}

func (q *Queue) removeLocked(userID string) bool {
	removed := false
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.plan.UserID == userID {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	// Clear the tail so dropped plans can be collected.
	for i := len(kept); i < len(q.entries); i++ {
		q.entries[i] = entry{}
	}
	q.entries = kept
	return removed
}

// Snapshot returns all plans ordered by priority weight, highest first. Ties
// keep insertion order.
func (q *Queue) Snapshot() []model.ChargingPlan {
	q.mu.RLock()
	out := make([]entry, len(q.entries))
	copy(out, q.entries)
	q.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].plan.Priority.Weight() > out[j].plan.Priority.Weight()
	})
	plans := make([]model.ChargingPlan, len(out))
	for i, e := range out {
		plans[i] = e.plan
	}
	return plans
}

// RecentFor returns up to limit of the most recently inserted plans belonging
// to other users, oldest first.
func (q *Queue) RecentFor(excludingUserID string, limit int) []model.ChargingPlan {
	if limit <= 0 {
		return nil
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	var rev []model.ChargingPlan
	for i := len(q.entries) - 1; i >= 0 && len(rev) < limit; i-- {
		if q.entries[i].plan.UserID == excludingUserID {
			continue
		}
		rev = append(rev, q.entries[i].plan)
	}
	out := make([]model.ChargingPlan, len(rev))
	for i, p := range rev {
		out[len(rev)-1-i] = p
	}
	return out
}

// Get returns the active plan for userID.
func (q *Queue) Get(userID string) (model.ChargingPlan, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, e := range q.entries {
		if e.plan.UserID == userID {
			return e.plan, true
		}
	}
	return model.ChargingPlan{}, false
}

// Len returns the number of active plans.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}

// Verify checks that no user has more than one entry and that entries are in
// insertion order.
func (q *Queue) Verify() error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	seen := make(map[string]struct{}, len(q.entries))
	var last uint64
	for _, e := range q.entries {
		if _, dup := seen[e.plan.UserID]; dup {
			return fmt.Errorf("%w: duplicate entries for %s", ErrConsistencyViolation, e.plan.UserID)
		}
		seen[e.plan.UserID] = struct{}{}
		if e.seq <= last {
			return fmt.Errorf("%w: entries out of insertion order", ErrConsistencyViolation)
		}
		last = e.seq
	}
	return nil
}
