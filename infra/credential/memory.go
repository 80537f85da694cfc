// Package credential implements credential.Issuer backends.
package credential

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	corecred "github.com/kilianp07/chargeflex/core/credential"
)

// Memory keeps one credential per driver in memory.
type Memory struct {
	mu    sync.Mutex
	creds map[string]corecred.Credential
	now   func() time.Time
}

// NewMemory returns an empty in-memory issuer.
func NewMemory() *Memory {
	return &Memory{creds: make(map[string]corecred.Credential), now: time.Now}
}

// IssueOrUpdate issues a new credential for userID or refreshes the SoC of
// the existing one.
func (m *Memory) IssueOrUpdate(_ context.Context, userID string, soc int) (corecred.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	c, ok := m.creds[userID]
	if ok {
		c.SoC = soc
		c.UpdatedAt = now
		c.Updated = true
	} else {
		c = corecred.Credential{
			ID:        "urn:uuid:" + uuid.NewString(),
			Subject:   userID,
			SoC:       soc,
			IssuedAt:  now,
			UpdatedAt: now,
		}
	}
	m.creds[userID] = c
	return c, nil
}

// Get returns the stored credential of userID.
func (m *Memory) Get(userID string) (corecred.Credential, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[userID]
	return c, ok
}
