// Package credential defines the verifiable-credential lifecycle used to
// record a driver's reported state of charge.
package credential

import (
	"context"
	"time"
)

// Credential is a minimal view of an issued verifiable credential.
type Credential struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	SoC       int       `json:"soc_percent"`
	IssuedAt  time.Time `json:"issued_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Updated is true when an existing credential was refreshed.
	Updated bool `json:"updated"`
}

// Issuer issues a credential for a driver or updates the existing one.
// Failures are bookkeeping only and never block a negotiation.
type Issuer interface {
	IssueOrUpdate(ctx context.Context, userID string, soc int) (Credential, error)
}

// NopIssuer accepts every request without recording anything.
type NopIssuer struct{}

func (NopIssuer) IssueOrUpdate(_ context.Context, userID string, soc int) (Credential, error) {
	return Credential{Subject: userID, SoC: soc}, nil
}
