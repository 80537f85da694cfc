// Package intent defines the contract of the free-text intent extraction
// collaborator.
package intent

import (
	"context"

	"github.com/kilianp07/chargeflex/core/model"
)

// Extractor turns a driver's free text into best-effort intent signals.
// startSoCHint is an optional SoC already known from another source.
// Implementations may fail or time out; callers must then fall back to
// model.UnknownSignals.
type Extractor interface {
	Extract(ctx context.Context, text string, startSoCHint *int) (model.IntentSignals, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, text string, startSoCHint *int) (model.IntentSignals, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, text string, startSoCHint *int) (model.IntentSignals, error) {
	return f(ctx, text, startSoCHint)
}
