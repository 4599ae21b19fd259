// Package llm adapts the chat backends to a single instruction-in,
// transcript-out interface used by the search flow.
package llm

import (
	"context"

	"github.com/bootstobeats/stepfinder/internal/model"
)

// Provider represents a single search-capable chat backend.
type Provider interface {
	Name() string
	Available() bool
	Generate(ctx context.Context, call, instruction string) (*Result, error)
}

// Result holds the transcript recovered from one backend call.
type Result struct {
	Text      string
	Model     string
	Usage     model.TokenUsage
	Cost      float64
	Citations []string
}
