package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/kioku/pkg/memory"
	"github.com/m-mizutani/kioku/pkg/memory/vector"
	"github.com/m-mizutani/kioku/pkg/model"
)

// Analysis summarizes accumulated findings and scores its own confidence from
// the lexical coverage of the inputs.
type Analysis struct {
	memory *memory.Service
}

// NewAnalysis creates an analysis agent backed by the shared memory service
func NewAnalysis(mem *memory.Service) *Analysis {
	return &Analysis{memory: mem}
}

// Run condenses the given data points toward the goal. Coverage is the count
// of distinct tokens across all inputs; confidence grows with coverage up to
// a cap of 0.95.
func (a *Analysis) Run(ctx context.Context, dataPoints []string, goal string) (*model.AgentResult, error) {
	tokens := make(map[string]bool)
	for _, dp := range dataPoints {
		for _, t := range vector.Tokenize(dp) {
			tokens[t] = true
		}
	}
	coverage := len(tokens)

	reasoning := fmt.Sprintf("Analyzed %d items with approx %d unique tokens.", len(dataPoints), coverage)
	if goal != "" {
		reasoning += " Goal: " + goal
	}

	parts := make([]string, 0, len(dataPoints))
	for _, dp := range dataPoints {
		if trimmed := strings.TrimSpace(dp); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}

	confidence := 0.5 + min(0.4, float64(coverage)/400)
	if confidence > 0.95 {
		confidence = 0.95
	}

	return &model.AgentResult{
		Content:    "Summary: " + strings.Join(parts, "; ") + "\nReasoning: " + reasoning,
		Confidence: confidence,
		Meta:       map[string]any{"coverage": coverage},
	}, nil
}
