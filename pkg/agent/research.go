// Package agent implements the collaborator agents the coordinator sequences:
// research, analysis, and memory. Each agent reads and writes through the
// shared memory service and returns a structured result.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/memory"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/utils/logging"
)

const researchTopK = 5

// Research looks up the knowledge base before doing any new work, and stores
// freshly produced findings so later questions can reuse them.
type Research struct {
	memory *memory.Service
}

// NewResearch creates a research agent backed by the shared memory service
func NewResearch(mem *memory.Service) *Research {
	return &Research{memory: mem}
}

// Run answers the query from stored knowledge when possible. On a miss it
// produces a new finding and stores it with moderate confidence.
func (a *Research) Run(ctx context.Context, query string) (*model.AgentResult, error) {
	hits := a.memory.SearchKnowledge(query, researchTopK)
	if len(hits) > 0 {
		lines := make([]string, 0, len(hits))
		maxConf := 0.0
		for _, h := range hits {
			lines = append(lines, fmt.Sprintf("- %s: %s (conf=%.2f)",
				h.Record.Topic, h.Record.Content, h.Record.Confidence))
			if h.Record.Confidence > maxConf {
				maxConf = h.Record.Confidence
			}
		}
		logging.From(ctx).Debug("research served from memory", "query", query, "hits", len(hits))
		return &model.AgentResult{
			Content:    strings.Join(lines, "\n"),
			Confidence: min(0.9, maxConf),
			Meta:       map[string]any{"used_memory": true, "hits": len(hits)},
		}, nil
	}

	finding := fmt.Sprintf("Research findings related to: %s.", query)
	record, err := a.memory.AddKnowledge(ctx, memory.AddKnowledgeInput{
		Topic:      query,
		Content:    finding,
		Source:     "lookup",
		Agent:      string(model.RoleResearch),
		Confidence: 0.6,
		Tags:       []string{"research", "auto"},
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store research finding")
	}

	return &model.AgentResult{
		Content:    finding,
		Confidence: 0.6,
		Meta:       map[string]any{"used_memory": false, "stored_as": record.ID},
	}, nil
}
