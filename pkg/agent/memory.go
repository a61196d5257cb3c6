package agent

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/memory"
	"github.com/m-mizutani/kioku/pkg/model"
)

const recallTopK = 5

// Memory wraps the memory service's store and recall operations for the
// coordinator.
type Memory struct {
	memory *memory.Service
}

// NewMemory creates a memory agent backed by the shared memory service
func NewMemory(mem *memory.Service) *Memory {
	return &Memory{memory: mem}
}

// Remember stores content as a knowledge record on behalf of another agent
func (a *Memory) Remember(ctx context.Context, topic, content, sourceAgent string, confidence float64, tags []string) (*model.KnowledgeRecord, error) {
	record, err := a.memory.AddKnowledge(ctx, memory.AddKnowledgeInput{
		Topic:      topic,
		Content:    content,
		Source:     "memory_agent",
		Agent:      sourceAgent,
		Confidence: confidence,
		Tags:       tags,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to remember", goerr.V("topic", topic))
	}
	return record, nil
}

// Recall runs hybrid retrieval over conversation and knowledge memory
func (a *Memory) Recall(ctx context.Context, query string) []*model.HybridResult {
	return a.memory.Recall(query, recallTopK)
}
