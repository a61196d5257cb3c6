package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
)

// memoryRepo is an in-process Repository for tests and repository-less runs
type memoryRepo struct {
	mu      sync.RWMutex
	records map[model.KnowledgeID]*model.KnowledgeRecord
}

// NewMemory creates an in-process repository
func NewMemory() Repository {
	return &memoryRepo{
		records: make(map[model.KnowledgeID]*model.KnowledgeRecord),
	}
}

func (r *memoryRepo) PutRecord(ctx context.Context, record *model.KnowledgeRecord) error {
	if record.ID == "" {
		return goerr.New("record ID is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *record
	clone.Tags = append([]string(nil), record.Tags...)
	r.records[record.ID] = &clone
	return nil
}

func (r *memoryRepo) GetRecord(ctx context.Context, id model.KnowledgeID) (*model.KnowledgeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, goerr.Wrap(ErrRecordNotFound, "no such record", goerr.V("id", id))
	}
	clone := *record
	return &clone, nil
}

func (r *memoryRepo) ListRecords(ctx context.Context) ([]*model.KnowledgeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*model.KnowledgeRecord, 0, len(r.records))
	for _, record := range r.records {
		clone := *record
		records = append(records, &clone)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}
