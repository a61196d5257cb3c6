package repository

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
)

// ErrRecordNotFound is returned when a knowledge record does not exist
var ErrRecordNotFound = goerr.New("knowledge record not found")

// Repository persists knowledge records across sessions. Implementations must
// preserve the memory invariants: a put is atomic and ids are stable.
type Repository interface {
	// PutRecord saves a knowledge record, replacing any record with the same ID
	PutRecord(ctx context.Context, record *model.KnowledgeRecord) error

	// GetRecord retrieves a knowledge record by ID
	GetRecord(ctx context.Context, id model.KnowledgeID) (*model.KnowledgeRecord, error)

	// ListRecords retrieves all knowledge records ordered by creation time
	ListRecords(ctx context.Context) ([]*model.KnowledgeRecord, error)
}
