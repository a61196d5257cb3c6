package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/repository"
)

func newRecord(topic string, createdAt time.Time) *model.KnowledgeRecord {
	return &model.KnowledgeRecord{
		ID:         model.KnowledgeID(uuid.NewString()),
		Topic:      topic,
		Content:    "content for " + topic,
		Source:     "test",
		Agent:      "test",
		CreatedAt:  createdAt,
		Confidence: 0.5,
		Tags:       []string{"t"},
	}
}

func TestMemoryRepositoryPutGet(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	record := newRecord("alpha", time.Now().UTC())
	gt.NoError(t, repo.PutRecord(ctx, record))

	got, err := repo.GetRecord(ctx, record.ID)
	gt.NoError(t, err)
	gt.Value(t, got.Topic).Equal("alpha")
	gt.Value(t, got.ID).Equal(record.ID)

	// The stored record is a copy, not an alias
	got.Topic = "mutated"
	again, err := repo.GetRecord(ctx, record.ID)
	gt.NoError(t, err)
	gt.Value(t, again.Topic).Equal("alpha")
}

func TestMemoryRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	_, err := repo.GetRecord(ctx, model.KnowledgeID(uuid.NewString()))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, repository.ErrRecordNotFound))
}

func TestMemoryRepositoryPutEmptyID(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	gt.Error(t, repo.PutRecord(ctx, &model.KnowledgeRecord{Topic: "x", Content: "y"}))
}

func TestMemoryRepositoryListOrdered(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	base := time.Now().UTC()
	third := newRecord("third", base.Add(2*time.Minute))
	first := newRecord("first", base)
	second := newRecord("second", base.Add(time.Minute))
	for _, r := range []*model.KnowledgeRecord{third, first, second} {
		gt.NoError(t, repo.PutRecord(ctx, r))
	}

	records, err := repo.ListRecords(ctx)
	gt.NoError(t, err)
	gt.Array(t, records).Length(3)
	gt.Value(t, records[0].Topic).Equal("first")
	gt.Value(t, records[1].Topic).Equal("second")
	gt.Value(t, records[2].Topic).Equal("third")
}

func TestMemoryRepositoryPutOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	record := newRecord("alpha", time.Now().UTC())
	gt.NoError(t, repo.PutRecord(ctx, record))

	updated := *record
	updated.Content = "revised content"
	gt.NoError(t, repo.PutRecord(ctx, &updated))

	got, err := repo.GetRecord(ctx, record.ID)
	gt.NoError(t, err)
	gt.Value(t, got.Content).Equal("revised content")

	records, err := repo.ListRecords(ctx)
	gt.NoError(t, err)
	gt.Array(t, records).Length(1)
}
