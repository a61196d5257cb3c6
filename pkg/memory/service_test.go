package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kioku/pkg/memory"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/repository"
)

func addKnowledge(t *testing.T, svc *memory.Service, topic, content string, confidence float64) *model.KnowledgeRecord {
	t.Helper()
	record, err := svc.AddKnowledge(context.Background(), memory.AddKnowledgeInput{
		Topic:      topic,
		Content:    content,
		Source:     "test",
		Agent:      "test",
		Confidence: confidence,
	})
	gt.NoError(t, err)
	return record
}

func TestAddKnowledgeImmediatelyQueryable(t *testing.T) {
	svc := memory.New()
	record := addKnowledge(t, svc, "go", "go is a statically typed language", 0.9)

	results := svc.SearchKnowledge("go is a statically typed language", 3)
	gt.Number(t, len(results)).Greater(0)
	gt.Value(t, results[0].Record.ID).Equal(record.ID)
}

func TestSelfRetrievalRankZero(t *testing.T) {
	svc := memory.New()
	addKnowledge(t, svc, "cooking", "how to bake sourdough bread at home", 0.7)
	addKnowledge(t, svc, "astronomy", "jupiter is the largest planet", 0.7)
	target := addKnowledge(t, svc, "networks", "convolutional neural networks recognize images", 0.7)

	results := svc.SearchKnowledge("convolutional neural networks recognize images", 3)
	gt.Number(t, len(results)).Greater(0)
	gt.Value(t, results[0].Record.ID).Equal(target.ID)
}

func TestSearchKnowledgeDeduplicatesByID(t *testing.T) {
	svc := memory.New()
	addKnowledge(t, svc, "neural networks", "neural networks have layers", 0.8)
	addKnowledge(t, svc, "deep learning", "deep learning uses neural networks", 0.8)

	results := svc.SearchKnowledge("neural networks", 10)
	seen := make(map[model.KnowledgeID]bool)
	for _, r := range results {
		gt.Value(t, seen[r.Record.ID]).Equal(false)
		seen[r.Record.ID] = true
	}
}

func TestSearchKnowledgeNonPositiveK(t *testing.T) {
	svc := memory.New()
	addKnowledge(t, svc, "a", "some content", 0.5)

	gt.Array(t, svc.SearchKnowledge("some content", 0)).Length(0)
	gt.Array(t, svc.SearchKnowledge("some content", -1)).Length(0)
}

func TestSearchKnowledgeCombinedScore(t *testing.T) {
	svc := memory.New()
	addKnowledge(t, svc, "match", "alpha beta gamma", 0.5)

	results := svc.SearchKnowledge("alpha beta gamma", 1)
	gt.Array(t, results).Length(1)

	r := results[0]
	gt.Number(t, r.VectorScore).Greater(0)
	gt.Number(t, r.KeywordScore).Greater(0)
	expected := memory.DefaultVectorWeight*r.VectorScore + memory.DefaultKeywordWeight*r.KeywordScore
	gt.Value(t, r.CombinedScore).Equal(expected)
}

func TestSearchKnowledgeSurfacesKeywordOnlyHits(t *testing.T) {
	// With k=1 and oversample=1 the vector list holds a single candidate.
	// The target is buried in noise words, so the short filler wins the
	// vector slot; only the keyword pass can surface the target.
	svc := memory.New(memory.WithConfig(memory.Config{
		VectorWeight:  0.0,
		KeywordWeight: 1.0,
		Oversample:    1,
	}))
	addKnowledge(t, svc, "filler", "kubernetes", 0.5)
	target := addKnowledge(t, svc, "target",
		"kubernetes containers appear here among a long stretch of other words"+
			" about scheduling nodes pods volumes secrets and networking", 0.5)

	results := svc.SearchKnowledge("kubernetes containers", 1)
	gt.Array(t, results).Length(1)
	gt.Value(t, results[0].Record.ID).Equal(target.ID)
}

func TestSearchKnowledgeTieBreakByRecency(t *testing.T) {
	svc := memory.New()

	older := &model.KnowledgeRecord{
		ID:         model.NewKnowledgeID(),
		Topic:      "same topic",
		Content:    "identical content",
		Source:     "test",
		Agent:      "test",
		CreatedAt:  time.Now().UTC().Add(-time.Hour),
		Confidence: 0.5,
	}
	newer := &model.KnowledgeRecord{
		ID:         model.NewKnowledgeID(),
		Topic:      "same topic",
		Content:    "identical content",
		Source:     "test",
		Agent:      "test",
		CreatedAt:  time.Now().UTC(),
		Confidence: 0.5,
	}
	gt.NoError(t, svc.Put(older))
	gt.NoError(t, svc.Put(newer))

	results := svc.SearchKnowledge("identical content", 2)
	gt.Array(t, results).Length(2)
	gt.Value(t, results[0].Record.ID).Equal(newer.ID)
	gt.Value(t, results[1].Record.ID).Equal(older.ID)
}

func TestPutIdempotent(t *testing.T) {
	svc := memory.New()
	record := &model.KnowledgeRecord{
		ID:         model.NewKnowledgeID(),
		Topic:      "topic",
		Content:    "stable content",
		Source:     "test",
		Agent:      "test",
		CreatedAt:  time.Now().UTC(),
		Confidence: 0.5,
	}
	gt.NoError(t, svc.Put(record))
	gt.NoError(t, svc.Put(record))

	gt.Number(t, svc.KnowledgeCount()).Equal(1)
	results := svc.SearchKnowledge("stable content", 5)
	gt.Array(t, results).Length(1)
	gt.Value(t, results[0].Record.ID).Equal(record.ID)
}

func TestAddKnowledgeValidation(t *testing.T) {
	svc := memory.New()

	_, err := svc.AddKnowledge(context.Background(), memory.AddKnowledgeInput{
		Topic: "no content", Confidence: 0.5,
	})
	gt.Error(t, err)

	_, err = svc.AddKnowledge(context.Background(), memory.AddKnowledgeInput{
		Topic: "t", Content: "c", Confidence: 1.5,
	})
	gt.Error(t, err)
}

func TestRememberSequenceGapFree(t *testing.T) {
	svc := memory.New()
	svc.Remember(model.RoleUser, "first", nil)
	svc.Remember(model.RoleCoordinator, "second", nil)
	svc.Remember(model.RoleUser, "third", nil)

	turns := svc.Conversation()
	gt.Array(t, turns).Length(3)
	for i, turn := range turns {
		gt.Number(t, turn.Seq).Equal(i + 1)
	}
}

func TestRecordAndFilterStates(t *testing.T) {
	svc := memory.New()
	svc.RecordState("research", "q1", map[string]any{"confidence": 0.6})
	svc.RecordState("analysis", "q1", map[string]any{"confidence": 0.7})
	svc.RecordState("research", "q2", map[string]any{"confidence": 0.8})

	gt.Array(t, svc.States("")).Length(3)
	gt.Array(t, svc.States("research")).Length(2)
	gt.Array(t, svc.States("analysis")).Length(1)
	gt.Array(t, svc.States("unknown")).Length(0)
}

func TestRehydrateFromRepository(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	first := memory.New(memory.WithRepository(repo))
	record := addKnowledge(t, first, "persisted", "this record survives restarts", 0.9)

	second := memory.New(memory.WithRepository(repo))
	gt.NoError(t, second.Rehydrate(ctx))

	gt.Number(t, second.KnowledgeCount()).Equal(1)
	results := second.SearchKnowledge("this record survives restarts", 1)
	gt.Array(t, results).Length(1)
	gt.Value(t, results[0].Record.ID).Equal(record.ID)
}

func TestRecallAliasesSearchKnowledge(t *testing.T) {
	svc := memory.New()
	addKnowledge(t, svc, "recallable", "facts we stored earlier", 0.8)

	search := svc.SearchKnowledge("facts we stored earlier", 5)
	recall := svc.Recall("facts we stored earlier", 5)
	gt.Value(t, len(recall)).Equal(len(search))
	gt.Value(t, recall[0].Record.ID).Equal(search[0].Record.ID)
}
