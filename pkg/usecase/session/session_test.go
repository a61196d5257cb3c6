package session_test

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kioku/pkg/memory"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/usecase/session"
	"google.golang.org/genai"
)

// memStorage is an in-process object store for transcript tests
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

type memWriter struct {
	bytes.Buffer
	store *memStorage
	key   string
}

func (w *memWriter) Close() error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.objects[w.key] = append([]byte(nil), w.Bytes()...)
	return nil
}

func (s *memStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	return &memWriter{store: s, key: key}, nil
}

func (s *memStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, goerr.New("no such object", goerr.V("key", key))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func TestHandleWithoutGemini(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	_, err := mem.AddKnowledge(ctx, memory.AddKnowledgeInput{
		Topic:      "cooking pasta",
		Content:    "Boil water with plenty of salt before adding the pasta.",
		Source:     "seed",
		Agent:      "test",
		Confidence: 0.9,
	})
	gt.NoError(t, err)

	coordinator := session.New(session.NewInput{Memory: mem})
	gt.Value(t, coordinator.State()).Equal(session.StateIdle)

	question := "Find information about the capital of France and compare it to Berlin"
	answer, err := coordinator.Handle(ctx, question)
	gt.NoError(t, err)

	gt.Value(t, coordinator.State()).Equal(session.StateDone)
	gt.True(t, answer.Plan.Contains(model.StepResearch))
	gt.True(t, answer.Plan.Contains(model.StepAnalyze))
	gt.Value(t, answer.Warning).Equal("")
	gt.S(t, answer.Content).Contains("Summary:")
	gt.True(t, answer.Confidence > 0 && answer.Confidence <= 1)

	// The research finding and the session summary are now knowledge; a
	// related query must rank them above the unrelated seed record.
	results := mem.SearchKnowledge("capital of France", 3)
	gt.Number(t, len(results)).Greater(0)
	gt.Value(t, results[0].Record.Topic).Equal(question)
}

func TestHandleRecordsConversation(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	coordinator := session.New(session.NewInput{Memory: mem})

	question := "What are common sorting algorithms?"
	answer, err := coordinator.Handle(ctx, question)
	gt.NoError(t, err)

	turns := mem.Conversation()
	gt.Number(t, len(turns)).Greater(1)
	gt.Value(t, turns[0].Role).Equal(model.RoleUser)
	gt.Value(t, turns[0].Text).Equal(question)
	last := turns[len(turns)-1]
	gt.Value(t, last.Role).Equal(model.RoleCoordinator)
	gt.Value(t, last.Text).Equal(answer.Content)
}

func TestHandleRecordsAgentStates(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	coordinator := session.New(session.NewInput{Memory: mem})

	_, err := coordinator.Handle(ctx, "Research the history of compilers and summarize it")
	gt.NoError(t, err)

	gt.Number(t, len(mem.States(string(model.RoleResearch)))).Greater(0)
	gt.Number(t, len(mem.States(string(model.RoleAnalysis)))).Greater(0)
}

func TestHandleReusesMemoryAcrossQuestions(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	coordinator := session.New(session.NewInput{Memory: mem})

	question := "Find the main types of neural networks"
	_, err := coordinator.Handle(ctx, question)
	gt.NoError(t, err)
	stored := mem.KnowledgeCount()
	gt.Number(t, stored).Greater(0)

	// The second pass answers from stored knowledge, so research adds no
	// new finding; only the session summary is appended.
	_, err = coordinator.Handle(ctx, question)
	gt.NoError(t, err)
	gt.Value(t, mem.KnowledgeCount()).Equal(stored + 1)
}

func TestHandleWarnsWhenWriteBackFails(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	coordinator := session.New(session.NewInput{Memory: mem})

	// A blank question cannot be stored as a knowledge topic, so the final
	// write-back fails; the answer itself must still come back.
	answer, err := coordinator.Handle(ctx, "")
	gt.NoError(t, err)
	gt.V(t, answer).NotNil()
	gt.S(t, answer.Warning).Contains("could not be persisted")
	gt.Value(t, coordinator.State()).Equal(session.StateDone)
}

func TestTranscriptRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	store := newMemStorage()
	coordinator := session.New(session.NewInput{Memory: mem, Storage: store})

	question := "What are the main types of neural networks?"
	answer, err := coordinator.Handle(ctx, question)
	gt.NoError(t, err)

	turns, err := session.LoadTranscript(ctx, store, answer.SessionID)
	gt.NoError(t, err)
	gt.Number(t, len(turns)).Greater(1)
	gt.Value(t, turns[0].Role).Equal(model.RoleUser)
	gt.Value(t, turns[0].Text).Equal(question)
	gt.Value(t, turns[len(turns)-1].Text).Equal(answer.Content)
}

func TestLoadTranscriptUnknownSession(t *testing.T) {
	ctx := context.Background()
	store := newMemStorage()

	_, err := session.LoadTranscript(ctx, store, model.NewSessionID())
	gt.Error(t, err)
}

func TestHandleWithGemini(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()

	// The first call is classification, the second rewrites the answer
	gemini := &mockGemini{}
	gemini.handler = func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		if gemini.calls == 1 {
			return textResponse(`["research"]`), nil
		}
		return textResponse("Polished answer."), nil
	}

	coordinator := session.New(session.NewInput{Memory: mem, Gemini: gemini})
	answer, err := coordinator.Handle(ctx, "Tell me about black holes")
	gt.NoError(t, err)
	gt.Value(t, answer.Plan).Equal(model.Plan{model.StepResearch})
	gt.Value(t, answer.Content).Equal("Polished answer.")
	gt.Value(t, gemini.calls).Equal(2)
}
