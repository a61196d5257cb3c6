// Package memory owns the three session stores: conversation memory,
// knowledge base, and agent-state history. Knowledge is indexed in a vector
// store and queried with hybrid (vector + keyword) search.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/memory/vector"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/repository"
	"github.com/m-mizutani/kioku/pkg/utils/logging"
)

// Service owns conversation memory, the knowledge base and agent-state
// history. All mutations are serialized; reads may run concurrently. Adding a
// knowledge record and indexing its vector happen as one visible unit, so a
// record is queryable immediately after AddKnowledge returns.
type Service struct {
	mu sync.RWMutex

	cfg   Config
	store *vector.Store
	repo  repository.Repository

	records   map[model.KnowledgeID]*model.KnowledgeRecord
	recordSeq map[model.KnowledgeID]int
	nextSeq   int

	conversation []model.ConversationTurn
	states       []model.AgentStateEntry
}

// Option configures a Service
type Option func(*Service)

// WithConfig overrides the default hybrid search tuning
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// WithRepository attaches a persistence layer. Stored knowledge is written
// through best-effort; persistence failures never fail the in-memory add.
func WithRepository(repo repository.Repository) Option {
	return func(s *Service) {
		s.repo = repo
	}
}

// New creates a memory service with empty stores
func New(opts ...Option) *Service {
	s := &Service{
		cfg:       DefaultConfig(),
		store:     vector.NewStore(),
		records:   make(map[model.KnowledgeID]*model.KnowledgeRecord),
		recordSeq: make(map[model.KnowledgeID]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddKnowledgeInput holds the caller-supplied fields of a knowledge record
type AddKnowledgeInput struct {
	Topic      string
	Content    string
	Source     string
	Agent      string
	Confidence float64
	Tags       []string
}

// AddKnowledge assigns an id and timestamp, stores the record and indexes its
// vector synchronously. When a repository is attached the record is also
// persisted, best-effort.
func (s *Service) AddKnowledge(ctx context.Context, input AddKnowledgeInput) (*model.KnowledgeRecord, error) {
	record := &model.KnowledgeRecord{
		ID:         model.NewKnowledgeID(),
		Topic:      input.Topic,
		Content:    input.Content,
		Source:     input.Source,
		Agent:      input.Agent,
		CreatedAt:  time.Now().UTC(),
		Confidence: input.Confidence,
		Tags:       append([]string(nil), input.Tags...),
	}
	if err := record.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid knowledge record")
	}

	s.mu.Lock()
	if _, ok := s.records[record.ID]; ok {
		s.mu.Unlock()
		// A fresh UUID colliding with a stored one means the id space is
		// broken, not an environmental condition.
		panic(fmt.Sprintf("knowledge id collision: %s", record.ID))
	}
	s.insertLocked(record)
	s.mu.Unlock()

	s.persist(ctx, record)
	return record, nil
}

// Put stores a record under its existing id, replacing any stored record with
// the same id. Used to rehydrate from a repository and by confidence updates.
func (s *Service) Put(record *model.KnowledgeRecord) error {
	if record.ID == "" {
		return goerr.New("record ID is empty")
	}
	if err := record.Validate(); err != nil {
		return goerr.Wrap(err, "invalid knowledge record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(record)
	return nil
}

// insertLocked stores the record and its vector as one unit. Replacing an
// existing id keeps its insertion position.
func (s *Service) insertLocked(record *model.KnowledgeRecord) {
	if _, ok := s.recordSeq[record.ID]; !ok {
		s.recordSeq[record.ID] = s.nextSeq
		s.nextSeq++
	}
	s.records[record.ID] = record
	s.store.Add(string(record.ID), record.SearchText())
}

func (s *Service) persist(ctx context.Context, record *model.KnowledgeRecord) {
	if s.repo == nil {
		return
	}
	if err := s.repo.PutRecord(ctx, record); err != nil {
		logging.From(ctx).Warn("failed to persist knowledge record",
			"id", record.ID, "error", err)
	}
}

// Rehydrate loads all persisted records from the attached repository into the
// in-memory stores. No-op without a repository.
func (s *Service) Rehydrate(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	records, err := s.repo.ListRecords(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to load persisted knowledge")
	}
	for _, record := range records {
		if err := s.Put(record); err != nil {
			return goerr.Wrap(err, "failed to restore record", goerr.V("id", record.ID))
		}
	}
	logging.From(ctx).Info("knowledge base rehydrated", "records", len(records))
	return nil
}

// Knowledge returns the record stored under id
func (s *Service) Knowledge(id model.KnowledgeID) (*model.KnowledgeRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	return record, ok
}

// KnowledgeCount returns the number of stored records
func (s *Service) KnowledgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// SearchKnowledge runs hybrid retrieval: vector candidates are oversampled,
// merged with a keyword pass, deduplicated by id keeping the best combined
// score, and ranked. Ties are broken by most recent record first, then
// insertion order. The call has no side effects.
func (s *Service) SearchKnowledge(query string, k int) []*model.HybridResult {
	if k <= 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	k2 := k * s.cfg.Oversample

	merged := make(map[model.KnowledgeID]*model.HybridResult)
	for _, hit := range s.store.Query(query, k2) {
		id := model.KnowledgeID(hit.ID)
		record, ok := s.records[id]
		if !ok {
			continue
		}
		merged[id] = &model.HybridResult{
			Record:       record,
			VectorScore:  hit.Score,
			KeywordScore: KeywordScore(query, record.SearchText()),
		}
	}

	// Keyword pass surfaces records outside the vector top list. Their
	// vector score is taken as 0.
	for id, record := range s.records {
		if _, ok := merged[id]; ok {
			continue
		}
		if score := KeywordScore(query, record.SearchText()); score > 0 {
			merged[id] = &model.HybridResult{
				Record:       record,
				KeywordScore: score,
			}
		}
	}

	results := make([]*model.HybridResult, 0, len(merged))
	for _, r := range merged {
		r.CombinedScore = s.cfg.VectorWeight*r.VectorScore + s.cfg.KeywordWeight*r.KeywordScore
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		if !a.Record.CreatedAt.Equal(b.Record.CreatedAt) {
			return a.Record.CreatedAt.After(b.Record.CreatedAt)
		}
		return s.recordSeq[a.Record.ID] < s.recordSeq[b.Record.ID]
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

// Recall is a thin alias of SearchKnowledge scoped to conversation-derived
// and agent-derived knowledge; both live in the same knowledge base.
func (s *Service) Recall(query string, k int) []*model.HybridResult {
	return s.SearchKnowledge(query, k)
}

// Remember appends a conversation turn and returns it. Sequence numbers are
// strictly increasing and gap-free within a session.
func (s *Service) Remember(role model.Role, text string, meta map[string]any) model.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn := model.ConversationTurn{
		Seq:       len(s.conversation) + 1,
		Role:      role,
		Text:      text,
		CreatedAt: time.Now().UTC(),
		Meta:      meta,
	}
	if n := len(s.conversation); n > 0 && turn.Seq != s.conversation[n-1].Seq+1 {
		panic(fmt.Sprintf("conversation sequence out of order: %d after %d",
			turn.Seq, s.conversation[n-1].Seq))
	}
	s.conversation = append(s.conversation, turn)
	return turn
}

// Conversation returns a copy of all recorded turns in order
func (s *Service) Conversation() []model.ConversationTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ConversationTurn(nil), s.conversation...)
}

// RecordState appends an agent-state snapshot
func (s *Service) RecordState(agent, task string, details map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, model.AgentStateEntry{
		Agent:     agent,
		Task:      task,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	})
}

// States returns recorded state entries, filtered by agent name when given
func (s *Service) States(agent string) []model.AgentStateEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if agent == "" {
		return append([]model.AgentStateEntry(nil), s.states...)
	}
	entries := make([]model.AgentStateEntry, 0)
	for _, e := range s.states {
		if e.Agent == agent {
			entries = append(entries, e)
		}
	}
	return entries
}
