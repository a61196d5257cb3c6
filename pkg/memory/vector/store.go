package vector

import (
	"sort"
	"sync"
)

// Hit is a single similarity search result
type Hit struct {
	ID    string
	Score float64
}

type entry struct {
	text string
	vec  TermVector
	seq  int // insertion order, preserved across re-adds
}

// Store is an in-memory vector index. It owns the vectorizer (and therefore
// the vocabulary); all vectorization of indexed or queried text goes through
// the store so that the vocabulary stays consistent. The store never evicts
// entries; unbounded growth is intentional.
type Store struct {
	mu      sync.RWMutex
	vec     *Vectorizer
	entries map[string]*entry
	nextSeq int
}

// NewStore creates an empty vector store with its own vocabulary
func NewStore() *Store {
	return &Store{
		vec:     NewVectorizer(),
		entries: make(map[string]*entry),
	}
}

// Add indexes text under id. Re-adding an existing id replaces the stored
// text and vector but keeps the original insertion position. Vocabulary
// growth and index insertion happen as one visible unit.
func (s *Store) Add(id, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.vec.Vectorize(text)
	if e, ok := s.entries[id]; ok {
		e.text = text
		e.vec = v
		return
	}
	s.entries[id] = &entry{text: text, vec: v, seq: s.nextSeq}
	s.nextSeq++
}

// Text returns the stored text for id
func (s *Store) Text(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return "", false
	}
	return e.text, true
}

// Size returns the number of indexed entries
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Query returns up to k entries ranked by cosine similarity to text,
// descending. Ties are broken by insertion order, earlier inserted first.
// k <= 0 yields an empty result.
func (s *Store) Query(text string, k int) []Hit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.entries) == 0 {
		return nil
	}

	// Queries do not grow the vocabulary; only indexed text does.
	q := s.vec.VectorizeQuery(text)

	type scored struct {
		id    string
		score float64
		seq   int
	}
	scores := make([]scored, 0, len(s.entries))
	for id, e := range s.entries {
		scores = append(scores, scored{id: id, score: Cosine(q, e.vec), seq: e.seq})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].seq < scores[j].seq
	})

	if k > len(scores) {
		k = len(scores)
	}
	hits := make([]Hit, k)
	for i := 0; i < k; i++ {
		hits[i] = Hit{ID: scores[i].id, Score: scores[i].score}
	}
	return hits
}
