package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type KnowledgeID string

// NewKnowledgeID generates a new unique KnowledgeID
func NewKnowledgeID() KnowledgeID {
	return KnowledgeID(uuid.New().String())
}

// KnowledgeRecord is a persisted unit of retrieved or derived information.
// Records are immutable after storage except for confidence updates issued by
// an agent.
type KnowledgeRecord struct {
	ID         KnowledgeID `firestore:"ID" json:"id"`
	Topic      string      `firestore:"Topic" json:"topic"`
	Content    string      `firestore:"Content" json:"content"`
	Source     string      `firestore:"Source" json:"source"`
	Agent      string      `firestore:"Agent" json:"agent"`
	CreatedAt  time.Time   `firestore:"CreatedAt" json:"created_at"`
	Confidence float64     `firestore:"Confidence" json:"confidence"`
	Tags       []string    `firestore:"Tags" json:"tags"`
}

// Validate checks field constraints before the record is stored
func (r *KnowledgeRecord) Validate() error {
	if r.Topic == "" {
		return goerr.New("knowledge topic is empty")
	}
	if r.Content == "" {
		return goerr.New("knowledge content is empty")
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return goerr.New("confidence out of range", goerr.V("confidence", r.Confidence))
	}
	return nil
}

// SearchText is the text the record is indexed under: topic, tags and content
// joined so that any of them can match a query.
func (r *KnowledgeRecord) SearchText() string {
	return r.Topic + "\n" + r.Content + "\n" + strings.Join(r.Tags, " ")
}

// HybridResult is a single hit of a hybrid search. It references a stored
// record and carries the per-signal scores; it is never persisted.
type HybridResult struct {
	Record        *KnowledgeRecord
	VectorScore   float64
	KeywordScore  float64
	CombinedScore float64
}
