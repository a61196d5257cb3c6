package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const knowledgeCollection = "knowledge"

// recordDoc is the Firestore document representation of a knowledge record
type recordDoc struct {
	ID         string    `firestore:"ID"`
	Topic      string    `firestore:"Topic"`
	Content    string    `firestore:"Content"`
	Source     string    `firestore:"Source"`
	Agent      string    `firestore:"Agent"`
	CreatedAt  time.Time `firestore:"CreatedAt"`
	Confidence float64   `firestore:"Confidence"`
	Tags       []string  `firestore:"Tags"`
}

func toRecordDoc(r *model.KnowledgeRecord) *recordDoc {
	return &recordDoc{
		ID:         string(r.ID),
		Topic:      r.Topic,
		Content:    r.Content,
		Source:     r.Source,
		Agent:      r.Agent,
		CreatedAt:  r.CreatedAt,
		Confidence: r.Confidence,
		Tags:       r.Tags,
	}
}

func fromRecordDoc(d *recordDoc) *model.KnowledgeRecord {
	return &model.KnowledgeRecord{
		ID:         model.KnowledgeID(d.ID),
		Topic:      d.Topic,
		Content:    d.Content,
		Source:     d.Source,
		Agent:      d.Agent,
		CreatedAt:  d.CreatedAt,
		Confidence: d.Confidence,
		Tags:       d.Tags,
	}
}

// firestoreRepo implements Repository using Firestore
type firestoreRepo struct {
	client *firestore.Client
}

// NewFirestore creates a Firestore-backed repository
func NewFirestore(ctx context.Context, projectID, databaseID string) (Repository, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}
	return &firestoreRepo{client: client}, nil
}

func (r *firestoreRepo) collection() *firestore.CollectionRef {
	return r.client.Collection(knowledgeCollection)
}

func (r *firestoreRepo) PutRecord(ctx context.Context, record *model.KnowledgeRecord) error {
	if record.ID == "" {
		return goerr.New("record ID is empty")
	}

	docRef := r.collection().Doc(string(record.ID))
	if _, err := docRef.Set(ctx, toRecordDoc(record)); err != nil {
		return goerr.Wrap(err, "failed to put record", goerr.V("id", record.ID))
	}
	return nil
}

func (r *firestoreRepo) GetRecord(ctx context.Context, id model.KnowledgeID) (*model.KnowledgeRecord, error) {
	doc, err := r.collection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrRecordNotFound, "no such record", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get record", goerr.V("id", id))
	}

	var d recordDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal record", goerr.V("id", id))
	}
	return fromRecordDoc(&d), nil
}

func (r *firestoreRepo) ListRecords(ctx context.Context) ([]*model.KnowledgeRecord, error) {
	iter := r.collection().OrderBy("CreatedAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	records := make([]*model.KnowledgeRecord, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate records")
		}

		var d recordDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal record")
		}
		records = append(records, fromRecordDoc(&d))
	}
	return records, nil
}
