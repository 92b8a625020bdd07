// Package ledger records completed runs in Firestore. Its one load-bearing
// read is LastSequence: the highest sequence number a previous run used,
// from which the caller derives the next run's starting sequence. The
// pipeline itself never reads or writes sequence state.
package ledger

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/wmcube/settlesplit/internal/gcp"
)

// RunRecord is one completed pipeline run.
type RunRecord struct {
	RunID        string    `firestore:"runId"`
	SourceFile   string    `firestore:"sourceFile"`
	FileHash     string    `firestore:"fileHash,omitempty"`
	FileCount    int       `firestore:"fileCount"`
	LastSequence int       `firestore:"lastSequence"`
	CreatedAt    time.Time `firestore:"createdAt"`
}

// Ledger stores run records in one Firestore collection.
type Ledger struct {
	client     *firestore.Client
	collection string
}

// New connects a ledger to the given project and collection.
func New(ctx context.Context, projectID, collection string) (*Ledger, error) {
	if collection == "" {
		return nil, fmt.Errorf("ledger collection name must be set")
	}
	client, err := gcp.NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &Ledger{client: client, collection: collection}, nil
}

// LastSequence returns the last sequence number used by the most recent run,
// or 0 when no run has been recorded yet.
func (l *Ledger) LastSequence(ctx context.Context) (int, error) {
	iter := l.client.Collection(l.collection).
		OrderBy("createdAt", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query last run: %w", err)
	}

	var rec RunRecord
	if err := doc.DataTo(&rec); err != nil {
		return 0, fmt.Errorf("failed to decode run record: %w", err)
	}
	return rec.LastSequence, nil
}

// IsDuplicate reports whether a statement with this content hash was already
// processed, and by which run.
func (l *Ledger) IsDuplicate(ctx context.Context, fileHash string) (bool, string, error) {
	docs, err := l.client.Collection(l.collection).
		Where("fileHash", "==", fileHash).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		return false, "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return true, docs[0].Ref.ID, nil
	}
	return false, "", nil
}

// RecordRun stores one completed run. A missing RunID or CreatedAt is filled
// in here.
func (l *Ledger) RecordRun(ctx context.Context, rec RunRecord) error {
	if rec.RunID == "" {
		rec.RunID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if _, err := l.client.Collection(l.collection).Doc(rec.RunID).Set(ctx, rec); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

func (l *Ledger) Close() error {
	return l.client.Close()
}
