package db

import (
	"adventcal/models"
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore maps collections and ids directly onto Firestore collections and documents.
// FIRESTORE_EMULATOR_HOST is honoured by the client library.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a client for projectID. credentialsFile may be empty to use
// application default credentials.
func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	log.Info().Str("project", projectID).Msg("firestore store ready")
	return &FirestoreStore{client: client}, nil
}

// Get returns the document or ErrNotFound.
func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (models.Record, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", collection, id, err)
	}
	return fromFirestoreData(snap.Data()), nil
}

// Set replaces the document.
func (s *FirestoreStore) Set(ctx context.Context, collection, id string, rec models.Record) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, toFirestoreData(rec)); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete removes the document or returns ErrNotFound.
func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.Collection(collection).Doc(id).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// List returns every document of the collection.
func (s *FirestoreStore) List(ctx context.Context, collection string) ([]Document, error) {
	snaps, err := s.client.Collection(collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, Document{ID: snap.Ref.ID, Data: fromFirestoreData(snap.Data())})
	}
	return docs, nil
}

// Close closes the client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func toFirestoreData(rec models.Record) map[string]interface{} {
	out := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		out[k] = toFirestoreValue(v)
	}
	return out
}

func toFirestoreValue(v any) any {
	switch val := v.(type) {
	case models.Timestamp:
		return val.Time()
	case *models.Timestamp:
		if val == nil {
			return nil
		}
		return val.Time()
	case models.Record:
		return toFirestoreData(val)
	case map[string]any:
		return toFirestoreData(models.Record(val))
	case []models.Record:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = toFirestoreData(item)
		}
		return out
	case []any:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = toFirestoreValue(item)
		}
		return out
	default:
		return v
	}
}

func fromFirestoreData(data map[string]interface{}) models.Record {
	rec := make(models.Record, len(data))
	for k, v := range data {
		rec[k] = fromFirestoreValue(v)
	}
	return rec
}

func fromFirestoreValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return models.NewTimestamp(val)
	case map[string]interface{}:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = fromFirestoreValue(item)
		}
		return out
	case []interface{}:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = fromFirestoreValue(item)
		}
		return out
	default:
		return v
	}
}
