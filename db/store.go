package db

import (
	"adventcal/models"
	"context"
	"errors"
)

// Collection names used by the application.
const (
	CollectionCalendars   = "calendars"
	CollectionUsers       = "users"
	CollectionCredentials = "credentials"
)

// ErrNotFound is returned by DocumentStore.Get and Delete when no document has the requested id.
var ErrNotFound = errors.New("document not found")

// Document is a stored record together with its id.
type Document struct {
	ID   string
	Data models.Record
}

// DocumentStore is a collection/id keyed record store. Records hold strings, numbers, booleans,
// models.Timestamp values, nested records and lists of those.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (models.Record, error)
	Set(ctx context.Context, collection, id string, rec models.Record) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([]Document, error)
	Close() error
}
