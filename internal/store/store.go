// Package store persists processing records and serves the history surface:
// create, list, get, delete, export.
package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/intelliscan/intelliscan/internal/model"
)

// ErrNotFound is returned by lookups for ids with no stored record. A routine
// outcome, not a system failure.
var ErrNotFound = eris.New("store: record not found")

// Store defines the persistence interface for processing history. Create is
// atomic: a record is either fully persisted or not persisted at all. List
// returns summaries most-recent-first.
type Store interface {
	Create(ctx context.Context, result model.DocumentResult, entities model.EntitySet, filename string, fileType model.FileType) (*model.Record, error)
	List(ctx context.Context) ([]model.RecordSummary, error)
	Get(ctx context.Context, id string) (*model.Record, error)
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, id string) ([]byte, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// exportRecord serializes a record in the documented wire format.
func exportRecord(rec *model.Record) ([]byte, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal record")
	}
	return data, nil
}
