package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/intelliscan/intelliscan/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS records (
	id         TEXT PRIMARY KEY,
	filename   TEXT NOT NULL,
	file_type  TEXT NOT NULL,
	result     TEXT NOT NULL,
	entities   TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_records_created_at ON records(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create inserts a record in a single statement, so a crash mid-write leaves
// no readable partial row.
func (s *SQLiteStore) Create(ctx context.Context, result model.DocumentResult, entities model.EntitySet, filename string, fileType model.FileType) (*model.Record, error) {
	rec := &model.Record{
		ID:               uuid.New().String(),
		CreatedAt:        time.Now().UTC(),
		OriginalFilename: filename,
		FileType:         fileType,
		Result:           result,
		Entities:         entities,
	}

	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal result")
	}
	entitiesJSON, err := json.Marshal(rec.Entities)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal entities")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (id, filename, file_type, result, entities, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OriginalFilename, string(rec.FileType), string(resultJSON), string(entitiesJSON), rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert record")
	}

	return rec, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]model.RecordSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, file_type, result, entities, created_at FROM records ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close()

	summaries := []model.RecordSummary{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, rec.Summary())
	}
	return summaries, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, file_type, result, entities, created_at FROM records WHERE id = ?`,
		id,
	)
	return scanRecord(row)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete record %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", id)
	}
	return nil
}

func (s *SQLiteStore) Export(ctx context.Context, id string) ([]byte, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return exportRecord(rec)
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*model.Record, error) {
	var rec model.Record
	var fileType string
	var resultJSON, entitiesJSON string

	err := row.Scan(&rec.ID, &rec.OriginalFilename, &fileType, &resultJSON, &entitiesJSON, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "sqlite")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan record")
	}

	rec.FileType = model.FileType(fileType)
	if err := json.Unmarshal([]byte(resultJSON), &rec.Result); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal result")
	}
	if err := json.Unmarshal([]byte(entitiesJSON), &rec.Entities); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal entities")
	}
	return &rec, nil
}
