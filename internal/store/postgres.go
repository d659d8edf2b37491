package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/intelliscan/intelliscan/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore, abstracted so
// tests can substitute a mock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_record": `INSERT INTO records (id, filename, file_type, result, entities, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"get_record":    `SELECT id, filename, file_type, result, entities, created_at FROM records WHERE id = $1`,
	"list_records":  `SELECT id, filename, file_type, result, entities, created_at FROM records ORDER BY created_at DESC, id`,
	"delete_record": `DELETE FROM records WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS records (
	id         TEXT PRIMARY KEY,
	filename   TEXT NOT NULL,
	file_type  TEXT NOT NULL,
	result     JSONB NOT NULL,
	entities   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_records_created_at ON records(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, result model.DocumentResult, entities model.EntitySet, filename string, fileType model.FileType) (*model.Record, error) {
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
		return nil, eris.Wrap(err, "postgres: marshal result")
	}
	entitiesJSON, err := json.Marshal(rec.Entities)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal entities")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO records (id, filename, file_type, result, entities, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.OriginalFilename, string(rec.FileType), string(resultJSON), string(entitiesJSON), rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert record")
	}

	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]model.RecordSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, filename, file_type, result, entities, created_at FROM records ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	summaries := []model.RecordSummary{}
	for rows.Next() {
		rec, err := scanPgRecord(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, rec.Summary())
	}
	return summaries, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, filename, file_type, result, entities, created_at FROM records WHERE id = $1`,
		id,
	)
	return scanPgRecord(row)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM records WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete record %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", id)
	}
	return nil
}

func (s *PostgresStore) Export(ctx context.Context, id string) ([]byte, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return exportRecord(rec)
}

func scanPgRecord(row pgx.Row) (*model.Record, error) {
	var rec model.Record
	var fileType string
	var resultJSON, entitiesJSON []byte

	err := row.Scan(&rec.ID, &rec.OriginalFilename, &fileType, &resultJSON, &entitiesJSON, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "postgres")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan record")
	}

	rec.FileType = model.FileType(fileType)
	if err := json.Unmarshal(resultJSON, &rec.Result); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal result")
	}
	if err := json.Unmarshal(entitiesJSON, &rec.Entities); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal entities")
	}
	return &rec, nil
}
