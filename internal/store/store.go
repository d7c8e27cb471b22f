// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists analysis records. The pipeline depends only on the
// Store interface; SQLite is the bundled implementation, but any backend
// honoring atomic per-record writes and newest-first listing is
// substitutable.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pishield/pishield/pkg/types"
)

// ErrRecordNotFound is returned when a record does not exist or belongs to
// a different owner.
var ErrRecordNotFound = errors.New("analysis record not found")

// createdAtLayout is fixed-width so lexicographic order equals
// chronological order in the ORDER BY clause.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

const defaultListLimit = 20

// Store is the result-store contract the pipeline and the API surface
// depend on. Save must write the bundle+verdict pair as one unit.
type Store interface {
	Save(ctx context.Context, ownerID string, record types.AnalysisRecord) (string, error)
	GetByOwner(ctx context.Context, ownerID, recordID string) (*types.AnalysisRecord, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]types.AnalysisRecord, error)
	DeleteByOwner(ctx context.Context, ownerID, recordID string) error
	PurgeOwner(ctx context.Context, ownerID string) (int64, error)
}

// SQLite persists analysis records in a single-file database.
type SQLite struct {
	db           *sql.DB
	defaultLimit int
}

var _ Store = (*SQLite)(nil)

// Open opens or creates the database at cfg.Path and ensures the schema
// exists.
func Open(cfg types.StoreConfig) (*SQLite, error) {
	path := cfg.Path
	if path == "" {
		path = "pishield.db"
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	defaultLimit := cfg.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = defaultListLimit
	}

	s := &SQLite{db: db, defaultLimit: defaultLimit}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS analysis_records (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			file_name TEXT,
			file_url TEXT,
			modality TEXT NOT NULL,
			raw_bundle TEXT NOT NULL,
			confidence_score REAL NOT NULL,
			is_flagged INTEGER NOT NULL,
			ai_generated_probability REAL NOT NULL,
			counters TEXT,
			reasons TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_owner_created
			ON analysis_records(owner_id, created_at DESC)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save writes the record in one INSERT so the bundle+verdict pair is
// atomic. A missing ID or CreatedAt is filled in here; probability and
// confidence are stored as computed — clamping is the fusion engine's job,
// never the store's.
func (s *SQLite) Save(ctx context.Context, ownerID string, record types.AnalysisRecord) (string, error) {
	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	bundleJSON, err := json.Marshal(record.Bundle)
	if err != nil {
		return "", fmt.Errorf("encoding bundle: %w", err)
	}
	countersJSON, err := json.Marshal(record.Verdict.Counters)
	if err != nil {
		return "", fmt.Errorf("encoding counters: %w", err)
	}
	reasonsJSON, err := json.Marshal(record.Verdict.Reasons)
	if err != nil {
		return "", fmt.Errorf("encoding reasons: %w", err)
	}

	query, args, err := sq.Insert("analysis_records").
		Columns("id", "owner_id", "file_name", "file_url", "modality", "raw_bundle",
			"confidence_score", "is_flagged", "ai_generated_probability",
			"counters", "reasons", "created_at").
		Values(id, ownerID, record.FileName, record.FileURL, string(record.Modality), string(bundleJSON),
			record.Verdict.Confidence, record.Verdict.IsFlagged, record.Verdict.AIGeneratedProbability,
			string(countersJSON), string(reasonsJSON), createdAt.UTC().Format(createdAtLayout)).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("building insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("inserting record: %w", err)
	}
	return id, nil
}

var recordColumns = []string{
	"id", "owner_id", "file_name", "file_url", "modality", "raw_bundle",
	"confidence_score", "is_flagged", "ai_generated_probability",
	"counters", "reasons", "created_at",
}

// GetByOwner fetches one record scoped to its owner.
func (s *SQLite) GetByOwner(ctx context.Context, ownerID, recordID string) (*types.AnalysisRecord, error) {
	query, args, err := sq.Select(recordColumns...).
		From("analysis_records").
		Where(sq.Eq{"id": recordID, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListByOwner returns the owner's records newest first. A non-positive
// limit falls back to the configured default; rowid breaks created_at ties
// so paging is stable.
func (s *SQLite) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]types.AnalysisRecord, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if offset < 0 {
		offset = 0
	}

	query, args, err := sq.Select(recordColumns...).
		From("analysis_records").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC", "rowid DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []types.AnalysisRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// DeleteByOwner removes one record scoped to its owner.
func (s *SQLite) DeleteByOwner(ctx context.Context, ownerID, recordID string) error {
	query, args, err := sq.Delete("analysis_records").
		Where(sq.Eq{"id": recordID, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// PurgeOwner removes every record the owner has, supporting the
// user-initiated retention action, and reports how many were deleted.
func (s *SQLite) PurgeOwner(ctx context.Context, ownerID string) (int64, error) {
	query, args, err := sq.Delete("analysis_records").
		Where(sq.Eq{"owner_id": ownerID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building delete: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purging records: %w", err)
	}
	return res.RowsAffected()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*types.AnalysisRecord, error) {
	var (
		record       types.AnalysisRecord
		modality     string
		bundleJSON   string
		countersJSON sql.NullString
		reasonsJSON  sql.NullString
		createdAt    string
	)

	err := row.Scan(&record.ID, &record.OwnerID, &record.FileName, &record.FileURL,
		&modality, &bundleJSON,
		&record.Verdict.Confidence, &record.Verdict.IsFlagged, &record.Verdict.AIGeneratedProbability,
		&countersJSON, &reasonsJSON, &createdAt)
	if err != nil {
		return nil, err
	}

	record.Modality = types.Modality(modality)
	if err := json.Unmarshal([]byte(bundleJSON), &record.Bundle); err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}
	if countersJSON.Valid && countersJSON.String != "null" {
		if err := json.Unmarshal([]byte(countersJSON.String), &record.Verdict.Counters); err != nil {
			return nil, fmt.Errorf("decoding counters: %w", err)
		}
	}
	if reasonsJSON.Valid && reasonsJSON.String != "null" {
		if err := json.Unmarshal([]byte(reasonsJSON.String), &record.Verdict.Reasons); err != nil {
			return nil, fmt.Errorf("decoding reasons: %w", err)
		}
	}
	if t, parseErr := time.Parse(createdAtLayout, createdAt); parseErr == nil {
		record.CreatedAt = t
	}
	return &record, nil
}
