package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/face-registry/internal/records"
)

const (
	sqlLoadRecords = `
		SELECT subject_id, filename, embedding
		FROM face_records
		ORDER BY position`

	sqlDeleteRecords = `DELETE FROM face_records`

	sqlInsertRecord = `
		INSERT INTO face_records (position, subject_id, filename, embedding)
		VALUES ($1, $2, $3, $4)`

	sqlCountRecords = `SELECT COUNT(*) FROM face_records`
)

// RecordStore persists the record triple in the face_records table.
// Row order is the position column.
type RecordStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewRecordStore creates a record store over an already migrated database.
func NewRecordStore(db *sql.DB, dialect Dialect) *RecordStore {
	return &RecordStore{db: db, dialect: dialect}
}

// Load reads every record in position order.
func (s *RecordStore) Load(ctx context.Context) (*records.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(sqlLoadRecords))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	snap := records.NewSnapshot()
	for rows.Next() {
		var id, filename string
		var raw any
		if err := rows.Scan(&id, &filename, &raw); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		embedding, err := s.dialect.ScanEmbedding(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", records.ErrCorrupt, snap.Len(), err)
		}
		snap.Append(embedding, id, filename)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return snap, nil
}

// Save replaces all rows with snap inside one transaction.
func (s *RecordStore) Save(ctx context.Context, snap *records.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, sqlDeleteRecords); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.dialect.Rebind(sqlInsertRecord))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range snap.Len() {
		value, err := s.dialect.EmbeddingValue(snap.Embeddings[i])
		if err != nil {
			return fmt.Errorf("encode embedding %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, i, snap.IDs[i], snap.Filenames[i], value); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit records: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *RecordStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, sqlCountRecords).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
