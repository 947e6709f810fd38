// rexscan/pkg/store/sqlite_store.go

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"rgehrsitz/rexscan/pkg/catalog"
	"rgehrsitz/rexscan/pkg/logging"
	"rgehrsitz/rexscan/pkg/resource"
)

// SQLiteStore keeps every category in one resources table. Row ids are
// numbered per category.
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLite opens (and creates if missing) the database at path and ensures
// the schema exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, logging.NewError(logging.ErrorTypeStore, "sqlite path is required", nil, nil)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, logging.NewError(logging.ErrorTypeStore, "failed to open sqlite database", err,
			map[string]interface{}{"path": path})
	}
	// One writer keeps row id allocation serial.
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{conn: conn}
	if err := s.createSchema(ctx); err != nil {
		conn.Close()
		return nil, logging.NewError(logging.ErrorTypeStore, "failed to create sqlite schema", err,
			map[string]interface{}{"path": path})
	}
	logging.Logger.Info().Str("path", path).Msg("Opened SQLite store")
	return s, nil
}

func (s *SQLiteStore) Close() error { return s.conn.Close() }

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS resources (
  category    TEXT    NOT NULL,
  row_id      INTEGER NOT NULL,
  natural_key TEXT    NOT NULL,
  fields_json TEXT    NOT NULL,
  updated_at  TEXT    NOT NULL,   -- RFC3339Nano
  PRIMARY KEY (category, row_id),
  UNIQUE (category, natural_key)
);

CREATE TABLE IF NOT EXISTS rules (
  position        INTEGER PRIMARY KEY,
  definition_json TEXT NOT NULL
);
`)
	return err
}

// Records returns the stored records of category ordered by row id.
func (s *SQLiteStore) Records(ctx context.Context, category resource.Category) ([]resource.Record, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT row_id, fields_json FROM resources WHERE category = ? ORDER BY row_id`, string(category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []resource.Record
	for rows.Next() {
		var (
			rowID int64
			data  string
		)
		if err := rows.Scan(&rowID, &data); err != nil {
			return nil, err
		}
		fields, err := resource.DecodeFields([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("decode %s row %d: %w", category, rowID, err)
		}
		records = append(records, resource.Record{RowID: rowID, Category: category, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logging.Logger.Debug().Str("category", string(category)).Int("records", len(records)).Msg("Retrieved records from SQLite")
	return records, nil
}

// PutRecords upserts records by natural key in a single transaction.
func (s *SQLiteStore) PutRecords(ctx context.Context, records []resource.Record) ([]resource.Record, error) {
	batch, err := collapse(records)
	if err != nil {
		return nil, err
	}
	ts := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	stored := make([]resource.Record, 0, len(batch))
	for _, u := range batch {
		rec := u.record
		data, err := resource.EncodeFields(rec.Fields)
		if err != nil {
			return nil, err
		}

		var rowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT row_id FROM resources WHERE category = ? AND natural_key = ?`,
			string(rec.Category), u.key).Scan(&rowID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if err := tx.QueryRowContext(ctx,
				`SELECT COALESCE(MAX(row_id), 0) + 1 FROM resources WHERE category = ?`,
				string(rec.Category)).Scan(&rowID); err != nil {
				return nil, err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO resources (category, row_id, natural_key, fields_json, updated_at) VALUES (?, ?, ?, ?, ?)`,
				string(rec.Category), rowID, u.key, string(data), ts); err != nil {
				return nil, err
			}
		case err != nil:
			return nil, err
		default:
			if _, err := tx.ExecContext(ctx,
				`UPDATE resources SET fields_json = ?, updated_at = ? WHERE category = ? AND row_id = ?`,
				string(data), ts, string(rec.Category), rowID); err != nil {
				return nil, err
			}
		}
		rec.RowID = rowID
		stored = append(stored, rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	logging.Logger.Debug().Int("records", len(stored)).Msg("Stored records in SQLite")
	return stored, nil
}

// Rules returns the stored rule definitions in their stored order.
func (s *SQLiteStore) Rules(ctx context.Context) ([]catalog.RuleDefinition, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT definition_json FROM rules ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []catalog.RuleDefinition
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var def catalog.RuleDefinition
		if err := json.Unmarshal([]byte(data), &def); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// PutRules replaces the stored rule definitions.
func (s *SQLiteStore) PutRules(ctx context.Context, defs []catalog.RuleDefinition) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rules`); err != nil {
		return err
	}
	for i, def := range defs {
		data, err := json.Marshal(def)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rules (position, definition_json) VALUES (?, ?)`, i, string(data)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

var _ Store = (*SQLiteStore)(nil)
