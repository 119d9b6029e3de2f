package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zjrosen/pagetypes/internal/element"
)

// RecordModel is one row of the user_records table.
type RecordModel struct {
	User string
	Type string
	Name string
	Data string // JSON encoded record
}

// RecordRepository implements element.Persistence using SQLite.
type RecordRepository struct {
	db   *sql.DB
	path string
}

func newRecordRepository(db *sql.DB, path string) *RecordRepository {
	return &RecordRepository{db: db, path: path}
}

// Ensure RecordRepository implements element.Persistence.
var _ element.Persistence = (*RecordRepository)(nil)

// ReadUserRecords returns the collection of user for typeName.
// Returns element.ErrNotFound when the user never saved one.
func (r *RecordRepository) ReadUserRecords(ctx context.Context, user, typeName string) (map[string]element.Record, error) {
	var updated int64
	err := r.db.QueryRowContext(ctx,
		`SELECT updated_at FROM user_collections WHERE user_id = ? AND type_name = ?`,
		user, typeName,
	).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, element.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find collection: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, type_name, name, data FROM user_records WHERE user_id = ? AND type_name = ? ORDER BY name`,
		user, typeName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make(map[string]element.Record)
	for rows.Next() {
		var m RecordModel
		if err := rows.Scan(&m.User, &m.Type, &m.Name, &m.Data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec, err := m.toRecord()
		if err != nil {
			return nil, &element.ConfigCorruptError{
				User: user, Type: typeName,
				Path: fmt.Sprintf("%s#%s/%s/%s", r.path, user, typeName, m.Name),
				Err:  err,
			}
		}
		records[m.Name] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

// WriteUserRecords replaces the collection of user for typeName in one
// transaction.
func (r *RecordRepository) WriteUserRecords(ctx context.Context, user, typeName string, records map[string]element.Record) error {
	models := make([]RecordModel, 0, len(records))
	for name, rec := range records {
		m, err := toRecordModel(user, typeName, name, rec)
		if err != nil {
			return err
		}
		models = append(models, m)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_collections (user_id, type_name, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id, type_name) DO UPDATE SET updated_at = excluded.updated_at`,
		user, typeName, time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("failed to upsert collection: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_records WHERE user_id = ? AND type_name = ?`, user, typeName,
	); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}
	for _, m := range models {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_records (user_id, type_name, name, data) VALUES (?, ?, ?, ?)`,
			m.User, m.Type, m.Name, m.Data,
		); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", m.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	return nil
}

// ListKnownUsers returns every user with at least one saved collection.
func (r *RecordRepository) ListKnownUsers(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM user_collections ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func toRecordModel(user, typeName, name string, rec element.Record) (RecordModel, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return RecordModel{}, fmt.Errorf("failed to encode record %s: %w", name, err)
	}
	return RecordModel{User: user, Type: typeName, Name: name, Data: string(data)}, nil
}

func (m RecordModel) toRecord() (element.Record, error) {
	var rec element.Record
	if err := json.Unmarshal([]byte(m.Data), &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		rec = element.Record{}
	}
	return rec, nil
}
