package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spriggler/sprig-core/internal/event"
)

// Journal persists events locally so history survives restarts and broker
// outages. Appends are synchronous but cheap (single embedded write); the
// recorder calls them through a sink, never from the convergence path.
type Journal struct {
	db *DB
}

const journalSchema = `
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	timestamp  TEXT NOT NULL,
	component  TEXT NOT NULL,
	entity     TEXT NOT NULL,
	level      TEXT NOT NULL,
	message    TEXT NOT NULL,
	fields     TEXT
);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
CREATE INDEX IF NOT EXISTS idx_events_entity ON events(entity);
`

// NewJournal creates the journal, ensuring its schema exists.
func NewJournal(db *DB) (*Journal, error) {
	if _, err := db.Conn().Exec(journalSchema); err != nil {
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Append stores one event.
func (j *Journal) Append(ctx context.Context, e event.Event) error {
	var fields []byte
	if e.Fields != nil {
		var err error
		fields, err = json.Marshal(e.Fields)
		if err != nil {
			return fmt.Errorf("marshaling event fields: %w", err)
		}
	}

	_, err := j.db.Conn().ExecContext(ctx,
		`INSERT OR IGNORE INTO events (id, timestamp, component, entity, level, message, fields)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		string(e.Component),
		e.Entity,
		string(e.Level),
		e.Message,
		nullableString(fields),
	)
	if err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	return nil
}

// Recent returns the newest events, most recent first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]event.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.Conn().QueryContext(ctx,
		`SELECT id, timestamp, component, entity, level, message, fields
		 FROM events ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []event.Event
	for rows.Next() {
		var e event.Event
		var ts string
		var fields sql.NullString
		if err := rows.Scan(&e.ID, &ts, &e.Component, &e.Entity, &e.Level, &e.Message, &fields); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.Timestamp = t
		}
		if fields.Valid && fields.String != "" {
			_ = json.Unmarshal([]byte(fields.String), &e.Fields)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes events older than the retention window and returns how
// many were removed.
func (j *Journal) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := j.db.Conn().ExecContext(ctx,
		`DELETE FROM events WHERE timestamp < ?`,
		olderThan.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	return res.RowsAffected()
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
